// Package datum decodes Avro binary-encoded values against a parsed schema.
//
// Decoding is a pure function of (schema node, buffer, position): it returns
// the value and the position just past it, and never retains the buffer
// except through []byte and Fixed values, which alias it.
//
// Value mapping:
//
//	null    -> nil
//	boolean -> bool
//	int     -> int32
//	long    -> int64
//	float   -> float32
//	double  -> float64
//	bytes   -> []byte
//	string  -> string
//	fixed   -> Fixed
//	enum    -> Enum
//	array   -> []interface{}
//	map     -> map[string]interface{}
//	union   -> Union
//	record  -> *Record
package datum

import (
	"github.com/ssargent/avroview/pkg/avroerr"
	"github.com/ssargent/avroview/pkg/schema"
)

// MaxDepth bounds value nesting. A record that contains itself without a
// union in between would otherwise recurse forever without consuming input.
const MaxDepth = 512

// MaxZeroWidthItems bounds the total number of array and map items that
// occupy no bytes, counted across every call made through one Decoder.
const MaxZeroWidthItems = 1 << 20

// Decode decodes one value of type n starting at pos and returns the value
// and the position after it.
func Decode(s *schema.Schema, n *schema.Node, buf []byte, pos int) (interface{}, int, error) {
	return NewDecoder(s).Decode(n, buf, pos)
}

// Decoder decodes values of one schema. Items that encode to zero bytes
// draw on a single MaxZeroWidthItems budget for the Decoder's lifetime, so
// input split over many blocks or records cannot multiply it.
type Decoder struct {
	schema         *schema.Schema
	zeroWidthItems int64
}

// NewDecoder creates a Decoder for s.
func NewDecoder(s *schema.Schema) *Decoder {
	return &Decoder{schema: s}
}

// Decode decodes one value of type n starting at pos.
func (dec *Decoder) Decode(n *schema.Node, buf []byte, pos int) (interface{}, int, error) {
	d := decoder{schema: dec.schema, buf: buf, owner: dec}
	return d.decode(n, pos, 0)
}

// ReserveZeroWidth charges count zero-width items against the budget. It
// fails with LimitExceededError once the running total passes
// MaxZeroWidthItems.
func (dec *Decoder) ReserveZeroWidth(count int64) error {
	if count > MaxZeroWidthItems-dec.zeroWidthItems {
		return avroerr.Newf(avroerr.KindLimitExceeded,
			"more than %d empty items", MaxZeroWidthItems)
	}
	dec.zeroWidthItems += count
	return nil
}

type decoder struct {
	schema *schema.Schema
	buf    []byte
	owner  *Decoder
}

func (d *decoder) decode(n *schema.Node, pos, depth int) (interface{}, int, error) {
	if depth > MaxDepth {
		return nil, pos, avroerr.Newf(avroerr.KindInvalidFormat, "value nesting exceeds %d levels", MaxDepth).At(pos)
	}

	n, err := d.schema.Deref(n)
	if err != nil {
		return nil, pos, err
	}

	switch n.Type {
	case schema.Null:
		return nil, pos, nil
	case schema.Boolean:
		v, next, err := ReadBoolean(d.buf, pos)
		return v, next, err
	case schema.Int:
		v, next, err := ReadInt(d.buf, pos)
		return v, next, err
	case schema.Long:
		v, next, err := ReadLong(d.buf, pos)
		return v, next, err
	case schema.Float:
		v, next, err := ReadFloat(d.buf, pos)
		return v, next, err
	case schema.Double:
		v, next, err := ReadDouble(d.buf, pos)
		return v, next, err
	case schema.Bytes:
		v, next, err := ReadBytes(d.buf, pos)
		if err != nil {
			return nil, pos, err
		}
		return v, next, nil
	case schema.String:
		v, next, err := ReadString(d.buf, pos)
		return v, next, err
	case schema.Fixed:
		b, next, err := ReadFixed(d.buf, pos, n.Size)
		if err != nil {
			return nil, pos, err
		}
		return Fixed(b), next, nil
	case schema.Enum:
		return d.decodeEnum(n, pos)
	case schema.Union:
		return d.decodeUnion(n, pos, depth)
	case schema.Array:
		return d.decodeArray(n, pos, depth)
	case schema.Map:
		return d.decodeMap(n, pos, depth)
	case schema.Record:
		return d.decodeRecord(n, pos, depth)
	default:
		return nil, pos, avroerr.Newf(avroerr.KindUnknownType, "cannot decode schema type %q", n.Type)
	}
}

func (d *decoder) decodeEnum(n *schema.Node, pos int) (interface{}, int, error) {
	idx, next, err := ReadInt(d.buf, pos)
	if err != nil {
		return nil, pos, err
	}
	if idx < 0 || int(idx) >= len(n.Symbols) {
		return nil, pos, avroerr.Newf(avroerr.KindInvalidFormat,
			"enum %s index %d out of range [0,%d)", n.FullName(), idx, len(n.Symbols)).At(pos)
	}
	return Enum{Index: int(idx), Symbol: n.Symbols[idx]}, next, nil
}

func (d *decoder) decodeUnion(n *schema.Node, pos, depth int) (interface{}, int, error) {
	idx, next, err := ReadLong(d.buf, pos)
	if err != nil {
		return nil, pos, err
	}
	if idx < 0 || idx >= int64(len(n.Branches)) {
		return nil, pos, avroerr.Newf(avroerr.KindUnknownUnionBranch,
			"union branch %d out of range [0,%d)", idx, len(n.Branches)).At(pos)
	}

	branch := n.Branches[idx]
	v, next, err := d.decode(branch, next, depth+1)
	if err != nil {
		return nil, pos, err
	}
	return Union{Index: int(idx), Type: branch.TypeName(), Value: v}, next, nil
}

func (d *decoder) decodeRecord(n *schema.Node, pos, depth int) (interface{}, int, error) {
	rec := NewRecord(n.FullName(), len(n.Fields))
	for _, f := range n.Fields {
		v, next, err := d.decode(f.Type, pos, depth+1)
		if err != nil {
			return nil, pos, err
		}
		rec.Set(f.Name, v)
		pos = next
	}
	return rec, pos, nil
}

func (d *decoder) decodeArray(n *schema.Node, pos, depth int) (interface{}, int, error) {
	items := make([]interface{}, 0)
	err := d.eachBlockItem(n.Items, pos, &pos, func(p int) (int, error) {
		v, next, err := d.decode(n.Items, p, depth+1)
		if err != nil {
			return p, err
		}
		items = append(items, v)
		return next, nil
	})
	if err != nil {
		return nil, pos, err
	}
	return items, pos, nil
}

func (d *decoder) decodeMap(n *schema.Node, pos, depth int) (interface{}, int, error) {
	entries := make(map[string]interface{})
	err := d.eachBlockItem(n.Values, pos, &pos, func(p int) (int, error) {
		key, next, err := ReadString(d.buf, p)
		if err != nil {
			return p, err
		}
		v, next, err := d.decode(n.Values, next, depth+1)
		if err != nil {
			return p, err
		}
		entries[key] = v
		return next, nil
	})
	if err != nil {
		return nil, pos, err
	}
	return entries, pos, nil
}

// eachBlockItem walks the blocks of an array or map, calling item once per
// encoded item, until the terminating zero-count block. The position after
// the terminator is stored in end.
func (d *decoder) eachBlockItem(itemType *schema.Node, pos int, end *int, item func(int) (int, error)) error {
	zeroWidth := d.isZeroWidth(itemType, 0)

	for {
		hdr, next, err := ReadBlockHeader(d.buf, pos)
		if err != nil {
			return err
		}
		pos = next

		switch hdr.Kind {
		case BlockEnd:
			*end = pos
			return nil
		case PositiveCount, SizedNegativeCount:
			if err := d.checkItemCount(hdr.Count, pos, zeroWidth); err != nil {
				return err
			}
			blockStart := pos
			for i := int64(0); i < hdr.Count; i++ {
				if pos, err = item(pos); err != nil {
					return err
				}
			}
			if hdr.Kind == SizedNegativeCount && int64(pos-blockStart) != hdr.Size {
				return avroerr.Newf(avroerr.KindInvalidFormat,
					"block declared %d bytes but items used %d", hdr.Size, pos-blockStart).At(blockStart)
			}
		}
	}
}

// checkItemCount rejects counts that cannot fit in the remaining input, so a
// corrupt count fails fast instead of looping.
func (d *decoder) checkItemCount(count int64, pos int, zeroWidth bool) error {
	if zeroWidth {
		if err := d.owner.ReserveZeroWidth(count); err != nil {
			return avroerr.WithOffset(err, pos)
		}
		return nil
	}
	if count > int64(len(d.buf)-pos) {
		return truncated(pos, int(min(count, 1<<31-1)), len(d.buf))
	}
	return nil
}

// IsZeroWidth reports whether every value of n encodes to zero bytes.
func IsZeroWidth(s *schema.Schema, n *schema.Node) bool {
	d := &decoder{schema: s}
	return d.isZeroWidth(n, 0)
}

func (d *decoder) isZeroWidth(n *schema.Node, depth int) bool {
	if depth > 8 {
		return false
	}
	n, err := d.schema.Deref(n)
	if err != nil {
		return false
	}
	switch n.Type {
	case schema.Null:
		return true
	case schema.Fixed:
		return n.Size == 0
	case schema.Record:
		for _, f := range n.Fields {
			if !d.isZeroWidth(f.Type, depth+1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
