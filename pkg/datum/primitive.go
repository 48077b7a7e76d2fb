package datum

import (
	"encoding/binary"
	"math"

	"github.com/ssargent/avroview/pkg/avroerr"
)

const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

func truncated(pos, need, buflen int) error {
	have := buflen - pos
	if have < 0 {
		have = 0
	}
	return avroerr.Newf(avroerr.KindTruncatedData, "need %d bytes, have %d", need, have).At(pos)
}

// readVarint reads a base-128 varint of at most maxLen bytes.
func readVarint(buf []byte, pos, maxLen int) (uint64, int, error) {
	start := pos
	var (
		u     uint64
		shift uint
	)
	for i := 0; i < maxLen; i++ {
		if pos >= len(buf) {
			return 0, start, truncated(pos, 1, len(buf))
		}
		b := buf[pos]
		pos++
		// The 10th byte of a 64-bit varint carries only bit 63.
		if i == maxVarintLen64-1 && b > 1 {
			return 0, start, avroerr.New(avroerr.KindInvalidFormat, "varint overflows 64 bits").At(start)
		}
		u |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return u, pos, nil
		}
		shift += 7
	}
	return 0, start, avroerr.Newf(avroerr.KindInvalidFormat, "varint longer than %d bytes", maxLen).At(start)
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// ReadLong reads a zig-zag encoded 64-bit varint.
func ReadLong(buf []byte, pos int) (int64, int, error) {
	u, next, err := readVarint(buf, pos, maxVarintLen64)
	if err != nil {
		return 0, pos, err
	}
	return unzigzag(u), next, nil
}

// ReadInt reads a zig-zag encoded 32-bit varint.
func ReadInt(buf []byte, pos int) (int32, int, error) {
	u, next, err := readVarint(buf, pos, maxVarintLen32)
	if err != nil {
		return 0, pos, err
	}
	if u > math.MaxUint32 {
		return 0, pos, avroerr.New(avroerr.KindInvalidFormat, "int varint overflows 32 bits").At(pos)
	}
	return int32(unzigzag(u)), next, nil
}

// ReadBoolean reads a single 0/1 byte.
func ReadBoolean(buf []byte, pos int) (bool, int, error) {
	if pos >= len(buf) {
		return false, pos, truncated(pos, 1, len(buf))
	}
	switch buf[pos] {
	case 0:
		return false, pos + 1, nil
	case 1:
		return true, pos + 1, nil
	default:
		return false, pos, avroerr.Newf(avroerr.KindInvalidFormat, "invalid boolean byte 0x%02x", buf[pos]).At(pos)
	}
}

// ReadFloat reads a 4-byte little-endian IEEE-754 float.
func ReadFloat(buf []byte, pos int) (float32, int, error) {
	if len(buf)-pos < 4 {
		return 0, pos, truncated(pos, 4, len(buf))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[pos:])), pos + 4, nil
}

// ReadDouble reads an 8-byte little-endian IEEE-754 double.
func ReadDouble(buf []byte, pos int) (float64, int, error) {
	if len(buf)-pos < 8 {
		return 0, pos, truncated(pos, 8, len(buf))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[pos:])), pos + 8, nil
}

// ReadFixed reads exactly size raw bytes. The result aliases buf.
func ReadFixed(buf []byte, pos, size int) ([]byte, int, error) {
	if size < 0 || len(buf)-pos < size {
		return nil, pos, truncated(pos, size, len(buf))
	}
	return buf[pos : pos+size : pos+size], pos + size, nil
}

// ReadBytes reads a length-prefixed byte sequence. The result aliases buf.
func ReadBytes(buf []byte, pos int) ([]byte, int, error) {
	n, next, err := ReadLong(buf, pos)
	if err != nil {
		return nil, pos, err
	}
	if n < 0 {
		return nil, pos, avroerr.Newf(avroerr.KindInvalidFormat, "negative length %d", n).At(pos)
	}
	if n > int64(len(buf)-next) {
		return nil, pos, truncated(next, int(min(n, math.MaxInt32)), len(buf))
	}
	out, next, err := ReadFixed(buf, next, int(n))
	if err != nil {
		return nil, pos, err
	}
	return out, next, nil
}

// ReadString reads a length-prefixed string. The bytes are copied; UTF-8
// validity is not checked here.
func ReadString(buf []byte, pos int) (string, int, error) {
	b, next, err := ReadBytes(buf, pos)
	if err != nil {
		return "", pos, err
	}
	return string(b), next, nil
}

// BlockKind distinguishes the two ways an array, map or metadata block
// announces its item count.
type BlockKind int

const (
	// BlockEnd is the zero-count block that terminates the sequence.
	BlockEnd BlockKind = iota
	// PositiveCount is a block whose count is followed directly by items.
	PositiveCount
	// SizedNegativeCount is a block whose negated count is followed by the
	// block's byte size, then the items.
	SizedNegativeCount
)

// BlockHeader is the decoded prefix of one array/map block.
type BlockHeader struct {
	Kind  BlockKind
	Count int64
	Size  int64 // only for SizedNegativeCount
}

// ReadBlockHeader reads the count (and byte size, when present) that starts
// an array or map block.
func ReadBlockHeader(buf []byte, pos int) (BlockHeader, int, error) {
	count, next, err := ReadLong(buf, pos)
	if err != nil {
		return BlockHeader{}, pos, err
	}

	switch {
	case count == 0:
		return BlockHeader{Kind: BlockEnd}, next, nil
	case count > 0:
		return BlockHeader{Kind: PositiveCount, Count: count}, next, nil
	default:
		if count == math.MinInt64 {
			return BlockHeader{}, pos, avroerr.New(avroerr.KindInvalidFormat, "block count out of range").At(pos)
		}
		size, after, err := ReadLong(buf, next)
		if err != nil {
			return BlockHeader{}, pos, err
		}
		if size < 0 {
			return BlockHeader{}, pos, avroerr.Newf(avroerr.KindInvalidFormat, "negative block size %d", size).At(next)
		}
		if size > int64(len(buf)-after) {
			return BlockHeader{}, pos, truncated(after, int(min(size, math.MaxInt32)), len(buf))
		}
		return BlockHeader{Kind: SizedNegativeCount, Count: -count, Size: size}, after, nil
	}
}
