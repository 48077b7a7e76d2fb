package datum

import (
	"errors"
	"testing"

	"github.com/ssargent/avroview/pkg/avroerr"
	"github.com/ssargent/avroview/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, schemaText string, buf []byte) interface{} {
	t.Helper()
	s := schema.MustParse(schemaText)
	v, pos, err := Decode(s, s.Root(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(buf), pos, "decoder must consume the whole buffer")
	return v
}

func decodeErr(t *testing.T, schemaText string, buf []byte) error {
	t.Helper()
	s := schema.MustParse(schemaText)
	_, _, err := Decode(s, s.Root(), buf, 0)
	require.Error(t, err)
	return err
}

func TestDecode_Primitives(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		buf    []byte
		want   interface{}
	}{
		{"null", `"null"`, nil, nil},
		{"boolean", `"boolean"`, []byte{1}, true},
		{"int", `"int"`, longs(-42), int32(-42)},
		{"long", `"long"`, longs(1 << 40), int64(1 << 40)},
		{"float", `"float"`, appendFloat(nil, 1.5), float32(1.5)},
		{"double", `"double"`, appendDouble(nil, 2.25), 2.25},
		{"bytes", `"bytes"`, appendString(nil, "\x00\xff"), []byte{0x00, 0xff}},
		{"string", `"string"`, appendString(nil, "avro"), "avro"},
		{"fixed", `{"type":"fixed","name":"F","size":3}`, []byte{7, 8, 9}, Fixed{7, 8, 9}},
		{"enum", `{"type":"enum","name":"E","symbols":["A","B","C"]}`, longs(2), Enum{Index: 2, Symbol: "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeAll(t, tt.schema, tt.buf))
		})
	}
}

func TestDecode_Record(t *testing.T) {
	schemaText := `{"type":"record","name":"U","fields":[{"name":"id","type":"long"},{"name":"name","type":"string"}]}`

	var buf []byte
	buf = appendLong(buf, 1)
	buf = appendString(buf, "a")

	v := decodeAll(t, schemaText, buf)
	rec, ok := v.(*Record)
	require.True(t, ok)
	assert.Equal(t, "U", rec.Name())
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, []FieldValue{{Name: "id", Value: int64(1)}, {Name: "name", Value: "a"}}, rec.Fields())

	name, ok := rec.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "a", name)

	_, ok = rec.Get("missing")
	assert.False(t, ok)
}

func TestDecode_AdvancesPosition(t *testing.T) {
	s := schema.MustParse(`"string"`)
	buf := append(appendString(nil, "first"), appendString(nil, "second")...)

	v, pos, err := Decode(s, s.Root(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, pos, err = Decode(s, s.Root(), buf, pos)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, len(buf), pos)
}

func TestDecode_Array(t *testing.T) {
	schemaText := `{"type":"array","items":"long"}`

	t.Run("single block", func(t *testing.T) {
		v := decodeAll(t, schemaText, longs(3, 1, 2, 3, 0))
		assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, v)
	})

	t.Run("multiple blocks", func(t *testing.T) {
		v := decodeAll(t, schemaText, longs(2, 1, 2, 1, 3, 0))
		assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, v)
	})

	t.Run("sized negative block", func(t *testing.T) {
		items := longs(10, 20)
		buf := append(longs(-2, int64(len(items))), items...)
		buf = append(buf, 0)
		v := decodeAll(t, schemaText, buf)
		assert.Equal(t, []interface{}{int64(10), int64(20)}, v)
	})

	t.Run("empty", func(t *testing.T) {
		v := decodeAll(t, schemaText, longs(0))
		assert.Equal(t, []interface{}{}, v)
	})

	t.Run("missing terminator", func(t *testing.T) {
		err := decodeErr(t, schemaText, longs(2, 1, 2))
		assert.True(t, errors.Is(err, avroerr.ErrTruncatedData))
	})

	t.Run("sized block size mismatch", func(t *testing.T) {
		items := longs(10, 20)
		buf := append(longs(-2, int64(len(items)+1)), items...)
		buf = append(buf, 0, 0)
		err := decodeErr(t, schemaText, buf)
		assert.True(t, errors.Is(err, avroerr.ErrInvalidFormat))
	})

	t.Run("count larger than input", func(t *testing.T) {
		err := decodeErr(t, schemaText, longs(1_000_000, 1))
		assert.True(t, errors.Is(err, avroerr.ErrTruncatedData))
	})

	t.Run("zero width items", func(t *testing.T) {
		v := decodeAll(t, `{"type":"array","items":"null"}`, longs(4, 0))
		assert.Len(t, v, 4)

		err := decodeErr(t, `{"type":"array","items":"null"}`, longs(1<<40, 0))
		assert.True(t, errors.Is(err, avroerr.ErrLimitExceeded))
	})
}

func TestDecode_ZeroWidthBudget(t *testing.T) {
	nulls := `{"type":"array","items":"null"}`

	t.Run("one block at the limit", func(t *testing.T) {
		v := decodeAll(t, nulls, longs(MaxZeroWidthItems, 0))
		assert.Len(t, v, MaxZeroWidthItems)
	})

	t.Run("blocks share the limit", func(t *testing.T) {
		err := decodeErr(t, nulls, longs(MaxZeroWidthItems, MaxZeroWidthItems, 0))
		assert.True(t, errors.Is(err, avroerr.ErrLimitExceeded))
	})

	t.Run("nested containers share the limit", func(t *testing.T) {
		half := int64(MaxZeroWidthItems/2 + 1)
		buf := longs(2, half, 0, half, 0, 0)
		err := decodeErr(t, `{"type":"array","items":{"type":"array","items":"null"}}`, buf)
		assert.True(t, errors.Is(err, avroerr.ErrLimitExceeded))
	})

	t.Run("calls on one decoder share the limit", func(t *testing.T) {
		s := schema.MustParse(nulls)
		dec := NewDecoder(s)
		buf := longs(MaxZeroWidthItems/2+1, 0)

		_, _, err := dec.Decode(s.Root(), buf, 0)
		require.NoError(t, err)
		_, _, err = dec.Decode(s.Root(), buf, 0)
		assert.True(t, errors.Is(err, avroerr.ErrLimitExceeded))
	})

	t.Run("separate decoders start fresh", func(t *testing.T) {
		buf := longs(MaxZeroWidthItems/2+1, 0)
		decodeAll(t, nulls, buf)
		decodeAll(t, nulls, buf)
	})
}

func TestDecoder_ReserveZeroWidth(t *testing.T) {
	dec := NewDecoder(schema.MustParse(`"null"`))

	require.NoError(t, dec.ReserveZeroWidth(MaxZeroWidthItems-1))
	require.NoError(t, dec.ReserveZeroWidth(1))
	assert.True(t, errors.Is(dec.ReserveZeroWidth(1), avroerr.ErrLimitExceeded))
	assert.True(t, errors.Is(NewDecoder(nil).ReserveZeroWidth(1<<62), avroerr.ErrLimitExceeded))
}

func TestDecode_Map(t *testing.T) {
	var buf []byte
	buf = appendLong(buf, 2)
	buf = appendString(buf, "a")
	buf = appendString(buf, "x")
	buf = appendString(buf, "b")
	buf = appendString(buf, "y")
	buf = appendLong(buf, 0)

	v := decodeAll(t, `{"type":"map","values":"string"}`, buf)
	assert.Equal(t, map[string]interface{}{"a": "x", "b": "y"}, v)
}

func TestDecode_Union(t *testing.T) {
	schemaText := `["null","string",{"type":"record","name":"P","namespace":"n","fields":[{"name":"x","type":"int"}]}]`

	t.Run("null branch", func(t *testing.T) {
		v := decodeAll(t, schemaText, longs(0))
		assert.Equal(t, Union{Index: 0, Type: "null", Value: nil}, v)
	})

	t.Run("string branch", func(t *testing.T) {
		v := decodeAll(t, schemaText, appendString(longs(1), "hi"))
		assert.Equal(t, Union{Index: 1, Type: "string", Value: "hi"}, v)
	})

	t.Run("record branch", func(t *testing.T) {
		v := decodeAll(t, schemaText, longs(2, 7))
		u, ok := v.(Union)
		require.True(t, ok)
		assert.Equal(t, "n.P", u.Type)
		rec := u.Value.(*Record)
		x, _ := rec.Get("x")
		assert.Equal(t, int32(7), x)
	})

	t.Run("branch out of range", func(t *testing.T) {
		err := decodeErr(t, schemaText, longs(3))
		assert.True(t, errors.Is(err, avroerr.ErrUnknownUnionBranch))
		assert.Equal(t, avroerr.KindUnknownUnionBranch, avroerr.KindOf(err))
	})

	t.Run("negative branch", func(t *testing.T) {
		err := decodeErr(t, schemaText, longs(-1))
		assert.True(t, errors.Is(err, avroerr.ErrUnknownUnionBranch))
	})
}

func TestDecode_EnumOutOfRange(t *testing.T) {
	err := decodeErr(t, `{"type":"enum","name":"E","symbols":["A"]}`, longs(1))
	assert.True(t, errors.Is(err, avroerr.ErrInvalidFormat))
}

func TestDecode_RecursiveRecord(t *testing.T) {
	schemaText := `{"type":"record","name":"Node","fields":[
		{"name":"value","type":"int"},
		{"name":"next","type":["null","Node"]}
	]}`

	// 1 -> 2 -> 3 -> null
	buf := longs(1, 1, 2, 1, 3, 0)

	v := decodeAll(t, schemaText, buf)

	var values []int32
	for v != nil {
		rec := v.(*Record)
		value, _ := rec.Get("value")
		values = append(values, value.(int32))
		next, _ := rec.Get("next")
		v = next.(Union).Value
	}
	assert.Equal(t, []int32{1, 2, 3}, values)
}

func TestDecode_UnboundedRecursion(t *testing.T) {
	err := decodeErr(t, `{"type":"record","name":"R","fields":[{"name":"r","type":"R"}]}`, nil)
	assert.True(t, errors.Is(err, avroerr.ErrInvalidFormat))
	assert.Contains(t, err.Error(), "nesting")
}

func TestDecode_TruncatedRecord(t *testing.T) {
	schemaText := `{"type":"record","name":"U","fields":[{"name":"id","type":"long"},{"name":"name","type":"string"}]}`
	buf := appendString(appendLong(nil, 1), "abc")

	for cut := 0; cut < len(buf); cut++ {
		err := decodeErr(t, schemaText, buf[:cut])
		assert.True(t, errors.Is(err, avroerr.ErrTruncatedData), "cut at %d: %v", cut, err)
	}
}

func TestDecode_NestedContainers(t *testing.T) {
	schemaText := `{"type":"map","values":{"type":"array","items":["null","double"]}}`

	var buf []byte
	buf = appendLong(buf, 1)
	buf = appendString(buf, "k")
	buf = appendLong(buf, 2)
	buf = appendLong(buf, 0)
	buf = appendLong(buf, 1)
	buf = appendDouble(buf, 0.5)
	buf = appendLong(buf, 0)
	buf = appendLong(buf, 0)

	v := decodeAll(t, schemaText, buf)
	assert.Equal(t, map[string]interface{}{
		"k": []interface{}{
			Union{Index: 0, Type: "null"},
			Union{Index: 1, Type: "double", Value: 0.5},
		},
	}, v)
}
