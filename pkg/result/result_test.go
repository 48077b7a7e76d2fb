package result

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ssargent/avroview/pkg/avroerr"
	"github.com/ssargent/avroview/pkg/container"
	"github.com/ssargent/avroview/pkg/datum"
	"github.com/ssargent/avroview/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userSchema = `{"type":"record","name":"U","fields":[{"name":"id","type":"long"},{"name":"name","type":"string"}]}`

func newFile(t *testing.T, schemaText, codec string, records ...interface{}) *container.File {
	t.Helper()
	h := &container.Header{
		SchemaText: schemaText,
		Schema:     schema.MustParse(schemaText),
		Codec:      codec,
	}
	for i := range h.Sync {
		h.Sync[i] = byte(i * 17)
	}
	if records == nil {
		records = []interface{}{}
	}
	return &container.File{Header: h, Records: records}
}

func user(id int64, name string) *datum.Record {
	rec := datum.NewRecord("U", 2)
	rec.Set("id", id)
	rec.Set("name", name)
	return rec
}

func TestAssemble_Users(t *testing.T) {
	f := newFile(t, userSchema, "deflate", user(1, "a"), user(2, "b"))

	p, err := Assemble(f, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, p.TotalRecords)
	assert.Equal(t, "deflate", p.Metadata.Codec)
	assert.Equal(t, "00112233445566778899aabbccddeeff", p.Metadata.SyncMarker)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schema": {"type":"record","name":"U","fields":[{"name":"id","type":"long"},{"name":"name","type":"string"}]},
		"metadata": {"codec":"deflate","sync_marker":"00112233445566778899aabbccddeeff"},
		"records": [{"id":1,"name":"a"},{"id":2,"name":"b"}],
		"total_records": 2
	}`, string(out))
}

func TestAssemble_RecordFieldOrder(t *testing.T) {
	rec := datum.NewRecord("R", 3)
	rec.Set("zeta", int32(1))
	rec.Set("alpha", int32(2))
	rec.Set("mid", int32(3))

	f := newFile(t, `{"type":"record","name":"R","fields":[
		{"name":"zeta","type":"int"},{"name":"alpha","type":"int"},{"name":"mid","type":"int"}]}`, "null", rec)

	p, err := Assemble(f, Options{})
	require.NoError(t, err)

	out, err := json.Marshal(p.Records)
	require.NoError(t, err)
	assert.Equal(t, `[{"zeta":1,"alpha":2,"mid":3}]`, string(out))
}

func TestAssemble_EmptyFile(t *testing.T) {
	p, err := Assemble(newFile(t, `"long"`, "null"), Options{})
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schema": "long",
		"metadata": {"codec":"null","sync_marker":"00112233445566778899aabbccddeeff"},
		"records": [],
		"total_records": 0
	}`, string(out))
}

func TestAssemble_SchemaNumbersKept(t *testing.T) {
	text := `{"type":"fixed","name":"F","size":16,"x-scale":12345678901234567890}`
	p, err := Assemble(newFile(t, text, "null"), Options{})
	require.NoError(t, err)

	out, err := json.Marshal(p.Schema)
	require.NoError(t, err)
	assert.Contains(t, string(out), `12345678901234567890`)
}

func TestAssemble_NoHeader(t *testing.T) {
	_, err := Assemble(&container.File{}, Options{})
	require.Error(t, err)
	assert.False(t, avroerr.IsDecodeError(err))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"null", nil, nil},
		{"bool", true, true},
		{"int", int32(-3), int32(-3)},
		{"long", int64(1) << 50, int64(1) << 50},
		{"float", float32(1.5), float32(1.5)},
		{"double", 2.5, 2.5},
		{"string", "héllo", "héllo"},
		{"bytes utf8", []byte("raw"), "raw"},
		{"bytes invalid", []byte{'a', 0xff, 'b'}, "a�b"},
		{"fixed", datum.Fixed{0xc3, 0xa9}, "é"},
		{"fixed invalid", datum.Fixed{0x80}, "�"},
		{"enum", datum.Enum{Index: 1, Symbol: "GREEN"}, "GREEN"},
		{"nan", math.NaN(), "NaN"},
		{"inf", math.Inf(1), "Infinity"},
		{"neg inf float", float32(math.Inf(-1)), "-Infinity"},
		{"array", []interface{}{[]byte("x"), int64(1)}, []interface{}{"x", int64(1)}},
		{"map", map[string]interface{}{"k": []byte{0xfe}}, map[string]interface{}{"k": "�"}},
		{"union untagged", datum.Union{Index: 1, Type: "string", Value: "v"}, "v"},
		{"union null", datum.Union{Index: 0, Type: "null"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_TaggedUnions(t *testing.T) {
	rec := datum.NewRecord("n.P", 1)
	rec.Set("x", datum.Union{Index: 1, Type: "int", Value: int32(7)})

	got, err := Normalize(datum.Union{Index: 2, Type: "n.P", Value: rec}, Options{TagUnions: true})
	require.NoError(t, err)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, `{"n.P":{"x":{"int":7}}}`, string(out))

	got, err = Normalize(datum.Union{Index: 0, Type: "null"}, Options{TagUnions: true})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNormalize_UnknownType(t *testing.T) {
	rec := datum.NewRecord("R", 3)
	rec.Set("bad", struct{}{})

	_, err := Normalize(rec, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "bad"`)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []interface{}{[]byte("a")}
	_, err := Normalize(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), in[0])
}

func TestObject(t *testing.T) {
	o := Object{{Key: "b", Value: 1}, {Key: "a", Value: "x"}}

	v, ok := o.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = o.Get("c")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "a"}, o.Keys())

	out, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":"x"}`, string(out))

	out, err = json.Marshal(Object{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestAssembleError(t *testing.T) {
	p := AssembleError(avroerr.KindTruncatedData, "need 4 bytes")
	assert.Equal(t, avroerr.KindTruncatedData, p.Kind)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"An error occurred: need 4 bytes"}`, string(out))
}

func TestFromError(t *testing.T) {
	err := avroerr.New(avroerr.KindUnsupportedCodec, `unsupported codec "xz"`)
	p := FromError(err)
	assert.Equal(t, avroerr.KindUnsupportedCodec, p.Kind)
	assert.Equal(t, `An error occurred: UnsupportedCodecError: unsupported codec "xz"`, p.Message)

	p = FromError(errors.New("plain"))
	assert.Equal(t, avroerr.Kind(""), p.Kind)
}
