package container

import (
	"bytes"
	"testing"

	"github.com/hamba/avro/v2/ocf"
	"github.com/stretchr/testify/require"
)

const userSchema = `{"type":"record","name":"U","fields":[
	{"name":"id","type":"long"},
	{"name":"name","type":"string"},
	{"name":"email","type":["null","string"]}
]}`

type user struct {
	ID    int64   `avro:"id"`
	Name  string  `avro:"name"`
	Email *string `avro:"email"`
}

var testSync = [SyncSize]byte{
	0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02, 0x03,
	0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b,
}

func strPtr(s string) *string { return &s }

func testUsers(n int) []user {
	users := make([]user, n)
	for i := range users {
		users[i] = user{ID: int64(i + 1), Name: string(rune('a' + i%26))}
		if i%2 == 1 {
			users[i].Email = strPtr(users[i].Name + "@example.com")
		}
	}
	return users
}

// writeOCF encodes users with the reference encoder.
func writeOCF(t testing.TB, codec ocf.CodecName, blockLength int, users []user) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(userSchema, &buf, ocf.WithCodec(codec), ocf.WithBlockLength(blockLength))
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, enc.Encode(u))
	}
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func appendLong(b []byte, v int64) []byte {
	u := uint64(v<<1) ^ uint64(v>>63)
	for u >= 0x80 {
		b = append(b, byte(u)|0x80)
		u >>= 7
	}
	return append(b, byte(u))
}

func appendString(b []byte, s string) []byte {
	b = appendLong(b, int64(len(s)))
	return append(b, s...)
}

// buildHeader writes magic, metadata and sync marker by hand.
func buildHeader(meta []MetadataEntry, sync [SyncSize]byte) []byte {
	b := []byte(Magic)
	if len(meta) > 0 {
		b = appendLong(b, int64(len(meta)))
		for _, e := range meta {
			b = appendString(b, e.Key)
			b = appendString(b, string(e.Value))
		}
	}
	b = appendLong(b, 0)
	return append(b, sync[:]...)
}

func schemaMeta(schemaText string) []MetadataEntry {
	return []MetadataEntry{{Key: MetaSchema, Value: []byte(schemaText)}}
}

func appendBlock(b []byte, count int64, payload []byte, sync [SyncSize]byte) []byte {
	b = appendLong(b, count)
	b = appendLong(b, int64(len(payload)))
	b = append(b, payload...)
	return append(b, sync[:]...)
}

// longFile builds an uncompressed file of "long" records split into blocks.
func longFile(blocks [][]int64) []byte {
	b := buildHeader(schemaMeta(`"long"`), testSync)
	for _, values := range blocks {
		var payload []byte
		for _, v := range values {
			payload = appendLong(payload, v)
		}
		b = appendBlock(b, int64(len(values)), payload, testSync)
	}
	return b
}
