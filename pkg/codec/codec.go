package codec

import (
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sort"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ssargent/avroview/pkg/avroerr"
)

// Codec names as they appear in the avro.codec header entry.
const (
	Null      = "null"
	Deflate   = "deflate"
	Snappy    = "snappy"
	Zstandard = "zstandard"
	Bzip2     = "bzip2"
)

// Codec decompresses one block. A limit <= 0 means unbounded.
type Codec interface {
	Name() string
	Decompress(src []byte, limit int) ([]byte, error)
}

var registry = map[string]Codec{
	Null:      nullCodec{},
	Deflate:   deflateCodec{},
	Snappy:    snappyCodec{},
	Zstandard: zstdCodec{},
	Bzip2:     bzip2Codec{},
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, avroerr.Newf(avroerr.KindUnsupportedCodec, "unsupported codec %q", name)
	}
	return c, nil
}

// Names returns the supported codec names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type options struct {
	maxSize int
}

// Option configures Decompress.
type Option func(*options)

// WithMaxSize bounds the decompressed size of a block.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// Decompress looks up the named codec and decompresses data with it.
func Decompress(name string, data []byte, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.Decompress(data, o.maxSize)
}

type nullCodec struct{}

func (nullCodec) Name() string { return Null }

func (nullCodec) Decompress(src []byte, limit int) ([]byte, error) {
	if limit > 0 && len(src) > limit {
		return nil, tooLarge(Null, limit)
	}
	return src, nil
}

type deflateCodec struct{}

func (deflateCodec) Name() string { return Deflate }

func (deflateCodec) Decompress(src []byte, limit int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	return readLimited(Deflate, r, limit)
}

type snappyCodec struct{}

func (snappyCodec) Name() string { return Snappy }

// Decompress checks the trailing CRC32 that Avro appends to every snappy block.
func (snappyCodec) Decompress(src []byte, limit int) ([]byte, error) {
	if len(src) < 4 {
		return nil, avroerr.Newf(avroerr.KindInvalidFormat, "snappy block of %d bytes has no checksum", len(src))
	}
	body, sum := src[:len(src)-4], binary.BigEndian.Uint32(src[len(src)-4:])

	n, err := snappy.DecodedLen(body)
	if err != nil {
		return nil, avroerr.Wrap(avroerr.KindInvalidFormat, "snappy block header", err)
	}
	if limit > 0 && n > limit {
		return nil, tooLarge(Snappy, limit)
	}

	out, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, avroerr.Wrap(avroerr.KindInvalidFormat, "snappy decode", err)
	}
	if got := crc32.ChecksumIEEE(out); got != sum {
		return nil, avroerr.Newf(avroerr.KindInvalidFormat, "snappy checksum mismatch: %08x != %08x", got, sum)
	}
	return out, nil
}

type zstdCodec struct{}

func (zstdCodec) Name() string { return Zstandard }

func (zstdCodec) Decompress(src []byte, limit int) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(src), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, avroerr.Wrap(avroerr.KindInvalidFormat, "zstandard reader", err)
	}
	defer r.Close()
	return readLimited(Zstandard, r, limit)
}

type bzip2Codec struct{}

func (bzip2Codec) Name() string { return Bzip2 }

func (bzip2Codec) Decompress(src []byte, limit int) ([]byte, error) {
	return readLimited(Bzip2, bzip2.NewReader(bytes.NewReader(src)), limit)
}

func readLimited(name string, r io.Reader, limit int) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, int64(limit)+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, avroerr.Wrap(avroerr.KindInvalidFormat, name+" decompress", err)
	}
	if limit > 0 && len(out) > limit {
		return nil, tooLarge(name, limit)
	}
	return out, nil
}

func tooLarge(name string, limit int) error {
	return avroerr.Newf(avroerr.KindLimitExceeded, "%s block exceeds %d bytes when decompressed", name, limit)
}
