// Package container reads Avro object container files.
//
// A Reader walks the file through ReadingMagic, ReadingHeader and
// ReadingBlocks to Done. Any failure moves it to Error, where it stays; no
// partial results are produced after an error.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ssargent/avroview/pkg/avroerr"
	"github.com/ssargent/avroview/pkg/codec"
	"github.com/ssargent/avroview/pkg/datum"
	"github.com/ssargent/avroview/pkg/schema"
)

// Reader provides sequential access to the blocks of an in-memory
// container file.
type Reader struct {
	buf    []byte
	pos    int
	state  State
	err    error
	config ReaderConfig

	header    *Header
	codec     codec.Codec
	decoder   *datum.Decoder
	zeroWidth bool

	blocks  int
	records int
}

// NewReader creates a reader over data. The reader does not copy data.
func NewReader(data []byte, config ReaderConfig) *Reader {
	return &Reader{
		buf:    data,
		state:  StateReadingMagic,
		config: config,
	}
}

// State returns the current state.
func (r *Reader) State() State {
	return r.state
}

// Err returns the error that moved the reader to StateError.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the current read offset.
func (r *Reader) Offset() int {
	return r.pos
}

// Header returns the header, or nil before it has been read.
func (r *Reader) Header() *Header {
	return r.header
}

func (r *Reader) fail(err error) error {
	r.state = StateError
	r.err = err
	return err
}

// ReadHeader reads and validates the magic, metadata and sync marker. It is
// a no-op returning the cached header once the header has been read.
func (r *Reader) ReadHeader() (*Header, error) {
	switch r.state {
	case StateError:
		return nil, r.err
	case StateReadingBlocks, StateDone:
		return r.header, nil
	}

	if len(r.buf) < len(Magic) || string(r.buf[:len(Magic)]) != Magic {
		return nil, r.fail(avroerr.New(avroerr.KindInvalidFormat, "not an Avro object container file: bad magic bytes").At(0))
	}
	r.pos = len(Magic)
	r.state = StateReadingHeader

	meta, pos, err := readMetadata(r.buf, r.pos)
	if err != nil {
		return nil, r.fail(err)
	}

	if len(r.buf)-pos < SyncSize {
		return nil, r.fail(avroerr.Newf(avroerr.KindTruncatedData,
			"need %d bytes for sync marker, have %d", SyncSize, len(r.buf)-pos).At(pos))
	}

	h := &Header{Metadata: meta, Codec: DefaultCodec}
	copy(h.Sync[:], r.buf[pos:pos+SyncSize])
	pos += SyncSize
	h.Size = pos

	schemaText, ok := h.Get(MetaSchema)
	if !ok {
		return nil, r.fail(avroerr.New(avroerr.KindMissingSchema, "header has no avro.schema entry"))
	}
	h.SchemaText = string(schemaText)

	h.Schema, err = schema.Parse(h.SchemaText)
	if err != nil {
		return nil, r.fail(err)
	}

	if name, ok := h.Get(MetaCodec); ok && len(name) > 0 {
		h.Codec = string(name)
	}
	r.codec, err = codec.Lookup(h.Codec)
	if err != nil {
		return nil, r.fail(err)
	}

	r.header = h
	r.decoder = datum.NewDecoder(h.Schema)
	r.zeroWidth = datum.IsZeroWidth(h.Schema, h.Schema.Root())
	r.pos = pos
	r.state = StateReadingBlocks
	return h, nil
}

// readMetadata decodes the header's map<bytes> of metadata, keeping file
// order.
func readMetadata(buf []byte, pos int) ([]MetadataEntry, int, error) {
	var meta []MetadataEntry
	for {
		hdr, next, err := datum.ReadBlockHeader(buf, pos)
		if err != nil {
			return nil, pos, avroerr.WithOffset(err, pos)
		}
		pos = next
		if hdr.Kind == datum.BlockEnd {
			return meta, pos, nil
		}
		if hdr.Count > int64(len(buf)-pos) {
			return nil, pos, avroerr.Newf(avroerr.KindTruncatedData,
				"metadata block declares %d entries with %d bytes left", hdr.Count, len(buf)-pos).At(pos)
		}

		blockStart := pos
		for i := int64(0); i < hdr.Count; i++ {
			key, next, err := datum.ReadString(buf, pos)
			if err != nil {
				return nil, pos, err
			}
			value, next, err := datum.ReadBytes(buf, next)
			if err != nil {
				return nil, pos, err
			}
			meta = append(meta, MetadataEntry{Key: key, Value: value})
			pos = next
		}
		if hdr.Kind == datum.SizedNegativeCount && int64(pos-blockStart) != hdr.Size {
			return nil, pos, avroerr.Newf(avroerr.KindInvalidFormat,
				"metadata block declared %d bytes but entries used %d", hdr.Size, pos-blockStart).At(blockStart)
		}
	}
}

// ReadBlock reads, decompresses and decodes the next block. It returns
// io.EOF once the input is exhausted. The context is checked before every
// block.
func (r *Reader) ReadBlock(ctx context.Context) (*Block, error) {
	switch r.state {
	case StateError:
		return nil, r.err
	case StateDone:
		return nil, io.EOF
	case StateReadingMagic, StateReadingHeader:
		if _, err := r.ReadHeader(); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, r.fail(avroerr.Wrap(avroerr.KindCanceled, "read canceled between blocks", err).At(r.pos))
	}

	if r.pos >= len(r.buf) {
		r.state = StateDone
		return nil, io.EOF
	}

	start := r.pos
	count, pos, err := datum.ReadLong(r.buf, start)
	if err != nil {
		return nil, r.fail(err)
	}
	if count < 0 {
		return nil, r.fail(avroerr.Newf(avroerr.KindInvalidFormat, "negative block record count %d", count).At(start))
	}
	// Some writers finish with a bare zero count.
	if count == 0 && pos == len(r.buf) {
		r.pos = pos
		r.state = StateDone
		return nil, io.EOF
	}

	sizeAt := pos
	size, pos, err := datum.ReadLong(r.buf, pos)
	if err != nil {
		return nil, r.fail(err)
	}
	if size < 0 {
		return nil, r.fail(avroerr.Newf(avroerr.KindInvalidFormat, "negative block size %d", size).At(sizeAt))
	}
	if r.config.MaxBlockBytes > 0 && size > int64(r.config.MaxBlockBytes) {
		return nil, r.fail(avroerr.Newf(avroerr.KindLimitExceeded,
			"block of %d bytes exceeds limit of %d", size, r.config.MaxBlockBytes).At(sizeAt))
	}
	if size > int64(len(r.buf)-pos) {
		return nil, r.fail(avroerr.Newf(avroerr.KindTruncatedData,
			"block declares %d bytes, %d left", size, len(r.buf)-pos).At(sizeAt))
	}
	payload := r.buf[pos : pos+int(size)]
	payloadAt := pos
	pos += int(size)

	raw, err := r.codec.Decompress(payload, r.config.MaxDecompressedBytes)
	if err != nil {
		return nil, r.fail(avroerr.WithOffset(err, payloadAt))
	}

	block := &Block{
		Index:          r.blocks,
		Offset:         start,
		Count:          count,
		CompressedSize: int(size),
		Size:           len(raw),
	}
	if block.Records, err = r.decodeRecords(block, raw); err != nil {
		return nil, r.fail(err)
	}

	if len(r.buf)-pos < SyncSize {
		return nil, r.fail(avroerr.Newf(avroerr.KindTruncatedData,
			"block %d: need %d bytes for sync marker, have %d", block.Index, SyncSize, len(r.buf)-pos).At(pos))
	}
	if !bytes.Equal(r.buf[pos:pos+SyncSize], r.header.Sync[:]) {
		return nil, r.fail(avroerr.Newf(avroerr.KindSyncMarkerMismatch,
			"block %d sync marker does not match header", block.Index).At(pos))
	}
	r.pos = pos + SyncSize

	r.blocks++
	r.records += len(block.Records)
	return block, nil
}

func (r *Reader) decodeRecords(block *Block, raw []byte) ([]interface{}, error) {
	if r.config.MaxRecords > 0 && int64(r.records)+block.Count > int64(r.config.MaxRecords) {
		return nil, avroerr.Newf(avroerr.KindLimitExceeded,
			"file holds more than %d records", r.config.MaxRecords).At(block.Offset)
	}
	if !r.zeroWidth && block.Count > int64(len(raw)) {
		return nil, avroerr.Newf(avroerr.KindTruncatedData,
			"block %d declares %d records in %d bytes", block.Index, block.Count, len(raw)).At(block.Offset)
	}
	if r.zeroWidth {
		if err := r.decoder.ReserveZeroWidth(block.Count); err != nil {
			return nil, fmt.Errorf("block %d declares %d empty records: %w", block.Index, block.Count,
				avroerr.WithOffset(err, block.Offset))
		}
	}

	root := r.header.Schema.Root()
	records := make([]interface{}, 0, block.Count)
	pos := 0
	for i := int64(0); i < block.Count; i++ {
		v, next, err := r.decoder.Decode(root, raw, pos)
		if err != nil {
			return nil, fmt.Errorf("block %d, record %d: %w", block.Index, i, avroerr.RelativeToBlock(err, block.Index))
		}
		records = append(records, v)
		pos = next
	}

	if pos != len(raw) {
		return nil, avroerr.Newf(avroerr.KindBlockLengthMismatch,
			"block %d: %d records used %d of %d bytes", block.Index, block.Count, pos, len(raw)).At(block.Offset)
	}
	return records, nil
}

// ReadAll reads the whole file. Any error aborts the read; no partial
// result is returned.
func ReadAll(ctx context.Context, data []byte, config ReaderConfig) (*File, error) {
	r := NewReader(data, config)

	h, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}

	f := &File{Header: h, Records: make([]interface{}, 0)}
	for {
		block, err := r.ReadBlock(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		f.Records = append(f.Records, block.Records...)
		f.Blocks++
		f.CompressedBytes += block.CompressedSize
		f.DecompressedBytes += block.Size
	}
	return f, nil
}

// Iterator returns a record-at-a-time iterator over the remaining blocks.
func (r *Reader) Iterator(ctx context.Context) *RecordIterator {
	return &RecordIterator{ctx: ctx, reader: r}
}

// RecordIterator streams records across blocks.
type RecordIterator struct {
	ctx    context.Context
	reader *Reader
	block  *Block
	next   int
	record interface{}
	err    error
}

// Next advances to the next record. It returns false at the end of the file
// or on error; check Err to tell them apart.
func (it *RecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.block == nil || it.next >= len(it.block.Records) {
		block, err := it.reader.ReadBlock(it.ctx)
		if err == io.EOF {
			return false
		}
		if err != nil {
			it.err = err
			return false
		}
		it.block, it.next = block, 0
	}
	it.record = it.block.Records[it.next]
	it.next++
	return true
}

// Record returns the current record.
func (it *RecordIterator) Record() interface{} {
	return it.record
}

// Err returns the error that stopped iteration, if any.
func (it *RecordIterator) Err() error {
	return it.err
}
