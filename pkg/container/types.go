package container

import (
	"github.com/ssargent/avroview/pkg/schema"
)

// Format constants of the Avro object container file.
const (
	Magic    = "Obj\x01"
	SyncSize = 16

	MetaSchema = "avro.schema"
	MetaCodec  = "avro.codec"

	// DefaultCodec applies when the header has no avro.codec entry.
	DefaultCodec = "null"
)

// State is the position of a Reader in its read cycle.
type State int

const (
	StateReadingMagic State = iota
	StateReadingHeader
	StateReadingBlocks
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateReadingMagic:
		return "ReadingMagic"
	case StateReadingHeader:
		return "ReadingHeader"
	case StateReadingBlocks:
		return "ReadingBlocks"
	case StateDone:
		return "Done"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ReaderConfig holds limits for a Reader. Zero values mean unlimited.
type ReaderConfig struct {
	MaxBlockBytes        int // compressed payload size of one block
	MaxDecompressedBytes int // decompressed size of one block
	MaxRecords           int // records across the whole file
}

// MetadataEntry is one key/value pair of the header metadata, in file order.
type MetadataEntry struct {
	Key   string
	Value []byte
}

// Header is the decoded file header. It is immutable once read.
type Header struct {
	Metadata   []MetadataEntry
	SchemaText string
	Schema     *schema.Schema
	Codec      string
	Sync       [SyncSize]byte
	Size       int // header length in bytes, including the sync marker
}

// Get returns the value of the first metadata entry with the given key.
func (h *Header) Get(key string) ([]byte, bool) {
	for _, e := range h.Metadata {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Block is one decoded data block.
type Block struct {
	Index          int
	Offset         int // offset of the block's record count in the file
	Count          int64
	CompressedSize int
	Size           int // decompressed size
	Records        []interface{}
}

// File is the fully decoded content of a container file.
type File struct {
	Header            *Header
	Records           []interface{}
	Blocks            int
	CompressedBytes   int
	DecompressedBytes int
}
