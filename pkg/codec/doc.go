// Package codec decompresses the data blocks of Avro object container files.
//
// Every block in a container file is compressed with the codec named by the
// avro.codec entry of the file header. The codec applies to the concatenated
// binary records of one block; block framing (record count, byte length and
// sync marker) is never compressed.
//
// # Supported Codecs
//
//   - null: blocks are stored as-is
//   - deflate: raw RFC 1951 deflate stream, no zlib or gzip header
//   - snappy: snappy block followed by a 4-byte big-endian CRC32 (IEEE) of the
//     uncompressed data
//   - zstandard: a single zstd frame
//   - bzip2: a bzip2 stream
//
// A header that names any other codec (xz, lz4, brotli, or a typo) fails with
// an UnsupportedCodecError.
//
// # Usage
//
//	c, err := codec.Lookup("deflate")
//	if err != nil {
//	    return err // avroerr.KindUnsupportedCodec
//	}
//	raw, err := c.Decompress(block, 64<<20)
//
// or in one call:
//
//	raw, err := codec.Decompress("snappy", block, codec.WithMaxSize(64<<20))
//
// # Size Limits
//
// A positive size limit bounds the decompressed output of a single block.
// Exceeding it fails with a LimitExceededError before the whole output is
// materialized.
//
// # Thread Safety
//
// Codec values are stateless and safe for concurrent use.
package codec
