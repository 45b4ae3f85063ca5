// Package codec provides the PNG chunk record and its CRC-32 checksum.
//
// The codec package is the foundation of pchunk: both decoders in package
// parser and the container model build on the Chunk type defined here.
//
// # Chunk Format
//
// A PNG file is the 8-byte signature followed by a sequence of chunks:
//
//	[Length(4)][Type(4)][Data(Length)][CRC(4)]
//
// Fields:
//   - Length: 32-bit unsigned data length in bytes (big-endian). It does not
//     count the type, the CRC or itself.
//   - Type: 4 ASCII bytes naming the chunk kind (IHDR, tEXt, IDAT, IEND, ...)
//   - Data: Length bytes of chunk specific content
//   - CRC: CRC-32 (IEEE) over Type and Data (big-endian)
//
// The total chunk size is: 12 bytes + Length
//
// # Decoding
//
// FromSlice trusts the declared length and fails with ErrTruncated when the
// buffer is too short. Carve ignores the declared length and splits the slice
// positionally; it is used when chunk boundaries were found by other means.
//
//	c, err := codec.FromSlice(buf[pos:], pos)
//	if err != nil {
//	    return err
//	}
//
//	if err := c.Validate(); err != nil {
//	    var ce *codec.ChecksumError
//	    errors.As(err, &ce) // ce.Expected, ce.Actual
//	}
//
// # Checksums
//
// Checksum, Verify and Repair implement the CRC engine. Repair never mutates
// its argument; it returns a copy carrying the recomputed CRC.
//
// # Thread Safety
//
// Chunks are treated as values: nothing in pchunk mutates a chunk after it is
// constructed, so they can be shared between goroutines. The tag vocabulary is
// read-only after package initialization.
package codec
