package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// Signature is the fixed 8-byte PNG file header.
	Signature = "\x89PNG\r\n\x1a\n"

	// Overhead is the number of non-data bytes in a chunk:
	// Length(4) + Type(4) + CRC(4).
	Overhead = 12
)

// Chunk is one decoded record of a PNG container.
type Chunk struct {
	Index  int    // Position in decode order
	Offset int    // Byte offset of the type tag within the container
	Length uint32 // Declared data length as stored on disk
	Type   Tag    // Chunk type code
	Data   []byte // Chunk data
	CRC    uint32 // Stored CRC-32 over Type and Data
}

// NewChunk builds a chunk with a correct length and CRC for the given data.
func NewChunk(tag Tag, data []byte) *Chunk {
	if uint64(len(data)) > uint64(^uint32(0)) {
		panic("chunk data too large")
	}
	return &Chunk{
		Length: uint32(len(data)),
		Type:   tag,
		Data:   data,
		CRC:    Checksum(tag, data),
	}
}

// FromSlice decodes a chunk from raw, which must start at the chunk's length
// field. start is the offset of raw within the container.
// Format: [Length(4)][Type(4)][Data(Length)][CRC(4)]
func FromSlice(raw []byte, start int) (*Chunk, error) {
	if len(raw) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrTruncated, len(raw), start)
	}

	length := binary.BigEndian.Uint32(raw[0:4])
	need := uint64(Overhead) + uint64(length)
	if uint64(len(raw)) < need {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, need, start, len(raw))
	}

	return Carve(raw[:need], start)
}

// Carve extracts the chunk fields positionally from raw: the first eight bytes
// are the length and type, the last four the CRC, and everything between is
// data. The declared length is kept as metadata and not checked against the
// data size.
func Carve(raw []byte, start int) (*Chunk, error) {
	if len(raw) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrTruncated, len(raw), start)
	}

	c := &Chunk{
		Offset: start + 4,
		Length: binary.BigEndian.Uint32(raw[0:4]),
		Data:   raw[8 : len(raw)-4],
		CRC:    binary.BigEndian.Uint32(raw[len(raw)-4:]),
	}
	copy(c.Type[:], raw[4:8])

	return c, nil
}

// Serialize encodes the chunk in its on-disk form using the stored length
// and CRC, whichever decoder produced it.
func (c *Chunk) Serialize() []byte {
	buf := make([]byte, c.Size())

	binary.BigEndian.PutUint32(buf[0:], c.Length)
	copy(buf[4:], c.Type[:])
	copy(buf[8:], c.Data)
	binary.BigEndian.PutUint32(buf[8+len(c.Data):], c.CRC)

	return buf
}

// Size returns the encoded size of the chunk.
func (c *Chunk) Size() int {
	return Overhead + len(c.Data)
}

// Validate checks the stored CRC.
func (c *Chunk) Validate() error {
	if expected := Checksum(c.Type, c.Data); expected != c.CRC {
		return &ChecksumError{Type: c.Type, Expected: expected, Actual: c.CRC}
	}

	return nil
}

// Consistent reports whether the declared length matches the data size.
// Chunks recovered by tag scanning may disagree.
func (c *Chunk) Consistent() bool {
	return uint64(c.Length) == uint64(len(c.Data))
}

// Clone returns a deep copy of the chunk.
func (c *Chunk) Clone() *Chunk {
	cp := *c
	cp.Data = bytes.Clone(c.Data)
	return &cp
}

// Equal reports whether two chunks have identical on-disk content.
func (c *Chunk) Equal(o *Chunk) bool {
	return c.Length == o.Length && c.Type == o.Type && c.CRC == o.CRC && bytes.Equal(c.Data, o.Data)
}
