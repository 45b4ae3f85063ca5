package codec

import "hash/crc32"

// Checksum computes the PNG CRC-32 (IEEE polynomial) over the tag followed by
// the data bytes.
func Checksum(tag Tag, data []byte) uint32 {
	crc := crc32.NewIEEE()
	// hash.Hash never returns a write error
	_, _ = crc.Write(tag[:])
	_, _ = crc.Write(data)
	return crc.Sum32()
}

// Verify reports whether the stored CRC matches the recomputed value.
func Verify(c *Chunk) bool {
	return Checksum(c.Type, c.Data) == c.CRC
}

// Repair returns a copy of c with its CRC recomputed. Type and data are shared
// with c and are not modified.
func Repair(c *Chunk) *Chunk {
	fixed := *c
	fixed.CRC = Checksum(c.Type, c.Data)
	return &fixed
}
