package codec

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum_MatchesIEEE(t *testing.T) {
	// CRC of an empty IEND chunk as found in every PNG
	assert.Equal(t, uint32(0xAE426082), Checksum(TagIEND, nil))
	assert.Equal(t, crc32.ChecksumIEEE([]byte("tEXtabc")), Checksum(TagTEXT, []byte("abc")))
}

func TestVerifyAndRepair(t *testing.T) {
	c := NewChunk(TagTEXT, []byte("Title\x00pchunk"))
	require.True(t, Verify(c))

	broken := *c
	broken.CRC ^= 0x80000000
	assert.False(t, Verify(&broken))

	fixed := Repair(&broken)
	assert.True(t, Verify(fixed))
	assert.Equal(t, c.CRC, fixed.CRC)
	assert.False(t, Verify(&broken), "Repair must not mutate its argument")
	assert.Equal(t, broken.Type, fixed.Type)
	assert.Equal(t, broken.Data, fixed.Data)
}

func TestRepair_Idempotent(t *testing.T) {
	c := &Chunk{Length: 3, Type: TagZTXT, Data: []byte{1, 2, 3}, CRC: 42}

	once := Repair(c)
	twice := Repair(once)

	assert.True(t, once.Equal(twice))
}

func TestTags(t *testing.T) {
	tags := KnownTags()
	require.Len(t, tags, 26)
	assert.Equal(t, TagIHDR, tags[0])
	assert.Equal(t, TagIEND, tags[len(tags)-1])

	for _, tag := range tags {
		assert.True(t, tag.Known(), tag.String())
	}

	tags[0] = Tag{'x', 'x', 'x', 'x'}
	assert.Equal(t, TagIHDR, KnownTags()[0], "KnownTags must return a copy")

	assert.False(t, Tag{'v', 'p', 'A', 'g'}.Known())
	assert.False(t, Tag{'i', 'h', 'd', 'r'}.Known(), "tags are case sensitive")
}

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("PLTE")
	require.NoError(t, err)
	assert.Equal(t, "PLTE", tag.String())

	_, err = ParseTag("IDATX")
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = ParseTag("")
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestMatchTag(t *testing.T) {
	tag, ok := MatchTag([]byte("IDATxyz"))
	assert.True(t, ok)
	assert.Equal(t, "IDAT", tag.String())

	_, ok = MatchTag([]byte("IDA"))
	assert.False(t, ok)

	_, ok = MatchTag([]byte("abcd"))
	assert.False(t, ok)
}
