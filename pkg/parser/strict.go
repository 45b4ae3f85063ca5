package parser

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/pchunk/pkg/codec"
)

// Strict walks buf using each chunk's declared length. buf is the whole
// container including its signature, which is not checked here.
//
// The pass succeeds only when every declared length fits in the buffer and
// the last chunk has a known type. Otherwise the whole pass is rejected: a
// single misread length shifts every offset after it.
func Strict(buf []byte) Result {
	res := Result{Strategy: StrategyStrict}
	pos := dataStart

	// Fewer than four bytes left cannot hold another length field
	for len(buf)-pos >= 4 {
		length := binary.BigEndian.Uint32(buf[pos:])

		c, err := codec.FromSlice(buf[pos:], pos)
		if err != nil {
			res.Err = fmt.Errorf("strict decode: chunk %d at offset %d declares %d bytes: %w",
				len(res.Chunks), pos, length, err)
			return res
		}

		c.Index = len(res.Chunks)
		res.Chunks = append(res.Chunks, c)
		pos += c.Size()
	}

	if len(res.Chunks) == 0 {
		res.Err = fmt.Errorf("strict decode: no chunks: %w", codec.ErrEmptyResult)
		return res
	}

	if last := res.Chunks[len(res.Chunks)-1]; !last.Type.Known() {
		res.Err = fmt.Errorf("strict decode: %q at offset %d: %w",
			last.Type.String(), last.Offset, codec.ErrUnknownTerminalTag)
	}

	return res
}
