package parser

import (
	"fmt"

	"github.com/ssargent/pchunk/pkg/codec"
)

// Scan returns every position at or after from where a known tag begins,
// left to right. Overlapping matches are all reported, including tags that
// sit inside another chunk's data.
func Scan(buf []byte, from int) []Match {
	var matches []Match
	for i := from; i+4 <= len(buf); i++ {
		if tag, ok := codec.MatchTag(buf[i:]); ok {
			matches = append(matches, Match{Tag: tag, Pos: i})
		}
	}
	return matches
}

// Heuristic recovers chunks from buf without trusting any length field.
// Each located tag starts a chunk four bytes before it (its length field) and
// the chunk ends four bytes before the next located tag. The last chunk runs
// to the end of the buffer.
//
// A tag with no room for a length field before it, or one closer than a
// minimal chunk to the previous boundary, cannot start a chunk and stays part
// of the preceding one. A trailing span too short to be a chunk is dropped.
func Heuristic(buf []byte) Result {
	res := Result{Strategy: StrategyHeuristic}
	bounds := boundaries(Scan(buf, dataStart+4))

	for i, m := range bounds {
		start := m.Pos - 4
		end := len(buf)
		if i+1 < len(bounds) {
			end = bounds[i+1].Pos - 4
		}

		c, err := codec.Carve(buf[start:end], start)
		if err != nil {
			continue
		}

		c.Index = len(res.Chunks)
		res.Chunks = append(res.Chunks, c)
	}

	if len(res.Chunks) < 2 {
		res.Err = fmt.Errorf("heuristic decode: recovered %d chunks: %w", len(res.Chunks), codec.ErrEmptyResult)
	}

	return res
}

// boundaries keeps the matches that can begin a complete chunk.
func boundaries(matches []Match) []Match {
	var out []Match
	for _, m := range matches {
		if n := len(out); n > 0 && m.Pos-out[n-1].Pos < codec.Overhead {
			continue
		}
		out = append(out, m)
	}
	return out
}
