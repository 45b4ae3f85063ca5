// Package parser implements the two chunk boundary strategies: a strict
// decoder driven by declared lengths and a heuristic decoder that locates
// chunks by scanning for known type tags.
package parser

import "github.com/ssargent/pchunk/pkg/codec"

// Strategy identifies which decoder produced a chunk sequence
type Strategy int

const (
	StrategyStrict Strategy = iota + 1
	StrategyHeuristic
)

func (s Strategy) String() string {
	switch s {
	case StrategyStrict:
		return "strict"
	case StrategyHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one decoding pass
type Result struct {
	Strategy Strategy
	Chunks   []*codec.Chunk
	// Err is nil when the pass accepted its own output. For the strict
	// decoder a non-nil Err rejects the whole pass; for the heuristic decoder
	// it only reports a sparse recovery.
	Err error
}

// Accepted reports whether the pass validated its own output.
func (r Result) Accepted() bool {
	return r.Err == nil
}

// Match is one occurrence of a known tag in the buffer
type Match struct {
	Tag codec.Tag
	Pos int // offset of the first tag byte
}

// dataStart is where chunks begin, just past the signature.
const dataStart = len(codec.Signature)
