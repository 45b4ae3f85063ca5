// Package container decodes a PNG byte stream into an ordered chunk
// sequence and renders chunk sequences back to bytes.
//
// Every transformation (Select, RepairAll) returns a new Container; a loaded
// Container is never modified, so it is safe for concurrent readers.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ssargent/pchunk/pkg/codec"
	"github.com/ssargent/pchunk/pkg/parser"
)

// ErrConflictingCriteria is returned when both tag and index filters are set
var ErrConflictingCriteria = errors.New("select by tag or by index, not both")

// Mode chooses which decoders Load may use
type Mode int

const (
	// ModeAuto runs the strict decoder and falls back to the heuristic one
	ModeAuto Mode = iota
	ModeStrict
	ModeHeuristic
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeStrict:
		return "strict"
	case ModeHeuristic:
		return "heuristic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ModeAuto, nil
	case "strict":
		return ModeStrict, nil
	case "heuristic":
		return ModeHeuristic, nil
	default:
		return ModeAuto, fmt.Errorf("unknown parse mode %q (want auto, strict or heuristic)", s)
	}
}

// Options control decoding
type Options struct {
	Mode Mode
}

// Diagnostics describe how a container was decoded
type Diagnostics struct {
	Strategy parser.Strategy
	// Rejected is why the strict pass was rejected; nil when it was accepted
	// or not attempted.
	Rejected error
	// Sparse is set when the heuristic pass recovered fewer than two chunks.
	Sparse error
}

// Container is an ordered, immutable sequence of chunks
type Container struct {
	chunks   []*codec.Chunk
	fileSize int
	diag     Diagnostics
}

// Load decodes buf with ModeAuto. A container the heuristic scan recovers
// fewer than two chunks from is still returned with a nil error; the shortfall
// is reported by Err and Diagnostics().Sparse.
func Load(buf []byte) (*Container, error) {
	return LoadWith(buf, Options{})
}

// LoadWith validates the signature and decodes buf. buf is copied; the
// caller may reuse it. Only a bad signature, a strict rejection under
// ModeStrict or an unknown mode is an error; sparse heuristic recovery is
// reported by Err instead.
func LoadWith(buf []byte, opts Options) (*Container, error) {
	if len(buf) < len(codec.Signature) || string(buf[:len(codec.Signature)]) != codec.Signature {
		return nil, codec.ErrBadSignature
	}

	buf = bytes.Clone(buf)
	c := &Container{fileSize: len(buf)}

	var res parser.Result
	switch opts.Mode {
	case ModeStrict:
		res = parser.Strict(buf)
		if !res.Accepted() {
			return nil, res.Err
		}
	case ModeHeuristic:
		res = parser.Heuristic(buf)
	case ModeAuto:
		res = parser.Strict(buf)
		if !res.Accepted() {
			c.diag.Rejected = res.Err
			res = parser.Heuristic(buf)
		}
	default:
		return nil, fmt.Errorf("unsupported parse mode %s", opts.Mode)
	}

	c.diag.Strategy = res.Strategy
	if res.Strategy == parser.StrategyHeuristic {
		c.diag.Sparse = res.Err
	}
	c.chunks = res.Chunks

	return c, nil
}

// New builds a container from chunks, renumbering their indices and
// offsets in order. The chunks, data included, are deep-copied.
func New(chunks ...*codec.Chunk) *Container {
	c := &Container{chunks: make([]*codec.Chunk, len(chunks))}
	pos := len(codec.Signature)
	for i, ch := range chunks {
		cp := ch.Clone()
		cp.Index = i
		cp.Offset = pos + 4
		pos += cp.Size()
		c.chunks[i] = cp
	}
	c.fileSize = pos
	return c
}

// Chunks returns the chunks in order. The slice is a copy; the chunks are
// shared and must not be modified.
func (c *Container) Chunks() []*codec.Chunk {
	out := make([]*codec.Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out
}

// Len returns the number of chunks.
func (c *Container) Len() int {
	return len(c.chunks)
}

// FileSize is the size of the decoded input. Informational only.
func (c *Container) FileSize() int {
	return c.fileSize
}

// Diagnostics reports which decoder produced the chunks and why.
func (c *Container) Diagnostics() Diagnostics {
	return c.diag
}

// Err returns ErrEmptyResult (wrapped) when heuristic recovery found fewer
// than two chunks, otherwise nil. Decoding itself still succeeded.
func (c *Container) Err() error {
	return c.diag.Sparse
}

// Criteria select chunks. At most one of Tags and Indices may be set;
// Limit <= 0 means no limit.
type Criteria struct {
	Tags    []codec.Tag
	Indices []int // record indices in decode order
	Limit   int
}

// Select returns a new container holding the chunks matching crit.
// Tag and unfiltered selections keep decode order; index selections are
// ascending regardless of the order given. The limit applies after
// filtering, by position.
func (c *Container) Select(crit Criteria) (*Container, error) {
	if len(crit.Tags) > 0 && len(crit.Indices) > 0 {
		return nil, ErrConflictingCriteria
	}

	keep := func(*codec.Chunk) bool { return true }
	switch {
	case len(crit.Tags) > 0:
		tags := make(map[codec.Tag]struct{}, len(crit.Tags))
		for _, t := range crit.Tags {
			tags[t] = struct{}{}
		}
		keep = func(ch *codec.Chunk) bool {
			_, ok := tags[ch.Type]
			return ok
		}
	case len(crit.Indices) > 0:
		indices := make(map[int]struct{}, len(crit.Indices))
		for _, i := range crit.Indices {
			indices[i] = struct{}{}
		}
		keep = func(ch *codec.Chunk) bool {
			_, ok := indices[ch.Index]
			return ok
		}
	}

	out := &Container{fileSize: c.fileSize, diag: c.diag}
	for _, ch := range c.chunks {
		if crit.Limit > 0 && len(out.chunks) >= crit.Limit {
			break
		}
		if keep(ch) {
			out.chunks = append(out.chunks, ch)
		}
	}

	return out, nil
}

// VerifyAll maps each record index to whether its CRC is valid.
func (c *Container) VerifyAll() map[int]bool {
	out := make(map[int]bool, len(c.chunks))
	for _, ch := range c.chunks {
		out[ch.Index] = codec.Verify(ch)
	}
	return out
}

// Invalid returns the chunks whose CRC does not verify.
func (c *Container) Invalid() []*codec.Chunk {
	var out []*codec.Chunk
	for _, ch := range c.chunks {
		if !codec.Verify(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// RepairAll returns a copy with every CRC recomputed, valid or not.
func (c *Container) RepairAll() *Container {
	out := &Container{
		chunks:   make([]*codec.Chunk, len(c.chunks)),
		fileSize: c.fileSize,
		diag:     c.diag,
	}
	for i, ch := range c.chunks {
		out.chunks[i] = codec.Repair(ch)
	}
	return out
}

// Render encodes the signature followed by every chunk in order.
func (c *Container) Render() []byte {
	size := len(codec.Signature)
	for _, ch := range c.chunks {
		size += ch.Size()
	}

	buf := make([]byte, 0, size)
	buf = append(buf, codec.Signature...)
	for _, ch := range c.chunks {
		buf = append(buf, ch.Serialize()...)
	}
	return buf
}

// Types returns the distinct chunk types in decode order of first appearance.
func (c *Container) Types() []codec.Tag {
	seen := make(map[codec.Tag]struct{}, len(c.chunks))
	var out []codec.Tag
	for _, ch := range c.chunks {
		if _, ok := seen[ch.Type]; ok {
			continue
		}
		seen[ch.Type] = struct{}{}
		out = append(out, ch.Type)
	}
	return out
}

// Extracted is a single serialized chunk
type Extracted struct {
	Name  string
	Index int
	Type  codec.Tag
	Data  []byte
}

// Extract serializes each chunk into its own buffer, named after its
// record index and type.
func (c *Container) Extract() []Extracted {
	out := make([]Extracted, len(c.chunks))
	for i, ch := range c.chunks {
		out[i] = Extracted{
			Name:  fmt.Sprintf("%03d_%s.chunk", ch.Index, safeName(ch.Type)),
			Index: ch.Index,
			Type:  ch.Type,
			Data:  ch.Serialize(),
		}
	}
	return out
}

// safeName keeps tag bytes usable in a file name.
func safeName(t codec.Tag) string {
	b := make([]byte, len(t))
	for i, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b[i] = r
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
