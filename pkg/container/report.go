package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ssargent/pchunk/pkg/codec"
)

// DefaultTextBudget caps the decoded text held by one report, summed over
// every text chunk.
const DefaultTextBudget = 1 << 20

var (
	errMalformedText = errors.New("malformed text chunk")

	// ErrTextBudget is reported for a text chunk whose decoded value does not
	// fit in what remains of the report's text budget.
	ErrTextBudget = errors.New("text exceeds report budget")
)

// ReportOptions controls the optional parts of a report
type ReportOptions struct {
	// Text decodes tEXt, zTXt and iTXt chunks into Row.Text.
	Text bool
	// TextBudget bounds the decoded text of the whole report in bytes;
	// <= 0 means DefaultTextBudget.
	TextBudget int
}

// Row is the report line for one chunk
type Row struct {
	Index      int       `json:"index"`
	Type       codec.Tag `json:"type"`
	Known      bool      `json:"known"`
	Offset     int       `json:"offset"`
	Length     uint32    `json:"length"`
	DataLength int       `json:"data_length"`
	CRC        uint32    `json:"crc"`
	Expected   uint32    `json:"expected_crc"`
	Valid      bool      `json:"valid"`
	Text       *Text     `json:"text,omitempty"`
	TextError  string    `json:"text_error,omitempty"`
}

// Summary aggregates a report
type Summary struct {
	Strategy string `json:"strategy"`
	Fallback string `json:"fallback,omitempty"`
	Warning  string `json:"warning,omitempty"`
	FileSize int    `json:"file_size"`
	Chunks   int    `json:"chunks"`
	Invalid  int    `json:"invalid"`
}

// Report describes every chunk in order without decoding text.
func (c *Container) Report() []Row {
	return c.ReportWith(ReportOptions{})
}

// ReportWith describes every chunk in order. With opts.Text set, text chunks
// are decoded until the shared budget is spent; later ones carry
// ErrTextBudget in TextError.
func (c *Container) ReportWith(opts ReportOptions) []Row {
	budget := opts.TextBudget
	if budget <= 0 {
		budget = DefaultTextBudget
	}

	rows := make([]Row, len(c.chunks))
	for i, ch := range c.chunks {
		expected := codec.Checksum(ch.Type, ch.Data)
		rows[i] = Row{
			Index:      ch.Index,
			Type:       ch.Type,
			Known:      ch.Type.Known(),
			Offset:     ch.Offset,
			Length:     ch.Length,
			DataLength: len(ch.Data),
			CRC:        ch.CRC,
			Expected:   expected,
			Valid:      expected == ch.CRC,
		}
		if !opts.Text {
			continue
		}

		text, err := parseText(ch, budget)
		if err != nil {
			rows[i].TextError = err.Error()
			continue
		}
		if text != nil {
			budget -= text.size()
		}
		rows[i].Text = text
	}
	return rows
}

// Summary returns counts and decode diagnostics.
func (c *Container) Summary() Summary {
	s := Summary{
		Strategy: c.diag.Strategy.String(),
		FileSize: c.fileSize,
		Chunks:   len(c.chunks),
		Invalid:  len(c.Invalid()),
	}
	if c.diag.Rejected != nil {
		s.Fallback = c.diag.Rejected.Error()
	}
	if c.diag.Sparse != nil {
		s.Warning = c.diag.Sparse.Error()
	}
	return s
}

// Text is the decoded content of a tEXt, zTXt or iTXt chunk
type Text struct {
	Keyword    string `json:"keyword"`
	Language   string `json:"language,omitempty"`
	Translated string `json:"translated,omitempty"`
	Value      string `json:"value"`
	Compressed bool   `json:"compressed,omitempty"`
}

func (t *Text) size() int {
	return len(t.Keyword) + len(t.Language) + len(t.Translated) + len(t.Value)
}

// ParseText decodes textual metadata, allowing up to DefaultTextBudget bytes
// of text. It returns nil, nil for other chunk types.
func ParseText(ch *codec.Chunk) (*Text, error) {
	return parseText(ch, DefaultTextBudget)
}

// parseText decodes ch, failing with ErrTextBudget when the decoded text
// would exceed limit bytes.
func parseText(ch *codec.Chunk, limit int) (*Text, error) {
	t, err := decodeText(ch, limit)
	if err != nil || t == nil {
		return t, err
	}
	if t.size() > limit {
		return nil, fmt.Errorf("%s %q: %w", ch.Type, t.Keyword, ErrTextBudget)
	}
	return t, nil
}

func decodeText(ch *codec.Chunk, limit int) (*Text, error) {
	switch ch.Type {
	case codec.TagTEXT:
		keyword, rest, ok := bytes.Cut(ch.Data, []byte{0})
		if !ok {
			return nil, fmt.Errorf("%w: tEXt missing keyword separator", errMalformedText)
		}
		return &Text{Keyword: string(keyword), Value: string(rest)}, nil

	case codec.TagZTXT:
		keyword, rest, ok := bytes.Cut(ch.Data, []byte{0})
		if !ok || len(rest) < 1 {
			return nil, fmt.Errorf("%w: zTXt header", errMalformedText)
		}
		value, err := inflate(rest[1:], limit)
		if err != nil {
			return nil, fmt.Errorf("zTXt %q: %w", keyword, err)
		}
		return &Text{Keyword: string(keyword), Value: value, Compressed: true}, nil

	case codec.TagITXT:
		return parseITXT(ch.Data, limit)
	}

	return nil, nil
}

// iTXt: keyword\0 flag(1) method(1) language\0 translated\0 text
func parseITXT(data []byte, limit int) (*Text, error) {
	keyword, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 2 {
		return nil, fmt.Errorf("%w: iTXt header", errMalformedText)
	}
	compressed := rest[0] == 1
	rest = rest[2:]

	lang, rest, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return nil, fmt.Errorf("%w: iTXt language tag", errMalformedText)
	}
	translated, rest, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return nil, fmt.Errorf("%w: iTXt translated keyword", errMalformedText)
	}

	t := &Text{
		Keyword:    string(keyword),
		Language:   string(lang),
		Translated: string(translated),
		Value:      string(rest),
		Compressed: compressed,
	}
	if compressed {
		value, err := inflate(rest, limit)
		if err != nil {
			return nil, fmt.Errorf("iTXt %q: %w", keyword, err)
		}
		t.Value = value
	}
	return t, nil
}

// inflate expands b, reading at most one byte past limit so oversized
// streams are detected without being held.
func inflate(b []byte, limit int) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
	if err != nil {
		return "", err
	}
	if len(out) > limit {
		return "", ErrTextBudget
	}
	return string(out), nil
}
