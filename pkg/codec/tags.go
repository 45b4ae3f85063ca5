package codec

import "fmt"

// Tag is the 4-byte ASCII chunk type code.
type Tag [4]byte

// Well-known tags referenced directly by the decoders.
var (
	TagIHDR = Tag{'I', 'H', 'D', 'R'}
	TagIEND = Tag{'I', 'E', 'N', 'D'}
	TagTEXT = Tag{'t', 'E', 'X', 't'}
	TagZTXT = Tag{'z', 'T', 'X', 't'}
	TagITXT = Tag{'i', 'T', 'X', 't'}
)

// knownTags is the closed vocabulary recognized by both decoders, in scan
// priority order. It is never modified after package initialization.
var knownTags = [...]Tag{
	TagIHDR,
	TagTEXT,
	TagZTXT,
	TagITXT,
	{'t', 'R', 'N', 'S'},
	{'c', 'H', 'R', 'M'},
	{'g', 'A', 'M', 'A'},
	{'i', 'C', 'C', 'P'},
	{'s', 'R', 'G', 'B'},
	{'b', 'K', 'G', 'D'},
	{'p', 'H', 'Y', 's'},
	{'h', 'I', 'S', 'T'},
	{'s', 'P', 'L', 'T'},
	{'s', 'B', 'I', 'T'},
	{'f', 'c', 'T', 'L'}, // APNG
	{'a', 'c', 'T', 'L'}, // APNG
	{'f', 'd', 'A', 'T'}, // APNG
	{'t', 'I', 'M', 'E'},
	{'P', 'L', 'T', 'E'},
	{'o', 'F', 'F', 's'},
	{'p', 'C', 'A', 'L'},
	{'s', 'C', 'A', 'L'},
	{'s', 'T', 'E', 'R'},
	{'f', 'R', 'A', 'c'},
	{'I', 'D', 'A', 'T'},
	TagIEND,
}

var knownSet = func() map[Tag]struct{} {
	m := make(map[Tag]struct{}, len(knownTags))
	for _, t := range knownTags {
		m[t] = struct{}{}
	}
	return m
}()

// KnownTags returns a copy of the recognized tag vocabulary.
func KnownTags() []Tag {
	out := make([]Tag, len(knownTags))
	copy(out, knownTags[:])
	return out
}

// Known reports whether t belongs to the recognized vocabulary.
func (t Tag) Known() bool {
	_, ok := knownSet[t]
	return ok
}

// String returns the tag as text.
func (t Tag) String() string {
	return string(t[:])
}

// MarshalText implements encoding.TextMarshaler so tags render as text in JSON.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTag converts a 4-character string into a Tag. Case is significant.
func ParseTag(s string) (Tag, error) {
	var t Tag
	if len(s) != len(t) {
		return t, fmt.Errorf("%w: %q must be exactly 4 bytes", ErrUnknownTag, s)
	}
	copy(t[:], s)
	return t, nil
}

// MatchTag returns the known tag starting at b[0:4], if any.
func MatchTag(b []byte) (Tag, bool) {
	var t Tag
	if len(b) < len(t) {
		return t, false
	}
	copy(t[:], b)
	return t, t.Known()
}
