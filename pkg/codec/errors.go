package codec

import "fmt"

// Errors
var (
	ErrBadSignature       = &DecodeError{"invalid PNG signature"}
	ErrTruncated          = &DecodeError{"chunk extends past end of buffer"}
	ErrUnknownTerminalTag = &DecodeError{"terminal chunk has unknown type"}
	ErrChecksumMismatch   = &DecodeError{"chunk CRC mismatch"}
	ErrEmptyResult        = &DecodeError{"fewer than two recognizable chunks"}
	ErrUnknownTag         = &DecodeError{"invalid chunk type"}
)

// DecodeError represents a structural problem found while decoding a container
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// ChecksumError describes a CRC mismatch on a single chunk
type ChecksumError struct {
	Type     Tag
	Expected uint32 // recomputed from type and data
	Actual   uint32 // stored in the chunk
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: %s: expected %08x, got %08x", ErrChecksumMismatch, e.Type, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}
