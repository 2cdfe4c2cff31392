package parser

import "fmt"

// DecodeError reports input that is malformed for its declared format. It is
// an expected outcome of decoding user uploads, not a fault.
type DecodeError struct {
	Format Format
	Offset int64 // byte offset of the failure, -1 when unknown
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s (offset %d)", e.Msg, e.Offset)
	}
	return e.Msg
}

// ValidationError reports input that decoded cleanly but has a shape the
// requested operation cannot handle.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
