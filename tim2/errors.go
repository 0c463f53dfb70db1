package tim2

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by Decode matches exactly one of these
// with errors.Is.
var (
	ErrUnexpectedEOF   = errors.New("tim2: unexpected end of data")
	ErrInvalidMagic    = errors.New("tim2: invalid magic")
	ErrInvalidHeader   = errors.New("tim2: invalid header")
	ErrTruncatedFrame  = errors.New("tim2: truncated frame")
	ErrIndexOutOfRange = errors.New("tim2: index out of range")
)

var errNoFrames = errors.New("tim2: image has no frames")

// FormatError reports a structural problem with the input.
type FormatError struct {
	Kind   error  // one of the Err* kinds
	Frame  int    // frame index, or -1 for the file header
	Offset int    // absolute offset of the offending field
	Field  string // name of the offending field, if any
	Reason string
	Err    error // underlying cause, if any
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Frame >= 0 {
		fmt.Fprintf(&b, ": frame %d", e.Frame)
	} else {
		b.WriteString(": file header")
	}
	fmt.Fprintf(&b, " at offset %d", e.Offset)
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// Is reports whether target is the kind of e.
func (e *FormatError) Is(target error) bool {
	return target == e.Kind
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IndexError is returned when a frame or mipmap level is requested that does
// not exist.
type IndexError struct {
	What  string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("tim2: %s index %d out of range [0, %d)", e.What, e.Index, e.Len)
}

// Unwrap returns ErrIndexOutOfRange.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
