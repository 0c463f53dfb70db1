/*
Package cursor implements a bounds-checked little-endian reader over an
immutable byte slice.

Slices returned by Bytes alias the underlying buffer and are only valid for as
long as the buffer is.
*/
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnexpectedEOF is returned, wrapped in an *EOFError, when a read, skip or
// seek would move past the end of the buffer.
var ErrUnexpectedEOF = errors.New("cursor: unexpected end of data")

// EOFError describes a failed read.
type EOFError struct {
	Offset int // position at which the read was attempted
	Want   int // number of bytes requested
	Have   int // number of bytes remaining
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("cursor: unexpected end of data at offset %d: want %d bytes, have %d", e.Offset, e.Want, e.Have)
}

// Unwrap returns ErrUnexpectedEOF.
func (e *EOFError) Unwrap() error {
	return ErrUnexpectedEOF
}

// Cursor reads sequentially from a byte slice. The zero value reads from an
// empty buffer.
type Cursor struct {
	b   []byte
	off int
}

// New returns a Cursor positioned at the start of b.
func New(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Offset returns the absolute position of the next read.
func (c *Cursor) Offset() int { return c.off }

// Len returns the length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.b) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.b) - c.off }

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, &EOFError{Offset: c.off, Want: n, Have: c.Remaining()}
	}
	b := c.b[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a little-endian 16-bit value.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian 32-bit value.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Bytes returns the next n bytes without copying them. The returned slice
// has its capacity capped so appending to it never writes into the buffer.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

// Seek moves to the absolute position off. Seeking to Len() is allowed and
// leaves nothing to read.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.b) {
		return &EOFError{Offset: c.off, Want: off - c.off, Have: c.Remaining()}
	}
	c.off = off
	return nil
}
