package packet

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

var (
	// ErrTruncated is returned when the frame is too short for a required header.
	ErrTruncated = xerrors.New("truncated frame")
	// ErrUnsupported is returned for an ethertype or header the parser does not handle.
	ErrUnsupported = xerrors.New("unsupported protocol")
)

// Cursor is a bounds-checked reader over one frame. Every header access of the parser goes
// through ReadN, so nothing outside [0, Len()) is ever touched.
type Cursor struct {
	data   []byte
	offset int
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

func (c *Cursor) Len() int {
	return len(c.data)
}

func (c *Cursor) Offset() int {
	return c.offset
}

// ReadN returns n bytes starting at offset if offset+n <= Len().
func (c *Cursor) ReadN(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset > len(c.data) || n > len(c.data)-offset {
		return nil, xerrors.Errorf("read %d bytes at %d of %d: %w", n, offset, len(c.data), ErrTruncated)
	}
	return c.data[offset : offset+n], nil
}

// Next reads n bytes at the current offset and advances past them on success.
func (c *Cursor) Next(n int) ([]byte, error) {
	b, err := c.ReadN(c.offset, n)
	if err != nil {
		return nil, err
	}
	c.offset += n
	return b, nil
}

func (c *Cursor) Uint8(offset int) (uint8, error) {
	b, err := c.ReadN(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a big endian uint16.
func (c *Cursor) Uint16(offset int) (uint16, error) {
	b, err := c.ReadN(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}
