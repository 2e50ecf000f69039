// Package ntfscursor provides a bounds-checked little-endian reader over a
// byte slice, used by every NTFS on-disk structure decoder.
package ntfscursor

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"
)

// ErrOverrun is returned when a read would step outside the cursor's buffer.
var ErrOverrun = fmt.Errorf("ntfscursor: read past end of buffer")

// Cursor reads fixed-width little-endian fields from a fixed byte slice. It
// never mutates the underlying buffer and never allocates unless asked to
// (UTF16At, FixedString).
type Cursor struct {
	buf []byte
}

// New wraps buf. The Cursor borrows buf; it does not copy it.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Bytes returns the raw slice backing the cursor.
func (c *Cursor) Bytes() []byte {
	return c.buf
}

func (c *Cursor) require(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(c.buf) {
		return fmt.Errorf("%w: offset %d size %d buffer %d", ErrOverrun, offset, size, len(c.buf))
	}
	return nil
}

// Uint8 reads a single byte at offset.
func (c *Cursor) Uint8(offset int) (uint8, error) {
	if err := c.require(offset, 1); err != nil {
		return 0, err
	}
	return c.buf[offset], nil
}

// Uint16 reads a little-endian uint16 at offset.
func (c *Cursor) Uint16(offset int) (uint16, error) {
	if err := c.require(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.buf[offset:]), nil
}

// Uint32 reads a little-endian uint32 at offset.
func (c *Cursor) Uint32(offset int) (uint32, error) {
	if err := c.require(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.buf[offset:]), nil
}

// Uint64 reads a little-endian uint64 at offset.
func (c *Cursor) Uint64(offset int) (uint64, error) {
	if err := c.require(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.buf[offset:]), nil
}

// Int8 reads a signed byte at offset.
func (c *Cursor) Int8(offset int) (int8, error) {
	v, err := c.Uint8(offset)
	return int8(v), err
}

// Slice returns a borrowed sub-slice [offset, offset+length).
func (c *Cursor) Slice(offset, length int) ([]byte, error) {
	if err := c.require(offset, length); err != nil {
		return nil, err
	}
	return c.buf[offset : offset+length], nil
}

// FixedString reads a fixed-width byte run and returns it verbatim (callers
// decide ASCII vs. OEM interpretation; used for magic signatures).
func (c *Cursor) FixedString(offset, length int) (string, error) {
	b, err := c.Slice(offset, length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UTF16At decodes a little-endian UTF-16 run of byteLen bytes (byteLen/2
// code units) starting at offset into a Go string.
func (c *Cursor) UTF16At(offset, byteLen int) (string, error) {
	b, err := c.Slice(offset, byteLen)
	if err != nil {
		return "", err
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units)), nil
}

// ntfsEpoch is 1601-01-01 00:00:00 UTC, the origin of NTFS FILETIME values.
var ntfsEpoch = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

// FILETIME reads an NTFS FILETIME (100ns ticks since 1601-01-01) at offset
// and returns it as a UTC time.Time.
func (c *Cursor) FILETIME(offset int) (time.Time, error) {
	ticks, err := c.Uint64(offset)
	if err != nil {
		return time.Time{}, err
	}
	return ntfsEpoch.Add(time.Duration(ticks) * 100), nil
}
