package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// RecordFlag is the MFT record header's Flags field.
type RecordFlag uint16

const (
	RecordFlagInUse       RecordFlag = 0x0001
	RecordFlagIsDirectory RecordFlag = 0x0002
)

// Is reports whether f has all bits of c set.
func (f RecordFlag) Is(c RecordFlag) bool {
	return f&c == c
}

// FileReference packs an MFT record number (low 48 bits) and sequence
// number (high 16 bits), as used for base_record, parent references and
// index entries.
type FileReference uint64

// RecordNumber returns the low 48 bits (MREF).
func (r FileReference) RecordNumber() uint64 {
	return uint64(r) & 0x0000FFFFFFFFFFFF
}

// SequenceNumber returns the high 16 bits (MSEQNO).
func (r FileReference) SequenceNumber() uint16 {
	return uint16(uint64(r) >> 48)
}

// Record is a decoded MFT record header plus its raw, fixed-up attribute
// region. Attribute values are parsed lazily via Attributes().
type Record struct {
	Magic         string
	SequenceNumber uint16
	Flags         RecordFlag
	BytesInUse    uint32
	BytesAllocated uint32
	BaseRecord    FileReference
	AttrsOffset   uint16
	RecordNumber  uint64

	buf []byte // fixed-up record bytes, owned by this Record
}

// ParseRecord decodes a single MFT-record-sized buffer. It applies fixup
// using the header's own usa_offset/usa_count and validates the "FILE"
// magic. A "BAAD" magic (torn record) is reported via ErrBadMagic too;
// callers treat both as fatal to this one record.
func ParseRecord(raw []byte, recordNumber uint64) (*Record, error) {
	if len(raw) < 48 {
		return nil, fmt.Errorf("%w: record shorter than header", ErrBadMagic)
	}
	c := ntfscursor.New(raw)

	magic, err := c.FixedString(0, 4)
	if err != nil {
		return nil, err
	}
	if magic != "FILE" {
		return nil, fmt.Errorf("%w: record %d has magic %q", ErrBadMagic, recordNumber, magic)
	}

	usaOffset, _ := c.Uint16(0x04)
	usaCount, _ := c.Uint16(0x06)

	fixed, err := applyFixup(raw, int(usaOffset), int(usaCount))
	if err != nil {
		return nil, err
	}

	fc := ntfscursor.New(fixed)
	r := &Record{Magic: magic, buf: fixed, RecordNumber: recordNumber}
	r.SequenceNumber, _ = fc.Uint16(0x10)
	flags, _ := fc.Uint16(0x16)
	r.Flags = RecordFlag(flags)
	r.BytesInUse, _ = fc.Uint32(0x18)
	r.BytesAllocated, _ = fc.Uint32(0x1C)
	baseRef, _ := fc.Uint64(0x20)
	r.BaseRecord = FileReference(baseRef)
	r.AttrsOffset, _ = fc.Uint16(0x14)

	if uint32(r.AttrsOffset) > r.BytesInUse || r.BytesInUse > uint32(len(fixed)) {
		return nil, fmt.Errorf("%w: record %d has inconsistent bytes_in_use/attrs_offset", ErrCorruptAttribute, recordNumber)
	}

	return r, nil
}

// IsInUse reports whether the IN_USE flag is set.
func (r *Record) IsInUse() bool {
	return r.Flags.Is(RecordFlagInUse)
}

// IsDirectory reports whether the IS_DIRECTORY flag is set.
func (r *Record) IsDirectory() bool {
	return r.Flags.Is(RecordFlagIsDirectory)
}

// IsBaseRecord reports whether this record is a primary record (not an
// extension record referenced via an ATTRIBUTE_LIST).
func (r *Record) IsBaseRecord() bool {
	return r.BaseRecord.RecordNumber() == 0
}

// Attributes walks and decodes every attribute in the record, in on-disk
// order, stopping at the 0x00/0xFFFFFFFF terminator or bytes_in_use,
// whichever comes first.
func (r *Record) Attributes() ([]*Attribute, error) {
	var attrs []*Attribute
	offset := int(r.AttrsOffset)
	limit := int(r.BytesInUse)
	c := ntfscursor.New(r.buf)

	for offset+8 <= limit {
		typ, err := c.Uint32(offset)
		if err != nil {
			return nil, err
		}
		if typ == 0 || typ == 0xFFFFFFFF {
			break
		}
		size, err := c.Uint32(offset + 4)
		if err != nil {
			return nil, err
		}
		if size == 0 || offset+int(size) > len(r.buf) || offset+int(size) > limit {
			return nil, fmt.Errorf("%w: attribute at %d has invalid size %d", ErrCorruptAttribute, offset, size)
		}
		attrBuf, err := c.Slice(offset, int(size))
		if err != nil {
			return nil, err
		}
		attr, err := ParseAttribute(attrBuf)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
		offset += int(size)
	}
	return attrs, nil
}

// FindAttributes returns every attribute of the given type, in record
// order. An empty (not nil) slice is returned when none match.
func (r *Record) FindAttributes(attrType uint32) ([]*Attribute, error) {
	all, err := r.Attributes()
	if err != nil {
		return nil, err
	}
	out := make([]*Attribute, 0)
	for _, a := range all {
		if a.Type == attrType {
			out = append(out, a)
		}
	}
	return out, nil
}

// Attribute returns the first attribute of the given type, whatever its
// name, or ErrAttributeNotFound.
func (r *Record) Attribute(attrType uint32) (*Attribute, error) {
	all, err := r.FindAttributes(attrType)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: type 0x%X", ErrAttributeNotFound, attrType)
	}
	return all[0], nil
}
