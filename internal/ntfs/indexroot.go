package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// IndexEntry is one entry of a directory index, found either inline in
// $INDEX_ROOT or inside an $INDEX_ALLOCATION INDX block.
// SubNodeVCN is valid only when HasSubNode is true.
type IndexEntry struct {
	FileReference FileReference
	FileName      *FileNameAttr
	HasSubNode    bool
	SubNodeVCN    uint64
	IsLast        bool
}

// IndexRoot is the decoded value of a resident $INDEX_ROOT ($90)
// attribute: a B+-tree node small enough to fit in the MFT record itself,
// plus the parameters needed to read any $INDEX_ALLOCATION overflow.
type IndexRoot struct {
	AttrType        uint32
	CollationRule    uint32
	IndexBlockSize   uint32
	ClustersPerIndexBlock uint8
	Entries          []IndexEntry
}

// ParseIndexRoot decodes a resident $INDEX_ROOT attribute value. Only
// filename-collated ($30, COLLATION_FILE_NAME) indexes are meaningful to
// the Directory Resolver; other collation rules are decoded but their
// entries' FileName will be nil.
func ParseIndexRoot(buf []byte) (*IndexRoot, error) {
	if len(buf) < 0x20 {
		return nil, fmt.Errorf("%w: index root shorter than header", ErrCorruptAttribute)
	}
	c := ntfscursor.New(buf)

	ir := &IndexRoot{}
	var err error
	ir.AttrType, err = c.Uint32(0x00)
	if err != nil {
		return nil, err
	}
	ir.CollationRule, _ = c.Uint32(0x04)
	ir.IndexBlockSize, _ = c.Uint32(0x08)
	cpib, _ := c.Int8(0x0C)
	ir.ClustersPerIndexBlock = uint8(cpib)

	// INDEX_HEADER begins at 0x10.
	entriesOffset, err := c.Uint32(0x10)
	if err != nil {
		return nil, err
	}
	indexSize, err := c.Uint32(0x14)
	if err != nil {
		return nil, err
	}

	entries, err := parseIndexEntries(buf, int(0x10+entriesOffset), int(0x10+indexSize))
	if err != nil {
		return nil, err
	}
	ir.Entries = entries

	return ir, nil
}

// parseIndexEntries walks INDEX_ENTRY records between [start, end) in
// buf, applying the permissive terminator rule: an entry whose length is
// one of the two known fixed-header sizes (0x10 or 0x18), or zero, and
// whose record number (low 48 bits of the file reference) is zero ends
// the list, whether or not the
// LAST_ENTRY flag is set. This matches both terminator shapes the
// reference Python implementation accepts.
func parseIndexEntries(buf []byte, start, end int) ([]IndexEntry, error) {
	var entries []IndexEntry
	if start < 0 || end > len(buf) || start > end {
		return nil, fmt.Errorf("%w: index entries region [%d,%d) invalid for buffer %d", ErrCorruptAttribute, start, end, len(buf))
	}
	c := ntfscursor.New(buf)
	offset := start

	for offset+0x10 <= end {
		fileRef, err := c.Uint64(offset + 0x00)
		if err != nil {
			return nil, err
		}
		entryLen, err := c.Uint16(offset + 0x08)
		if err != nil {
			return nil, err
		}
		keyLen, _ := c.Uint16(offset + 0x0A)
		flags, _ := c.Uint16(offset + 0x0C)

		const indexEntryFlagSubNode = 0x0001
		const indexEntryFlagLast = 0x0002

		isTerminator := FileReference(fileRef).RecordNumber() == 0 && (entryLen == 0x10 || entryLen == 0x18 || entryLen == 0)
		entry := IndexEntry{
			FileReference: FileReference(fileRef),
			HasSubNode:    flags&indexEntryFlagSubNode != 0,
			IsLast:        flags&indexEntryFlagLast != 0 || isTerminator,
		}

		if !isTerminator && keyLen > 0 {
			fn, err := ParseFileNameAttr(buf[offset+0x10 : offset+0x10+int(keyLen)])
			if err == nil {
				entry.FileName = fn
			}
		}

		if entry.HasSubNode {
			if entryLen < 8 {
				return nil, fmt.Errorf("%w: index entry too short for sub-node pointer", ErrCorruptAttribute)
			}
			vcnOffset := offset + int(entryLen) - 8
			entry.SubNodeVCN, _ = c.Uint64(vcnOffset)
		}

		if !isTerminator {
			entries = append(entries, entry)
		}
		if isTerminator || entry.IsLast {
			break
		}
		if entryLen == 0 {
			break
		}
		offset += int(entryLen)
	}

	return entries, nil
}
