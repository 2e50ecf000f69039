package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// IndexBlock is one decoded $INDEX_ALLOCATION node (an "INDX" block),
// holding the overflow of a directory's B+-tree that did not fit inline
// in $INDEX_ROOT.
type IndexBlock struct {
	VCN     uint64
	Entries []IndexEntry

	raw           []byte
	entriesEnd    int
	bytesInUse    int
}

// ParseIndexBlock decodes a single fixed-size INDX block. blockSize must
// equal the volume's index block size (from BootSector/IndexRoot); buf
// may be longer (callers typically hand it a whole cluster run slice).
func ParseIndexBlock(buf []byte, blockSize int) (*IndexBlock, error) {
	if len(buf) < blockSize || blockSize < 0x28 {
		return nil, fmt.Errorf("%w: index block shorter than declared size", ErrCorruptAttribute)
	}
	raw := buf[:blockSize]
	c := ntfscursor.New(raw)

	magic, err := c.FixedString(0x00, 4)
	if err != nil {
		return nil, err
	}
	if magic != "INDX" {
		return nil, fmt.Errorf("%w: index block has magic %q", ErrBadMagic, magic)
	}
	usaOffset, _ := c.Uint16(0x04)
	usaCount, _ := c.Uint16(0x06)

	fixed, err := applyFixup(raw, int(usaOffset), int(usaCount))
	if err != nil {
		return nil, err
	}
	fc := ntfscursor.New(fixed)

	vcn, _ := fc.Uint64(0x08)
	// INDEX_HEADER begins at 0x18.
	entriesOffset, err := fc.Uint32(0x18)
	if err != nil {
		return nil, err
	}
	indexSize, err := fc.Uint32(0x1C)
	if err != nil {
		return nil, err
	}
	allocSize, err := fc.Uint32(0x20)
	if err != nil {
		return nil, err
	}

	entriesStart := 0x18 + int(entriesOffset)
	entriesEnd := 0x18 + int(indexSize)
	entries, err := parseIndexEntries(fixed, entriesStart, entriesEnd)
	if err != nil {
		return nil, err
	}

	return &IndexBlock{
		VCN:        vcn,
		Entries:    entries,
		raw:        fixed,
		entriesEnd: entriesEnd,
		bytesInUse: 0x18 + int(allocSize),
	}, nil
}

// SlackEntries performs a best-effort scan of the index block's slack
// space (between the declared end of live entries and the allocated
// index size) for INDEX_ENTRY-shaped records left behind by deletion.
// It is never used by the normal Directory Resolver path: results are
// unverified and may be stale or partially overwritten. Decode errors
// simply stop the scan rather than propagating.
func (b *IndexBlock) SlackEntries() []IndexEntry {
	if b.entriesEnd >= b.bytesInUse {
		return nil
	}
	entries, err := parseIndexEntries(b.raw, b.entriesEnd, b.bytesInUse)
	if err != nil {
		return nil
	}
	return entries
}
