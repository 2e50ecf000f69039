package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// AttributeListEntry is one entry of an $ATTRIBUTE_LIST ($20) attribute,
// pointing at an attribute that may live in an extension record.
type AttributeListEntry struct {
	Type      uint32
	StartVCN  uint64
	BaseRecord FileReference
	AttrID    uint16
	Name      string
}

// ParseAttributeList decodes the resident value of an $ATTRIBUTE_LIST
// attribute into its entries. An entry's name is decoded when its
// name-length byte (offset 0x06) is non-zero.
func ParseAttributeList(buf []byte) ([]AttributeListEntry, error) {
	var entries []AttributeListEntry
	offset := 0

	for offset+8 <= len(buf) {
		c := ntfscursor.New(buf)
		entryLen, err := c.Uint16(offset + 0x04)
		if err != nil {
			return nil, err
		}
		if entryLen == 0 {
			break
		}
		if offset+int(entryLen) > len(buf) {
			return nil, fmt.Errorf("%w: attribute list entry at %d exceeds buffer", ErrCorruptAttribute, offset)
		}

		entry := AttributeListEntry{}
		entry.Type, _ = c.Uint32(offset + 0x00)
		nameLength, _ := c.Uint8(offset + 0x06)
		nameOffset, _ := c.Uint8(offset + 0x07)
		entry.StartVCN, _ = c.Uint64(offset + 0x08)
		baseRef, _ := c.Uint64(offset + 0x10)
		entry.BaseRecord = FileReference(baseRef)
		entry.AttrID, _ = c.Uint16(offset + 0x18)

		if nameLength > 0 {
			entry.Name, err = c.UTF16At(offset+int(nameOffset), int(nameLength)*2)
			if err != nil {
				return nil, fmt.Errorf("%w: attribute list entry name: %v", ErrCorruptAttribute, err)
			}
		}

		entries = append(entries, entry)
		offset += int(entryLen)
	}

	return entries, nil
}
