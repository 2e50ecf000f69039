package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// Attribute type codes used by the resolver and extractor.
const (
	AttrTypeStandardInformation uint32 = 0x10
	AttrTypeAttributeList       uint32 = 0x20
	AttrTypeFileName            uint32 = 0x30
	AttrTypeData                uint32 = 0x80
	AttrTypeIndexRoot           uint32 = 0x90
	AttrTypeIndexAllocation     uint32 = 0xA0
	AttrTypeBitmap              uint32 = 0xB0
)

// Attribute is a decoded attribute header. Its value (resident bytes or
// non-resident run list) is accessible via ResidentData/DataRuns once
// Resident is known.
type Attribute struct {
	Type       uint32
	Length     uint32
	Resident   bool
	NameLength uint8
	Name       string
	Flags      uint16
	AttrID     uint16

	// Resident fields.
	residentValue []byte

	// Non-resident fields.
	StartVCN        uint64
	LastVCN         uint64
	AllocatedSize   uint64
	DataSize        uint64
	InitializedSize uint64
	CompressedSize  uint64
	runlistBytes    []byte
}

// ParseAttribute decodes a single attribute (header + value) from buf,
// which must contain exactly this attribute's bytes (split between
// resident and non-resident headers).
func ParseAttribute(buf []byte) (*Attribute, error) {
	c := ntfscursor.New(buf)

	a := &Attribute{}
	var err error
	a.Type, err = c.Uint32(0x00)
	if err != nil {
		return nil, err
	}
	a.Length, err = c.Uint32(0x04)
	if err != nil {
		return nil, err
	}
	nonResidentFlag, err := c.Uint8(0x08)
	if err != nil {
		return nil, err
	}
	a.Resident = nonResidentFlag == 0
	a.NameLength, err = c.Uint8(0x09)
	if err != nil {
		return nil, err
	}
	nameOffset, err := c.Uint16(0x0A)
	if err != nil {
		return nil, err
	}
	a.Flags, _ = c.Uint16(0x0C)
	a.AttrID, _ = c.Uint16(0x0E)

	if a.NameLength > 0 {
		a.Name, err = c.UTF16At(int(nameOffset), int(a.NameLength)*2)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute name: %v", ErrCorruptAttribute, err)
		}
	}

	if a.Resident {
		valueLen, err := c.Uint32(0x10)
		if err != nil {
			return nil, err
		}
		valueOffset, err := c.Uint16(0x14)
		if err != nil {
			return nil, err
		}
		a.residentValue, err = c.Slice(int(valueOffset), int(valueLen))
		if err != nil {
			return nil, fmt.Errorf("%w: resident value: %v", ErrCorruptAttribute, err)
		}
		return a, nil
	}

	a.StartVCN, _ = c.Uint64(0x10)
	a.LastVCN, _ = c.Uint64(0x18)
	runlistOffset, err := c.Uint16(0x20)
	if err != nil {
		return nil, err
	}
	a.AllocatedSize, _ = c.Uint64(0x28)
	a.DataSize, _ = c.Uint64(0x30)
	a.InitializedSize, _ = c.Uint64(0x38)
	const attrFlagCompressed = 0x0001
	if a.Flags&attrFlagCompressed != 0 {
		a.CompressedSize, _ = c.Uint64(0x40)
	}
	if int(runlistOffset) > len(buf) {
		return nil, fmt.Errorf("%w: runlist offset %d exceeds attribute length %d", ErrCorruptAttribute, runlistOffset, len(buf))
	}
	a.runlistBytes = buf[runlistOffset:]

	return a, nil
}

// ResidentData returns the resident value bytes. It is only valid when
// Resident is true.
func (a *Attribute) ResidentData() []byte {
	return a.residentValue
}

// DataRuns decodes this non-resident attribute's mapping pairs into a
// Runlist. It is only valid when Resident is false.
func (a *Attribute) DataRuns() (Runlist, error) {
	return ParseRunlist(a.runlistBytes)
}
