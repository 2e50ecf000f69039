package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// BootSector is the decoded NTFS boot sector (offset 0 of the volume).
type BootSector struct {
	BytesPerSector       uint16
	SectorsPerCluster    uint8
	MFTStartCluster      uint64
	MFTMirrCluster       uint64
	FileRecordIndicator  int8
	IndexRecordIndicator int8

	BytesPerCluster int64
	MFTRecordSize   int64
	IndexRecordSize int64
}

// ParseBootSector decodes buf (the volume's first 512 bytes) into a
// BootSector. It validates the "NTFS    " OEM id and derives the cluster
// and MFT record sizes.
func ParseBootSector(buf []byte) (*BootSector, error) {
	if len(buf) < 512 {
		return nil, fmt.Errorf("%w: boot sector shorter than 512 bytes", ErrBadMagic)
	}
	c := ntfscursor.New(buf)

	oem, err := c.FixedString(3, 8)
	if err != nil {
		return nil, err
	}
	if oem != "NTFS    " {
		return nil, fmt.Errorf("%w: OEM id %q is not NTFS", ErrBadMagic, oem)
	}

	bs := &BootSector{}
	v16, _ := c.Uint16(0x0B)
	bs.BytesPerSector = v16
	v8, _ := c.Uint8(0x0D)
	bs.SectorsPerCluster = v8
	bs.MFTStartCluster, _ = c.Uint64(0x30)
	bs.MFTMirrCluster, _ = c.Uint64(0x38)
	fri, _ := c.Int8(0x40)
	bs.FileRecordIndicator = fri
	iri, _ := c.Int8(0x44)
	bs.IndexRecordIndicator = iri

	if bs.BytesPerSector == 0 || bs.SectorsPerCluster == 0 {
		return nil, fmt.Errorf("%w: zero bytes-per-sector or sectors-per-cluster", ErrCorruptAttribute)
	}
	bs.BytesPerCluster = int64(bs.BytesPerSector) * int64(bs.SectorsPerCluster)

	bs.MFTRecordSize = recordSizeFromIndicator(bs.FileRecordIndicator, bs.BytesPerCluster)
	bs.IndexRecordSize = recordSizeFromIndicator(bs.IndexRecordIndicator, bs.BytesPerCluster)

	if bs.MFTRecordSize%int64(bs.BytesPerSector) != 0 {
		return nil, fmt.Errorf("%w: mft record size %d not a multiple of sector size %d",
			ErrCorruptAttribute, bs.MFTRecordSize, bs.BytesPerSector)
	}

	return bs, nil
}

// recordSizeFromIndicator implements the rule that if the indicator byte (read
// as signed) is negative, the record size is 2^|v| bytes; otherwise it is
// v clusters.
func recordSizeFromIndicator(v int8, bytesPerCluster int64) int64 {
	if v < 0 {
		return int64(1) << uint(-v)
	}
	return int64(v) * bytesPerCluster
}
