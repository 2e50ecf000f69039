package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/disk"
)

// Volume ties together a raw device reader, its decoded boot sector and
// an MFT Locator, and is the base every higher-level operation (Directory
// Resolver, File Extractor, Resolver Driver) reads through.
type Volume struct {
	reader *disk.Reader
	boot   *BootSector
	locator *Locator
}

// OpenVolume opens path as a raw device/image, parses its boot sector and
// bootstraps an MFT Locator from $MFT's own data runs (the
// bootstrap record is read directly at MFTStartCluster before any
// locator exists).
func OpenVolume(path string) (*Volume, error) {
	reader, err := disk.Open(path)
	if err != nil {
		return nil, err
	}

	bootBuf := make([]byte, 512)
	if _, err := reader.ReadAt(bootBuf, 0); err != nil {
		reader.Close()
		return nil, fmt.Errorf("%w: reading boot sector: %v", ErrExtractIO, err)
	}
	boot, err := ParseBootSector(bootBuf)
	if err != nil {
		reader.Close()
		return nil, err
	}

	mftOffset := int64(boot.MFTStartCluster) * boot.BytesPerCluster
	mftRecordBuf := make([]byte, boot.MFTRecordSize)
	if _, err := reader.ReadAt(mftRecordBuf, mftOffset); err != nil {
		reader.Close()
		return nil, fmt.Errorf("%w: reading bootstrap $MFT record: %v", ErrExtractIO, err)
	}
	mftRecord, err := ParseRecord(mftRecordBuf, RecordNumberMFT)
	if err != nil {
		reader.Close()
		return nil, err
	}
	dataAttr, err := mftRecord.Attribute(AttrTypeData)
	if err != nil {
		reader.Close()
		return nil, err
	}
	var mftRuns Runlist
	if dataAttr.Resident {
		reader.Close()
		return nil, fmt.Errorf("%w: $MFT's own $DATA attribute is resident", ErrCorruptAttribute)
	}
	mftRuns, err = dataAttr.DataRuns()
	if err != nil {
		reader.Close()
		return nil, err
	}

	locator, err := NewLocator(mftRuns, boot.BytesPerCluster, boot.MFTRecordSize)
	if err != nil {
		reader.Close()
		return nil, err
	}

	return &Volume{reader: reader, boot: boot, locator: locator}, nil
}

// Close releases the underlying device handle.
func (v *Volume) Close() error {
	return v.reader.Close()
}

// BootSector returns the volume's decoded boot sector.
func (v *Volume) BootSector() *BootSector {
	return v.boot
}

// ReadRecord reads and decodes the MFT record at recordNumber, assembling
// split records from their two constituent ranges when necessary.
func (v *Volume) ReadRecord(recordNumber uint64) (*Record, error) {
	ranges, err := v.locator.Offsets(recordNumber)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, v.boot.MFTRecordSize)
	pos := 0
	for _, rng := range ranges {
		if _, err := v.reader.ReadAt(buf[pos:pos+int(rng.Length)], rng.Offset); err != nil {
			return nil, fmt.Errorf("%w: reading record %d: %v", ErrExtractIO, recordNumber, err)
		}
		pos += int(rng.Length)
	}

	return ParseRecord(buf, recordNumber)
}

// ReadClusters reads count clusters starting at an absolute logical
// cluster number.
func (v *Volume) ReadClusters(lcn int64, count int64) ([]byte, error) {
	buf := make([]byte, count*v.boot.BytesPerCluster)
	_, err := v.reader.ReadAt(buf, lcn*v.boot.BytesPerCluster)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %d clusters at lcn %d: %v", ErrExtractIO, count, lcn, err)
	}
	return buf, nil
}

// recordStillInUse reports whether recordNumber currently names an
// in-use MFT record, the cheap check a cached path→record lookup needs
// before being trusted: an MFT record number is reused once its file is
// deleted, so a cache entry pointing at a now-freed or reallocated
// record is stale and must be re-resolved rather than returned.
func (v *Volume) recordStillInUse(recordNumber uint64) bool {
	record, err := v.ReadRecord(recordNumber)
	if err != nil {
		return false
	}
	return record.IsInUse()
}

// resolveRecordAttributes returns the full attribute set of recordNumber,
// following any $ATTRIBUTE_LIST into extension records. The base
// record's own attributes come first, in their on-disk order, followed by
// extension-record attributes in attribute-list order.
func (v *Volume) resolveRecordAttributes(record *Record) ([]*Attribute, error) {
	attrs, err := record.Attributes()
	if err != nil {
		return nil, err
	}

	attrLists, err := record.FindAttributes(AttrTypeAttributeList)
	if err != nil {
		return nil, err
	}
	if len(attrLists) == 0 {
		return attrs, nil
	}

	var listBuf []byte
	al := attrLists[0]
	if al.Resident {
		listBuf = al.ResidentData()
	} else {
		listBuf, err = v.readNonResidentData(al)
		if err != nil {
			return nil, err
		}
	}
	entries, err := ParseAttributeList(listBuf)
	if err != nil {
		return nil, err
	}

	seen := map[uint64]bool{record.RecordNumber: true}
	var out []*Attribute
	out = append(out, attrs...)

	for _, entry := range entries {
		extRecordNum := entry.BaseRecord.RecordNumber()
		if extRecordNum == record.RecordNumber || seen[extRecordNum] {
			continue
		}
		seen[extRecordNum] = true
		extRecord, err := v.ReadRecord(extRecordNum)
		if err != nil {
			continue // best-effort: one bad extension record doesn't fail the whole lookup
		}
		extAttrs, err := extRecord.Attributes()
		if err != nil {
			continue
		}
		out = append(out, extAttrs...)
	}

	return out, nil
}

// readNonResidentData reads the full logical data of a non-resident
// attribute (honoring sparse runs as logical zero-fill) without any
// sparse/resident branching for $DATA semantics — used for a
// non-resident $ATTRIBUTE_LIST ($INDEX_ALLOCATION blocks are read with
// ReadClusters instead), not for end-user file extraction (see extractor.go for that path,
// which additionally honors InitializedSize/DataSize truncation).
func (v *Volume) readNonResidentData(a *Attribute) ([]byte, error) {
	runs, err := a.DataRuns()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, a.AllocatedSize)
	for _, run := range runs {
		if run.Sparse {
			out = append(out, make([]byte, run.Length*uint64(v.boot.BytesPerCluster))...)
			continue
		}
		buf, err := v.ReadClusters(run.LCN, int64(run.Length))
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	if uint64(len(out)) > a.DataSize {
		out = out[:a.DataSize]
	}
	return out, nil
}
