package ntfs

import (
	"fmt"
	"strings"
)

// RecordNumberRoot is the reserved record number of a volume's root
// directory.
const RecordNumberRoot = 5

// maxPathDepth bounds how many components Resolve will descend; a
// legitimate NTFS path never approaches this, so hitting it means a
// malformed source pattern rather than a real volume path.
const maxPathDepth = 255

// Resolve walks path (drive-relative, '\'-or-'/'-separated component
// list, no wildcards) from the volume root and returns the MFT record
// number of the final component.
func (v *Volume) Resolve(path string) (uint64, error) {
	components := splitPath(path)
	if len(components) > maxPathDepth {
		return 0, fmt.Errorf("%w: path exceeds %d components", ErrPathNotFound, maxPathDepth)
	}
	recordNumber := uint64(RecordNumberRoot)

	for i, component := range components {
		record, err := v.ReadRecord(recordNumber)
		if err != nil {
			return 0, err
		}
		if !record.IsDirectory() {
			return 0, fmt.Errorf("%w: %q is not a directory", ErrNotADirectory, strings.Join(components[:i], `\`))
		}
		child, err := v.lookupChild(record, component)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrPathNotFound, path, err)
		}
		recordNumber = child
	}

	return recordNumber, nil
}

// splitPath breaks a path into non-empty components, accepting both
// separators so callers can pass either OS-style path.
func splitPath(path string) []string {
	path = strings.ReplaceAll(path, "/", `\`)
	raw := strings.Split(path, `\`)
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// lookupChild finds name among dir's children, consulting $INDEX_ROOT
// then any $INDEX_ALLOCATION overflow (both attributes resolved through
// $ATTRIBUTE_LIST extension records, since a directory with enough
// children spills its index attributes out of the base record). name is
// compared against every entry's name, whatever its namespace, so either
// a long or an 8.3 name finds the record. It returns ErrPathNotFound if
// no entry matches case-insensitively.
func (v *Volume) lookupChild(dir *Record, name string) (uint64, error) {
	attrs, err := v.resolveRecordAttributes(dir)
	if err != nil {
		return 0, err
	}

	indexRootAttr, ok := findAttribute(attrs, AttrTypeIndexRoot)
	if !ok {
		return 0, fmt.Errorf("%w: record %d has no $INDEX_ROOT", ErrCorruptAttribute, dir.RecordNumber)
	}
	indexRoot, err := ParseIndexRoot(indexRootAttr.ResidentData())
	if err != nil {
		return 0, err
	}

	if match, ok := matchEntries(indexRoot.Entries, name); ok {
		return match, nil
	}

	// Entries whose HasSubNode is set may hide the match in an
	// $INDEX_ALLOCATION node; walk those only if present.
	allocAttr, ok := findAttribute(attrs, AttrTypeIndexAllocation)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrPathNotFound, name)
	}
	runs, err := allocAttr.DataRuns()
	if err != nil {
		return 0, err
	}

	blockClusters := int64(indexRoot.IndexBlockSize) / v.boot.BytesPerCluster
	if blockClusters < 1 {
		blockClusters = 1
	}
	totalBlocks := runs.TotalClusters() / uint64(blockClusters)

	for blockIndex := uint64(0); blockIndex < totalBlocks; blockIndex++ {
		vcn := blockIndex * uint64(blockClusters)
		lcn, sparse, ok := runs.VCNToLCN(vcn)
		if !ok || sparse {
			continue
		}
		buf, err := v.ReadClusters(lcn, blockClusters)
		if err != nil {
			continue // best-effort: skip unreadable blocks rather than aborting
		}
		block, err := ParseIndexBlock(buf, int(indexRoot.IndexBlockSize))
		if err != nil {
			continue
		}
		if match, ok := matchEntries(block.Entries, name); ok {
			return match, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrPathNotFound, name)
}

// findAttribute returns the first attribute of the given type in attrs,
// which is expected to already be extension-record-resolved (see
// resolveRecordAttributes) so a directory's index attributes are found
// regardless of which MFT record they physically live in.
func findAttribute(attrs []*Attribute, attrType uint32) (*Attribute, bool) {
	for _, a := range attrs {
		if a.Type == attrType {
			return a, true
		}
	}
	return nil, false
}

// matchEntries scans entries for the first one whose name matches name
// case-insensitively (NTFS directory comparison is case-insensitive by
// default in the on-disk collation the resolver relies on).
func matchEntries(entries []IndexEntry, name string) (uint64, bool) {
	for _, e := range entries {
		if e.FileName == nil {
			continue
		}
		if strings.EqualFold(e.FileName.Name, name) {
			return e.FileReference.RecordNumber(), true
		}
	}
	return 0, false
}

// ListChildren enumerates every child of the directory record at
// recordNumber, merging $INDEX_ROOT and $INDEX_ALLOCATION entries and
// collapsing duplicate records (one per namespace) down to their
// preferred name.
func (v *Volume) ListChildren(recordNumber uint64) ([]string, error) {
	record, err := v.ReadRecord(recordNumber)
	if err != nil {
		return nil, err
	}
	if !record.IsDirectory() {
		return nil, fmt.Errorf("%w: record %d", ErrNotADirectory, recordNumber)
	}

	attrs, err := v.resolveRecordAttributes(record)
	if err != nil {
		return nil, err
	}

	byRecord := make(map[uint64]*FileNameAttr)

	indexRootAttr, ok := findAttribute(attrs, AttrTypeIndexRoot)
	if !ok {
		return nil, fmt.Errorf("%w: record %d has no $INDEX_ROOT", ErrCorruptAttribute, recordNumber)
	}
	indexRoot, err := ParseIndexRoot(indexRootAttr.ResidentData())
	if err != nil {
		return nil, err
	}
	collectNames(byRecord, indexRoot.Entries)

	if allocAttr, ok := findAttribute(attrs, AttrTypeIndexAllocation); ok {
		runs, err := allocAttr.DataRuns()
		if err == nil {
			blockClusters := int64(indexRoot.IndexBlockSize) / v.boot.BytesPerCluster
			if blockClusters < 1 {
				blockClusters = 1
			}
			totalBlocks := runs.TotalClusters() / uint64(blockClusters)
			for blockIndex := uint64(0); blockIndex < totalBlocks; blockIndex++ {
				vcn := blockIndex * uint64(blockClusters)
				lcn, sparse, ok := runs.VCNToLCN(vcn)
				if !ok || sparse {
					continue
				}
				buf, err := v.ReadClusters(lcn, blockClusters)
				if err != nil {
					continue
				}
				block, err := ParseIndexBlock(buf, int(indexRoot.IndexBlockSize))
				if err != nil {
					continue
				}
				collectNames(byRecord, block.Entries)
			}
		}
	}

	names := make([]string, 0, len(byRecord))
	for _, fn := range byRecord {
		names = append(names, fn.Name)
	}
	return names, nil
}

func collectNames(byRecord map[uint64]*FileNameAttr, entries []IndexEntry) {
	for _, e := range entries {
		if e.FileName == nil {
			continue
		}
		num := e.FileReference.RecordNumber()
		byRecord[num] = preferName(byRecord[num], e.FileName)
	}
}
