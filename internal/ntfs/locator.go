package ntfs

import "fmt"

// RecordNumberMFT is the reserved record number of the $MFT entry itself.
const RecordNumberMFT = 0

// splitRecord records the fact that a record's bytes straddle two
// non-adjacent runs of the $MFT data run list, so a single ReadAt at its
// record offset would read through a run boundary. Such records must be
// reassembled from two separate reads.
type splitRecord struct {
	recordNumber uint64
	firstPartLen int // bytes available in the first run before the boundary
}

// Locator maps an MFT record number to a byte offset (or a pair of
// offsets, for a record split across two runs) using the $MFT's own data
// runs, precomputing a split-record table up front the way the reference
// Python implementation's __GenRefArray does, so checking whether a record
// is split is a single map lookup. Mapping a VCN to its cluster still
// walks the run list linearly (Runlist.VCNToLCN).
type Locator struct {
	runs            Runlist
	bytesPerCluster int64
	recordSize      int64

	splits map[uint64]splitRecord
}

// NewLocator builds a Locator from the $MFT's decoded data runs.
func NewLocator(mftRuns Runlist, bytesPerCluster, recordSize int64) (*Locator, error) {
	if recordSize <= 0 || bytesPerCluster <= 0 {
		return nil, fmt.Errorf("%w: non-positive record or cluster size", ErrCorruptAttribute)
	}

	l := &Locator{
		runs:            mftRuns,
		bytesPerCluster: bytesPerCluster,
		recordSize:      recordSize,
		splits:          make(map[uint64]splitRecord),
	}

	l.genSplitTable()
	return l, nil
}

// genSplitTable finds every record whose [start,end) byte range crosses a
// run boundary in the $MFT's own run list and records how many bytes of
// it lie in the earlier run.
func (l *Locator) genSplitTable() {
	if len(l.runs) < 2 {
		return
	}
	var clusterCursor uint64

	for i := 0; i < len(l.runs)-1; i++ {
		run := l.runs[i]
		runEndByte := (clusterCursor + run.Length) * uint64(l.bytesPerCluster)
		clusterCursor += run.Length

		// The record whose byte range contains runEndByte straddles the
		// boundary between this run and the next one, unless runEndByte
		// lands exactly on a record boundary.
		candidate := runEndByte / uint64(l.recordSize)
		startByte := candidate * uint64(l.recordSize)
		endByte := startByte + uint64(l.recordSize)
		if startByte < runEndByte && endByte > runEndByte {
			l.splits[candidate] = splitRecord{
				recordNumber: candidate,
				firstPartLen: int(runEndByte - startByte),
			}
		}
	}
}

// byteOffset returns the absolute volume byte offset of a VCN-relative
// position using the run list, or ok=false if it falls in a sparse run
// (the $MFT itself is never sparse in practice, but this is still
// checked defensively).
func (l *Locator) byteOffset(vcn uint64) (int64, bool) {
	lcn, sparse, ok := l.runs.VCNToLCN(vcn)
	if !ok || sparse {
		return 0, false
	}
	return lcn * l.bytesPerCluster, true
}

// Offsets returns the volume byte offset(s) to read for recordNumber. A
// non-split record yields a single range; a split record yields two
// contiguous ranges whose bytes the caller must concatenate in order
// before calling ParseRecord.
func (l *Locator) Offsets(recordNumber uint64) ([]ByteRange, error) {
	startByte := recordNumber * uint64(l.recordSize)
	startVCN := startByte / uint64(l.bytesPerCluster)

	withinCluster := int64(startByte) % l.bytesPerCluster

	if split, isSplit := l.splits[recordNumber]; isSplit {
		firstOffset, ok := l.byteOffset(startVCN)
		if !ok {
			return nil, fmt.Errorf("%w: record %d's first part maps to a sparse run", ErrRecordOutOfRange, recordNumber)
		}
		firstOffset += withinCluster
		secondVCN := startVCN + 1
		secondOffset, ok := l.byteOffset(secondVCN)
		if !ok {
			return nil, fmt.Errorf("%w: record %d's second part maps to a sparse run", ErrRecordOutOfRange, recordNumber)
		}
		return []ByteRange{
			{Offset: firstOffset, Length: int64(split.firstPartLen)},
			{Offset: secondOffset, Length: l.recordSize - int64(split.firstPartLen)},
		}, nil
	}

	offset, ok := l.byteOffset(startVCN)
	if !ok {
		return nil, fmt.Errorf("%w: record %d maps to a sparse run", ErrRecordOutOfRange, recordNumber)
	}
	return []ByteRange{{Offset: offset + withinCluster, Length: l.recordSize}}, nil
}

// ByteRange is a contiguous [Offset, Offset+Length) span on the volume.
type ByteRange struct {
	Offset int64
	Length int64
}
