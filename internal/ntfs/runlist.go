package ntfs

import "fmt"

// Run is one decoded data-run entry (a mapping pair). A sparse run has
// Sparse set and carries no LCN; its clusters are logical zero-fill.
type Run struct {
	StartVCN uint64
	Length   uint64 // in clusters
	LCN      int64  // absolute cluster number; meaningless if Sparse
	Sparse   bool
}

// Runlist is an ordered, non-overlapping sequence of Runs covering a
// contiguous VCN range starting at 0.
type Runlist []Run

// ParseRunlist decodes an NTFS mapping-pair byte stream into a Runlist.
// Each entry's header byte packs the run-length field width in its low
// nibble and the LCN-offset field width in its high nibble; the list ends
// at a 0x00 header byte.
func ParseRunlist(buf []byte) (Runlist, error) {
	var runs Runlist
	var vcn uint64
	var lcn int64
	offset := 0

	for offset < len(buf) {
		header := buf[offset]
		if header == 0x00 {
			break
		}
		lengthSize := int(header & 0x0F)
		offsetSize := int(header >> 4)
		offset++

		if offset+lengthSize > len(buf) {
			return nil, fmt.Errorf("%w: run length field overruns buffer", ErrCorruptRunlist)
		}
		length := decodeUnsigned(buf[offset : offset+lengthSize])
		offset += lengthSize

		run := Run{StartVCN: vcn, Length: length}

		if offsetSize == 0 {
			// Sparse run: no LCN field present, cluster offset does not move.
			run.Sparse = true
		} else {
			if offset+offsetSize > len(buf) {
				return nil, fmt.Errorf("%w: run offset field overruns buffer", ErrCorruptRunlist)
			}
			delta := decodeSigned(buf[offset : offset+offsetSize])
			offset += offsetSize
			lcn += delta
			run.LCN = lcn
		}

		runs = append(runs, run)
		vcn += length
	}

	return runs, nil
}

// decodeUnsigned decodes b as an unsigned little-endian integer of
// arbitrary byte width (run lengths are never negative).
func decodeUnsigned(b []byte) uint64 {
	var v uint64
	for i, bb := range b {
		v |= uint64(bb) << (8 * uint(i))
	}
	return v
}

// decodeSigned decodes b as a two's-complement little-endian integer of
// arbitrary byte width, sign-extending from the high bit of the last
// byte. This is the padTo-style approach used by both the reference
// Python implementation's lsb2signednum and t9t/gomft's padTo.
func decodeSigned(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	padded := make([]byte, 8)
	copy(padded, b)
	if b[len(b)-1]&0x80 != 0 {
		for i := len(b); i < 8; i++ {
			padded[i] = 0xFF
		}
	}
	var v uint64
	for i, bb := range padded {
		v |= uint64(bb) << (8 * uint(i))
	}
	return int64(v)
}

// VCNToLCN maps a virtual cluster number to an absolute logical cluster
// number. ok is false when vcn falls in a sparse run or beyond the list.
func (rl Runlist) VCNToLCN(vcn uint64) (lcn int64, sparse bool, ok bool) {
	for _, r := range rl {
		if vcn >= r.StartVCN && vcn < r.StartVCN+r.Length {
			if r.Sparse {
				return 0, true, true
			}
			return r.LCN + int64(vcn-r.StartVCN), false, true
		}
	}
	return 0, false, false
}

// TotalClusters returns the number of VCNs covered by the list.
func (rl Runlist) TotalClusters() uint64 {
	var total uint64
	for _, r := range rl {
		total += r.Length
	}
	return total
}
