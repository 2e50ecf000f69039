package ntfs

import (
	"encoding/binary"
	"fmt"
)

const sectorStride = 512

// applyFixup implements the Fixup Applier: buf is a multi-sector
// transfer (MST) protected block of N*512 bytes; a USA of usaCount words
// (one sentinel followed by N patches) starts at usaOffset. applyFixup
// returns a freshly allocated buffer — it never mutates buf, since buf may
// be a read-only view over a memory-mapped or shared source (see
// DESIGN.md).
//
// A stride whose trailing word does not match the sentinel is left
// unpatched rather than treated as fatal: the block may simply be torn.
// applyFixup only fails when usaOffset/usaCount themselves are out of
// bounds.
func applyFixup(buf []byte, usaOffset, usaCount int) ([]byte, error) {
	out := make([]byte, len(buf))
	copy(out, buf)

	if usaCount == 0 {
		return out, nil
	}

	usaBytes := usaCount * 2
	if usaOffset < 0 || usaOffset+usaBytes > len(buf) {
		return nil, fmt.Errorf("%w: usa_offset %d usa_count %d exceeds buffer %d",
			ErrCorruptFixup, usaOffset, usaCount, len(buf))
	}

	sentinel := binary.LittleEndian.Uint16(buf[usaOffset:])
	numStrides := usaCount - 1

	for i := 0; i < numStrides; i++ {
		strideEnd := sectorStride*(i+1) - 2
		if strideEnd+2 > len(out) {
			break
		}
		current := binary.LittleEndian.Uint16(out[strideEnd:])
		if current != sentinel {
			continue
		}
		patchOffset := usaOffset + 2 + 2*i
		patch := binary.LittleEndian.Uint16(buf[patchOffset:])
		binary.LittleEndian.PutUint16(out[strideEnd:], patch)
	}

	return out, nil
}
