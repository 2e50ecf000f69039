package ntfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shubham/ntfsresolver/internal/disk"
)

const extractTestBytesPerCluster = 512

// pattern returns n deterministic, non-zero bytes so a test can tell
// "read from disk" apart from "zero-filled".
func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i%251 + 1) // never 0
	}
	return buf
}

// openTestVolume backs a Volume with a regular file holding backing, with
// no locator (extraction never needs one).
func openTestVolume(t *testing.T, backing []byte) *Volume {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volume.img")
	if err := os.WriteFile(path, backing, 0o600); err != nil {
		t.Fatalf("writing backing file: %v", err)
	}
	reader, err := disk.Open(path)
	if err != nil {
		t.Fatalf("opening backing file: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return &Volume{reader: reader, boot: &BootSector{BytesPerCluster: extractTestBytesPerCluster}}
}

func TestExtractNonResidentHonorsInitializedSize(t *testing.T) {
	disk := pattern(4 * extractTestBytesPerCluster) // 4 clusters starting at LCN 0
	vol := openTestVolume(t, disk)

	const dataSize = 1500
	const initSize = 1000
	runlist := []byte{0x11, 0x04, 0x00} // 4 clusters, LCN delta 0 -> absolute LCN 0
	buf := buildNonResidentAttribute(AttrTypeData, 0, 3, dataSize, initSize, 4*extractTestBytesPerCluster, runlist)
	a, err := ParseAttribute(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	n, err := vol.extractNonResident(a, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != dataSize {
		t.Fatalf("expected %d bytes written, got %d", dataSize, n)
	}

	want := append([]byte{}, disk[:initSize]...)
	want = append(want, make([]byte, dataSize-initSize)...)
	if diff := cmp.Diff(want, out.Bytes()); diff != "" {
		t.Errorf("extracted bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractNonResidentSparseRunIgnoresInitializedSize(t *testing.T) {
	// No backing clusters are ever read for a sparse run, so a 1-byte
	// backing file is enough: ReadClusters must never be called.
	vol := openTestVolume(t, []byte{0})

	const length = 4 * extractTestBytesPerCluster
	runlist := []byte{0x01, 0x04} // lengthSize=1, offsetSize=0: sparse, 4 clusters
	buf := buildNonResidentAttribute(AttrTypeData, 0, 3, length, length, length, runlist)
	a, err := ParseAttribute(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	n, err := vol.extractNonResident(a, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != length {
		t.Fatalf("expected %d bytes written, got %d", length, n)
	}
	if !bytes.Equal(out.Bytes(), make([]byte, length)) {
		t.Errorf("expected an all-zero sparse run regardless of InitializedSize")
	}
}

func TestExtractNonResidentZeroInitializedSize(t *testing.T) {
	backing := pattern(2 * extractTestBytesPerCluster)
	vol := openTestVolume(t, backing)

	const dataSize = 2 * extractTestBytesPerCluster
	runlist := []byte{0x11, 0x02, 0x00} // 2 clusters, LCN 0
	buf := buildNonResidentAttribute(AttrTypeData, 0, 1, dataSize, 0, dataSize, runlist)
	a, err := ParseAttribute(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	if _, err := vol.extractNonResident(a, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out.Bytes(), make([]byte, dataSize)) {
		t.Errorf("expected an all-zero run when InitializedSize is 0")
	}
}

func TestExtractNonResidentMultipleRunsAcrossInitializedBoundary(t *testing.T) {
	backing := pattern(4 * extractTestBytesPerCluster)
	vol := openTestVolume(t, backing)

	const dataSize = 4 * extractTestBytesPerCluster
	const initSize = 3 * extractTestBytesPerCluster // boundary lands on the second run
	// Two runs of 2 clusters each, contiguous on disk.
	runlist := []byte{
		0x11, 0x02, 0x00, // run 1: 2 clusters, LCN 0
		0x11, 0x02, 0x02, // run 2: 2 clusters, LCN delta +2 -> LCN 2
	}
	buf := buildNonResidentAttribute(AttrTypeData, 0, 3, dataSize, initSize, dataSize, runlist)
	a, err := ParseAttribute(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	n, err := vol.extractNonResident(a, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != dataSize {
		t.Fatalf("expected %d bytes written, got %d", dataSize, n)
	}

	want := append([]byte{}, backing[:initSize]...)
	want = append(want, make([]byte, dataSize-initSize)...)
	if diff := cmp.Diff(want, out.Bytes()); diff != "" {
		t.Errorf("extracted bytes mismatch (-want +got):\n%s", diff)
	}
}
