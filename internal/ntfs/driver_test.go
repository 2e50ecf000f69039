package ntfs

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildNamedResidentAttribute builds a resident attribute carrying an ADS
// name, laid out the way TestParseAttributeNamed exercises the decoder.
func buildNamedResidentAttribute(attrType uint32, name string, value []byte) []byte {
	nameBytes := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(nameBytes[i*2:], uint16(r))
	}
	nameOffset := 0x18
	valueOffset := nameOffset + len(nameBytes)
	total := valueOffset + len(value)
	if total%8 != 0 {
		total += 8 - total%8
	}

	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0x00:], attrType)
	binary.LittleEndian.PutUint32(buf[0x04:], uint32(total))
	buf[0x08] = 0
	buf[0x09] = byte(len(name))
	binary.LittleEndian.PutUint16(buf[0x0A:], uint16(nameOffset))
	binary.LittleEndian.PutUint32(buf[0x10:], uint32(len(value)))
	binary.LittleEndian.PutUint16(buf[0x14:], uint16(valueOffset))
	copy(buf[nameOffset:], nameBytes)
	copy(buf[valueOffset:], value)
	return buf
}

func TestCopyFileWritesADSWithUnderscoreNaming(t *testing.T) {
	unnamed := buildResidentAttribute(AttrTypeData, []byte("primary"))
	ads := buildNamedResidentAttribute(AttrTypeData, "secret", []byte("hidden"))
	record := buildMinimalRecord(RecordFlagInUse, append(append([]byte{}, unnamed...), ads...))

	vol := openTestVolumeWithRecords(t, map[uint64][]byte{5: record})

	destPath := filepath.Join(t.TempDir(), "out", "foo.txt")
	s := &Session{}
	if err := s.copyFile(vol, 5, destPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	primary, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading primary stream: %v", err)
	}
	if string(primary) != "primary" {
		t.Errorf("expected %q, got %q", "primary", primary)
	}

	adsPath := destPath + "_ADS_secret"
	hidden, err := os.ReadFile(adsPath)
	if err != nil {
		t.Fatalf("expected ADS written to %q: %v", adsPath, err)
	}
	if string(hidden) != "hidden" {
		t.Errorf("expected %q, got %q", "hidden", hidden)
	}

	if _, err := os.Stat(destPath + ":secret"); err == nil {
		t.Errorf("ADS must not be written with a colon-separated name")
	}
}

func TestExpandWildcardsRevalidatesStaleCacheEntry(t *testing.T) {
	const liveChildRecord = 50
	const staleRecord = 77

	childFileName := buildFileNameValue(RecordNumberRoot, "alice", NamespaceWin32)
	indexEntry := buildIndexEntry(liveChildRecord, childFileName, false, 0)
	indexRootAttr := buildResidentAttribute(AttrTypeIndexRoot, buildIndexRoot([][]byte{indexEntry}))
	rootRecord := buildMinimalRecord(RecordFlagInUse|RecordFlagIsDirectory, indexRootAttr)

	liveRecord := buildMinimalRecord(RecordFlagInUse, nil)
	freedRecord := buildMinimalRecord(0, nil) // IN_USE cleared: reused/freed

	vol := openTestVolumeWithRecords(t, map[uint64][]byte{
		RecordNumberRoot: rootRecord,
		liveChildRecord:  liveRecord,
		staleRecord:      freedRecord,
	})

	cache := &PathCache{entries: map[cacheKey]uint64{{drive: 'C', path: "alice"}: staleRecord}}
	s := &Session{cache: cache}

	matches, err := s.expandWildcards(vol, 'C', []string{"alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].recordNumber != liveChildRecord {
		t.Fatalf("expected live re-resolution to record %d, got %+v", liveChildRecord, matches)
	}

	if got, ok := s.cache.Get('C', "alice"); !ok || got != liveChildRecord {
		t.Errorf("expected cache to be refreshed to %d, got %d ok=%v", liveChildRecord, got, ok)
	}
}
