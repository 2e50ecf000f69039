package ntfs

import (
	"encoding/binary"
	"testing"
)

func buildAttributeListEntry(typ uint32, startVCN uint64, baseRef uint64, attrID uint16, name string) []byte {
	nameUnits := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(nameUnits[i*2:], uint16(r))
	}
	entryLen := 0x1A + len(nameUnits)
	buf := make([]byte, entryLen)
	binary.LittleEndian.PutUint32(buf[0x00:], typ)
	binary.LittleEndian.PutUint16(buf[0x04:], uint16(entryLen))
	buf[0x06] = byte(len(name))
	buf[0x07] = 0x1A
	binary.LittleEndian.PutUint64(buf[0x08:], startVCN)
	binary.LittleEndian.PutUint64(buf[0x10:], baseRef)
	binary.LittleEndian.PutUint16(buf[0x18:], attrID)
	copy(buf[0x1A:], nameUnits)
	return buf
}

func TestParseAttributeList(t *testing.T) {
	e1 := buildAttributeListEntry(AttrTypeData, 0, 5, 1, "")
	e2 := buildAttributeListEntry(AttrTypeData, 100, 200, 2, "stream")
	buf := append(append([]byte{}, e1...), e2...)

	entries, err := ParseAttributeList(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].BaseRecord.RecordNumber() != 5 {
		t.Errorf("entry 0: expected base record 5, got %d", entries[0].BaseRecord.RecordNumber())
	}
	if entries[1].StartVCN != 100 {
		t.Errorf("entry 1: expected start vcn 100, got %d", entries[1].StartVCN)
	}
	if entries[1].Name != "stream" {
		t.Errorf("entry 1: expected name %q, got %q", "stream", entries[1].Name)
	}
	if entries[1].BaseRecord.RecordNumber() != 200 {
		t.Errorf("entry 1: expected base record 200, got %d", entries[1].BaseRecord.RecordNumber())
	}
}

func TestParseAttributeListEmpty(t *testing.T) {
	entries, err := ParseAttributeList(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
