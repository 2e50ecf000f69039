package ntfs

import (
	"encoding/binary"
	"testing"
)

func buildFileNameValue(parentRef uint64, name string, ns FileNameNamespace) []byte {
	nameUnits := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(nameUnits[i*2:], uint16(r))
	}
	buf := make([]byte, 0x42+len(nameUnits))
	binary.LittleEndian.PutUint64(buf[0x00:], parentRef)
	buf[0x40] = byte(len(name))
	buf[0x41] = byte(ns)
	copy(buf[0x42:], nameUnits)
	return buf
}

func TestParseFileNameAttr(t *testing.T) {
	buf := buildFileNameValue(5, "report.docx", NamespaceWin32)

	fn, err := ParseFileNameAttr(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Name != "report.docx" {
		t.Errorf("expected name %q, got %q", "report.docx", fn.Name)
	}
	if fn.ParentDirectory.RecordNumber() != 5 {
		t.Errorf("expected parent record 5, got %d", fn.ParentDirectory.RecordNumber())
	}
	if fn.Namespace != NamespaceWin32 {
		t.Errorf("expected win32 namespace, got %d", fn.Namespace)
	}
}

func TestParseFileNameAttrTooShort(t *testing.T) {
	_, err := ParseFileNameAttr(make([]byte, 10))
	if err == nil {
		t.Errorf("expected error for too-short buffer")
	}
}
