package ntfs

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildIndexBlock constructs a single fixed-size INDX block (blockSize
// bytes, at least 512 so a USA covers it) with the given live entries
// followed by a terminator, and bytesInUse/allocatedSize describing how
// much of the block holds real data versus slack.
func buildIndexBlock(blockSize int, vcn uint64, entries [][]byte, slackBytes int) []byte {
	const blockHeaderLen = 0x18
	const indexHeaderLen = 0x10
	const usaOffset = blockHeaderLen + indexHeaderLen // 0x28

	var entriesBuf []byte
	for _, e := range entries {
		entriesBuf = append(entriesBuf, e...)
	}
	term := buildTerminatorEntry()
	liveEnd := len(entriesBuf) + len(term)
	entriesBuf = append(entriesBuf, term...)
	entriesBuf = append(entriesBuf, make([]byte, slackBytes)...)

	usaCount := 1 + blockSize/512
	usaBytes := usaCount * 2
	entriesStart := usaOffset + usaBytes
	if entriesStart%8 != 0 {
		entriesStart += 8 - entriesStart%8
	}
	entriesOffsetRel := entriesStart - blockHeaderLen

	buf := make([]byte, blockSize)
	copy(buf[0:4], "INDX")
	binary.LittleEndian.PutUint16(buf[0x04:], usaOffset)
	binary.LittleEndian.PutUint16(buf[0x06:], uint16(usaCount))
	binary.LittleEndian.PutUint64(buf[0x08:], vcn)

	binary.LittleEndian.PutUint32(buf[0x18:], uint32(entriesOffsetRel))
	binary.LittleEndian.PutUint32(buf[0x1C:], uint32(entriesOffsetRel+liveEnd))
	binary.LittleEndian.PutUint32(buf[0x20:], uint32(entriesOffsetRel+len(entriesBuf)))

	copy(buf[entriesStart:], entriesBuf)

	sentinel := uint16(0xA5A5)
	binary.LittleEndian.PutUint16(buf[usaOffset:], sentinel)
	for i := 0; i < usaCount-1; i++ {
		strideEnd := 512*(i+1) - 2
		binary.LittleEndian.PutUint16(buf[strideEnd:], sentinel)
	}

	return buf
}

func TestParseIndexBlockEntriesAndSlack(t *testing.T) {
	fn := buildFileNameValue(5, "child.txt", NamespaceWin32)
	e := buildIndexEntry(15, fn, false, 0)

	buf := buildIndexBlock(4096, 3, [][]byte{e}, 64)

	block, err := ParseIndexBlock(buf, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block.VCN != 3 {
		t.Errorf("expected vcn 3, got %d", block.VCN)
	}
	if len(block.Entries) != 1 {
		t.Fatalf("expected 1 live entry, got %d", len(block.Entries))
	}
	if block.Entries[0].FileName.Name != "child.txt" {
		t.Errorf("expected name child.txt, got %q", block.Entries[0].FileName.Name)
	}
}

func TestParseIndexBlockBadMagic(t *testing.T) {
	buf := buildIndexBlock(4096, 0, nil, 0)
	copy(buf[0:4], "XXXX")

	_, err := ParseIndexBlock(buf, 4096)
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestIndexBlockSlackEntriesNotInNormalEntries(t *testing.T) {
	fn := buildFileNameValue(5, "live.txt", NamespaceWin32)
	e := buildIndexEntry(11, fn, false, 0)
	buf := buildIndexBlock(4096, 1, [][]byte{e}, 128)

	block, err := ParseIndexBlock(buf, 4096)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(block.Entries) != 1 {
		t.Errorf("expected live entries to exclude slack region, got %d", len(block.Entries))
	}
	// Slack scan must not panic or error even when the slack region is
	// all zero bytes (no recoverable entries).
	_ = block.SlackEntries()
}
