package ntfs

import "testing"

func TestParseRunlistSingleRun(t *testing.T) {
	buf := []byte{0x11, 0x10, 0x64, 0x00} // 1-byte length=16, 1-byte offset=100

	rl, err := ParseRunlist(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rl) != 1 {
		t.Fatalf("expected 1 run, got %d", len(rl))
	}
	if rl[0].Length != 16 {
		t.Errorf("expected length 16, got %d", rl[0].Length)
	}
	if rl[0].LCN != 100 {
		t.Errorf("expected lcn 100, got %d", rl[0].LCN)
	}
	if rl[0].Sparse {
		t.Errorf("expected non-sparse run")
	}
}

func TestParseRunlistEmpty(t *testing.T) {
	rl, err := ParseRunlist([]byte{0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rl) != 0 {
		t.Errorf("expected no runs, got %d", len(rl))
	}
}

func TestParseRunlistNegativeOffsetRunsBackward(t *testing.T) {
	// First run: length 10 at lcn 1000 (length field 1 byte, offset field
	// 2 bytes). Second run: length 5, offset -50 relative (two's
	// complement in 1 byte: 0xCE == -50; both fields 1 byte).
	buf := []byte{
		0x21, 0x0A, 0xE8, 0x03, // header, len=10, offset=+1000
		0x11, 0x05, 0xCE, // header, len=5, offset=-50
		0x00, // terminator
	}

	rl, err := ParseRunlist(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rl) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(rl))
	}
	if rl[0].LCN != 1000 {
		t.Errorf("expected first run lcn 1000, got %d", rl[0].LCN)
	}
	if rl[1].StartVCN != 10 {
		t.Errorf("expected second run start vcn 10, got %d", rl[1].StartVCN)
	}
	if rl[1].LCN != 950 {
		t.Errorf("expected second run lcn 950 (1000-50), got %d", rl[1].LCN)
	}
}

func TestParseRunlistSparseRun(t *testing.T) {
	buf := []byte{0x01, 0x0A, 0x00} // header: length field 1 byte, offset field 0 bytes (sparse)

	rl, err := ParseRunlist(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rl) != 1 {
		t.Fatalf("expected 1 run, got %d", len(rl))
	}
	if !rl[0].Sparse {
		t.Errorf("expected sparse run")
	}
	if rl[0].Length != 10 {
		t.Errorf("expected length 10, got %d", rl[0].Length)
	}
}

func TestRunlistVCNToLCN(t *testing.T) {
	rl := Runlist{
		{StartVCN: 0, Length: 10, LCN: 100},
		{StartVCN: 10, Length: 5, Sparse: true},
		{StartVCN: 15, Length: 10, LCN: 200},
	}

	lcn, sparse, ok := rl.VCNToLCN(5)
	if !ok || sparse || lcn != 105 {
		t.Errorf("vcn 5: expected lcn 105, got lcn=%d sparse=%v ok=%v", lcn, sparse, ok)
	}

	_, sparse, ok = rl.VCNToLCN(12)
	if !ok || !sparse {
		t.Errorf("vcn 12: expected sparse hit, got sparse=%v ok=%v", sparse, ok)
	}

	_, _, ok = rl.VCNToLCN(100)
	if ok {
		t.Errorf("vcn 100: expected miss beyond runlist")
	}
}

func TestDecodeSignedSignExtension(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  int64
	}{
		{name: "positive single byte", bytes: []byte{0x64}, want: 100},
		{name: "negative single byte", bytes: []byte{0xCE}, want: -50},
		{name: "positive two bytes", bytes: []byte{0xE8, 0x03}, want: 1000},
		{name: "negative two bytes", bytes: []byte{0x18, 0xFC}, want: -1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeSigned(tt.bytes)
			if got != tt.want {
				t.Errorf("decodeSigned(%v): expected %d, got %d", tt.bytes, tt.want, got)
			}
		})
	}
}
