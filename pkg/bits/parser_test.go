package bits

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
)

func TestParseCapture(t *testing.T) {
	input := `
bit_00020500_000_08
bit_00020500_000_17

# trailing comment
bit_0002051f_100_31
`

	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	got, err := parser.ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	want := []Bit{
		{FrameAddress: 0x20500, Word: 0, Bit: 8},
		{FrameAddress: 0x20500, Word: 0, Bit: 17},
		{FrameAddress: 0x2051f, Word: 100, Bit: 31},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d bits, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bit %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestParseEmpty(t *testing.T) {
	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	got, err := parser.ParseString("")
	if err != nil {
		t.Fatalf("Failed to parse empty capture: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no bits, got %d", len(got))
	}
}

func TestParseRejectsBadLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"word out of range", "bit_00020500_101_08\n"},
		{"bit out of range", "bit_00020500_000_32\n"},
		{"decimal word with hex digit", "bit_00020500_0a0_08\n"},
		{"missing field", "bit_00020500_000\n"},
		{"wrong prefix", "frame_00020500_000_08\n"},
	}

	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.ParseString(tt.input); err == nil {
				t.Errorf("Expected error for %q", tt.input)
			}
		})
	}
}

func TestParseFileCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.bits.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w, err := compress.NewWriter(f, compress.ZSTD)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("bit_00020500_001_02\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	got, err := parser.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(got) != 1 || got[0] != (Bit{FrameAddress: 0x20500, Word: 1, Bit: 2}) {
		t.Errorf("unexpected bits: %v", got)
	}
}

func TestBitString(t *testing.T) {
	b := Bit{FrameAddress: 0x20500, Word: 0, Bit: 8}
	if got := b.String(); got != "bit_00020500_000_08" {
		t.Errorf("String() = %q", got)
	}

	parser, err := NewParser()
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	back, err := parser.ParseString(b.String() + "\n")
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if len(back) != 1 || back[0] != b {
		t.Errorf("reparse mismatch: %v", back)
	}
	if !strings.HasPrefix(b.String(), "bit_") {
		t.Errorf("missing prefix")
	}
}
