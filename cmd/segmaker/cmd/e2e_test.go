package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const testGrid = `{
  "CLBLL_L_X2Y10": {
    "type": "CLBLL_L", "grid_x": 2, "grid_y": 10,
    "sites": {"SLICE_X0Y10": "SLICEL", "SLICE_X1Y10": "SLICEL"},
    "bits": {"CLB_IO_CLK": {"baseaddr": "0x00020500", "frames": 36, "offset": 0, "words": 2}}
  },
  "VBRK_X5Y10": {"type": "VBRK", "grid_x": 5, "grid_y": 10, "sites": {}, "bits": {}}
}`

const testBits = `bit_00020500_000_08
bit_00020500_000_17
bit_00020500_002_00
`

const testTags = `tile CLBLL_L_X2Y10 FOO 1
site SLICE_X1Y10 AFF.ZINI 0
`

const wantSegdata = `seg 00020500_000
bit 00_08
bit 00_17
tag CLBLL.FOO 1
tag CLBLL.SLICE_X1.AFF.ZINI 0

`

// writeFixture creates a file under dir and returns its path.
func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// resetFlags restores every command's flag variables to their defaults so
// that runs do not leak into each other.
func resetFlags() {
	verbose = false
	logLevel = "warn"
	logFormat = "text"

	dbPath, bitsPath, tagsPath, outDir, groupKey = "", "", "", ".", ""
	compileJSON, compileSExp, compileLimit = "", "", 0

	defaultBlock, onlyTypes, ignoreFiltered, allowEmpty = "", "", false, false
	maskPath, maxFrames, outCompress = "", 0, "none"
	s3Endpoint, s3Bucket, s3Prefix, s3Secure = "localhost:9000", "", "", false
	s3AccessKey, s3SecretKey = os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY")

	batchJobs, batchBitsName, batchTagsName = runtime.NumCPU(), "design.bits", "tags.txt"
	batchOutDir, batchGroupDir, batchDBPath = "", false, ""

	inspectFormat = "text"
	zgSite, zgPrefix, zgValues, zgZero, zgObserved = "", "", nil, "", ""
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking on Windows
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	resetFlags()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// Restore stdout and wait for reader
	w.Close()
	os.Stdout = old
	<-done

	return buf.String(), err
}

func TestCompileE2E(t *testing.T) {
	dir := t.TempDir()
	db := writeFixture(t, dir, "tilegrid.json", testGrid)
	bitsFile := writeFixture(t, dir, "design.bits", testBits)
	tagsFile := writeFixture(t, dir, "tags.txt", testTags)
	out := filepath.Join(dir, "out")
	jsonOut := filepath.Join(dir, "export", "segs.json")

	output, err := execute(t, "compile", "--db", db, "--bits", bitsFile, "--tags", tagsFile,
		"--out", out, "--json", jsonOut)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	for _, want := range []string{
		"Segment Compilation Complete",
		"Captured bits:         3",
		"Tag observations:      2",
		"Segments:              1",
		"segdata_clbll.txt",
		"JSON segments saved to",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q\nGot: %s", want, output)
		}
	}

	got, err := os.ReadFile(filepath.Join(out, "segdata_clbll.txt"))
	if err != nil {
		t.Fatalf("Failed to read segment file: %v", err)
	}
	if string(got) != wantSegdata {
		t.Errorf("Segment file mismatch:\ngot:\n%s\nwant:\n%s", got, wantSegdata)
	}

	data, err := os.ReadFile(jsonOut)
	if err != nil {
		t.Fatalf("Failed to read JSON export: %v", err)
	}
	if !strings.Contains(string(data), `"segment": "00020500_000"`) {
		t.Errorf("JSON export missing segment key: %s", data)
	}
}

func TestCompileErrorsE2E(t *testing.T) {
	dir := t.TempDir()
	db := writeFixture(t, dir, "tilegrid.json", testGrid)
	bitsFile := writeFixture(t, dir, "design.bits", testBits)

	tests := []struct {
		name    string
		tags    string
		extra   []string
		wantErr string
	}{
		{
			name:    "unknown site",
			tags:    "site SLICE_X9Y99 A 1\n",
			wantErr: `unknown site "SLICE_X9Y99"`,
		},
		{
			name:    "filtered tile tags",
			tags:    testTags,
			extra:   []string{"--only-types", "^INT"},
			wantErr: "not consumed",
		},
		{
			name:    "bad compression",
			tags:    testTags,
			extra:   []string{"--compress", "gzip"},
			wantErr: "unknown compression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tagsFile := writeFixture(t, t.TempDir(), "tags.txt", tt.tags)
			args := append([]string{"compile", "--db", db, "--bits", bitsFile, "--tags", tagsFile,
				"--out", t.TempDir()}, tt.extra...)
			output, err := execute(t, args...)
			if err == nil {
				t.Fatalf("Expected error but got none\nOutput: %s", output)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCompileMaskE2E(t *testing.T) {
	dir := t.TempDir()
	db := writeFixture(t, dir, "tilegrid.json", testGrid)
	bitsFile := writeFixture(t, dir, "design.bits", testBits)
	tagsFile := writeFixture(t, dir, "tags.txt", testTags)
	mask := writeFixture(t, dir, "mask.txt", "# always set\n00_17\n")
	out := filepath.Join(dir, "out")

	output, err := execute(t, "compile", "--db", db, "--bits", bitsFile, "--tags", tagsFile,
		"--out", out, "--mask", mask, "--group", "run1", "--compress", "zstd")
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	output, err = execute(t, "inspect", "-v", filepath.Join(out, "segdata_clbll_run1.txt.zst"))
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "bit 00_08") {
		t.Errorf("Expected bit 00_08 in output\nGot: %s", output)
	}
	if strings.Contains(output, "bit 00_17") {
		t.Errorf("Masked bit 00_17 should not appear\nGot: %s", output)
	}
}

func TestBatchE2E(t *testing.T) {
	dir := t.TempDir()
	db := writeFixture(t, dir, "tilegrid.json", testGrid)

	var dirs []string
	for _, name := range []string{"specimen_001", "specimen_002", "specimen_003"} {
		exp := filepath.Join(dir, name)
		writeFixture(t, exp, "design.bits", testBits)
		writeFixture(t, exp, "tags.txt", testTags)
		dirs = append(dirs, exp)
	}
	out := filepath.Join(dir, "segs")

	args := append([]string{"batch", "--db", db, "--jobs", "2", "--out", out, "--group-by-dir"}, dirs...)
	output, err := execute(t, args...)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	for _, want := range []string{"Batch Compilation Complete", "Experiments:           3", "specimen_002"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q\nGot: %s", want, output)
		}
	}

	for _, name := range []string{"specimen_001", "specimen_002", "specimen_003"} {
		got, err := os.ReadFile(filepath.Join(out, name, "segdata_clbll_"+name+".txt"))
		if err != nil {
			t.Fatalf("Failed to read output for %s: %v", name, err)
		}
		if string(got) != wantSegdata {
			t.Errorf("%s: segment file mismatch:\n%s", name, got)
		}
	}
}

func TestBatchMissingCaptureE2E(t *testing.T) {
	dir := t.TempDir()
	db := writeFixture(t, dir, "tilegrid.json", testGrid)
	empty := filepath.Join(dir, "empty")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := execute(t, "batch", "--db", db, empty)
	if err == nil || !strings.Contains(err.Error(), "no design.bits found") {
		t.Errorf("Expected missing capture error, got %v", err)
	}
}

func TestInspectFormatsE2E(t *testing.T) {
	dir := t.TempDir()
	seg := writeFixture(t, dir, "segdata_clbll.txt", wantSegdata)

	tests := []struct {
		format      string
		wantContain []string
	}{
		{"text", []string{"Segments: 1", "Bits:     2", "CLBLL.FOO", "1/1"}},
		{"json", []string{`"tile_type": "CLBLL"`, `"segment_count": 1`}},
		{"sexp", []string{"(segbits", `(tag "CLBLL.FOO" 1)`, "(bit 0 17)"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			output, err := execute(t, "inspect", "--format", tt.format, seg)
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot: %s", want, output)
				}
			}
		})
	}

	if _, err := execute(t, "inspect", "--format", "xml", seg); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestResetFlagsRestoresCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY", "ak")
	t.Setenv("MINIO_SECRET_KEY", "sk")
	s3AccessKey, s3SecretKey = "left-over", "left-over"

	resetFlags()
	if s3AccessKey != "ak" || s3SecretKey != "sk" {
		t.Errorf("Expected env credentials, got %q/%q", s3AccessKey, s3SecretKey)
	}
}

func TestZeroGroupE2E(t *testing.T) {
	output, err := execute(t, "zerogroup", "--site", "RAMB18_X0Y40", "--prefix", "W_",
		"--values", "4,8,12,16", "--zero", "12", "--observed", "8")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "site RAMB18_X0Y40 W_12 0\nsite RAMB18_X0Y40 W_8 1\n"
	if output != want {
		t.Errorf("Unexpected output:\ngot:  %q\nwant: %q", output, want)
	}

	if _, err := execute(t, "zerogroup", "--site", "RAMB18_X0Y40", "--values", "4,8",
		"--zero", "4", "--observed", "5"); err == nil {
		t.Error("Expected error for value outside the group")
	}
}
