package segmaker

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentKeyString(t *testing.T) {
	k := SegmentKey{BaseAddress: 0x20500, WordOffset: 7}
	assert.Equal(t, "00020500_007", k.String())

	back, err := ParseSegmentKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, back)

	for _, bad := range []string{"", "00020500", "zz_000", "00020500_x"} {
		_, err := ParseSegmentKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestBitPosString(t *testing.T) {
	assert.Equal(t, "00_08", BitPos{Frame: 0, Bit: 8}.String())
	assert.Equal(t, "35_63", BitPos{Frame: 35, Bit: 63}.String())
	assert.Equal(t, "101_120", BitPos{Frame: 101, Bit: 120}.String())

	p, err := ParseBitPos("27_101")
	require.NoError(t, err)
	assert.Equal(t, BitPos{Frame: 27, Bit: 101}, p)

	_, err = ParseBitPos("27-101")
	assert.Error(t, err)
	_, err = ParseBitPos("-1_3")
	assert.Error(t, err)
}

func TestSegmentBitsSorted(t *testing.T) {
	seg := newSegment("CLBLL", SegmentKey{BaseAddress: 0x400100}, 36, 2)
	seg.AddBit(BitPos{Frame: 1, Bit: 2})
	seg.AddBit(BitPos{Frame: 0, Bit: 63})
	seg.AddBit(BitPos{Frame: 0, Bit: 8})
	seg.AddBit(BitPos{Frame: 0, Bit: 8})

	assert.Equal(t, 3, seg.BitCount())
	assert.Equal(t, []string{"00_08", "00_63", "01_02"}, seg.BitNames())
	assert.True(t, seg.HasBit(BitPos{Frame: 0, Bit: 63}))
	assert.False(t, seg.HasBit(BitPos{Frame: 63, Bit: 0}))
}

func sampleSegments() []*Segment {
	a := newSegment("CLBLL", SegmentKey{BaseAddress: 0x400100, WordOffset: 0}, 36, 2)
	a.Tiles = []string{"CLBLL_L_X2Y0"}
	a.AddBit(BitPos{Frame: 0, Bit: 8})
	a.AddBit(BitPos{Frame: 31, Bit: 17})
	a.Tags["CLBLL.SLICE_X0.AFF.ZINI"] = true
	a.Tags["CLBLL.FOO"] = false

	b := newSegment("CLBLL", SegmentKey{BaseAddress: 0x400100, WordOffset: 2}, 36, 2)
	b.Tiles = []string{"CLBLL_L_X2Y1"}
	b.Tags["CLBLL.FOO"] = true
	return []*Segment{a, b}
}

func TestWriteSegmentsFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSegments(&buf, sampleSegments()))

	want := strings.Join([]string{
		"seg 00400100_000",
		"bit 00_08",
		"bit 31_17",
		"tag CLBLL.FOO 0",
		"tag CLBLL.SLICE_X0.AFF.ZINI 1",
		"",
		"seg 00400100_002",
		"tag CLBLL.FOO 1",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestReadSegmentsRoundTrip(t *testing.T) {
	var first bytes.Buffer
	require.NoError(t, WriteSegments(&first, sampleSegments()))

	segs, err := ReadSegments(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "00400100_000", segs[0].Key.String())
	assert.Equal(t, []string{"00_08", "31_17"}, segs[0].BitNames())
	assert.Equal(t, map[string]bool{"CLBLL.FOO": false, "CLBLL.SLICE_X0.AFF.ZINI": true}, segs[0].Tags)

	var second bytes.Buffer
	require.NoError(t, WriteSegments(&second, segs))
	assert.Equal(t, first.String(), second.String())
}

func TestReadSegmentsErrors(t *testing.T) {
	for name, in := range map[string]string{
		"duplicate": "seg 00400100_000\n\nseg 00400100_000\n",
		"bad key":   "seg nope\n",
		"bad bit":   "seg 00400100_000\nbit 1-2\n",
		"bad value": "seg 00400100_000\ntag A 2\n",
		"no header": "bit 00_01\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSegments(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestReadMask(t *testing.T) {
	in := "# always-set bits\n00_08\nbit 01_17\n\n30_63 # trailing\n"
	mask, err := ReadMask(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []BitPos{{0, 8}, {1, 17}, {30, 63}}, mask)

	_, err = ReadMask(strings.NewReader("00-08\n"))
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(sampleSegments())
	require.NoError(t, err)

	var doc struct {
		SegmentCount int `json:"segment_count"`
		Segments     []struct {
			TileType string          `json:"tile_type"`
			Segment  string          `json:"segment"`
			Frames   int             `json:"frames"`
			Bits     []string        `json:"bits"`
			Tags     map[string]bool `json:"tags"`
		} `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.SegmentCount)
	require.Len(t, doc.Segments, 2)
	assert.Equal(t, "CLBLL", doc.Segments[0].TileType)
	assert.Equal(t, "00400100_000", doc.Segments[0].Segment)
	assert.Equal(t, 36, doc.Segments[0].Frames)
	assert.Equal(t, []string{"00_08", "31_17"}, doc.Segments[0].Bits)
	assert.True(t, doc.Segments[0].Tags["CLBLL.SLICE_X0.AFF.ZINI"])
}

func TestExportSExp(t *testing.T) {
	out, err := ExportSExp(sampleSegments())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "(segbits (version \"1.0\")"))
	assert.Contains(t, out, `(key "00400100_002")`)
	assert.Contains(t, out, "(bit 31 17)")
	assert.Contains(t, out, `(tag "CLBLL.FOO" 0)`)

	empty, err := ExportSExp(nil)
	require.NoError(t, err)
	assert.Equal(t, "(segbits (version \"1.0\")\n)\n", empty)
}

func TestZeroGroup(t *testing.T) {
	values := []string{"4", "8", "12", "16"}

	tests := []struct {
		observed string
		want     map[string]bool
	}{
		{"12", map[string]bool{"4": false, "8": false, "12": true, "16": false}},
		{"8", map[string]bool{"8": true, "12": false}},
		{"16", map[string]bool{"16": true, "12": false}},
	}
	for _, tt := range tests {
		got, err := ZeroGroup(values, "12", tt.observed)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "observed %s", tt.observed)
	}

	// Zero outside the member set: only the observed value is tagged.
	got, err := ZeroGroup(values, "0", "4")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"4": true}, got)

	got, err = ZeroGroup(values, "0", "0")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"4": false, "8": false, "12": false, "16": false}, got)

	_, err = ZeroGroup(values, "12", "5")
	var ige *InvalidGroupValueError
	require.ErrorAs(t, err, &ige)
	assert.Equal(t, "5", ige.Observed)
}
