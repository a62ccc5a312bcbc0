package segmaker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/sexp"
)

type segmentJSON struct {
	TileType string          `json:"tile_type"`
	Segment  string          `json:"segment"`
	Offset   int             `json:"offset"`
	Words    int             `json:"words"`
	Frames   int             `json:"frames"`
	Tiles    []string        `json:"tiles"`
	Bits     []string        `json:"bits"`
	Tags     map[string]bool `json:"tags"`
}

// ExportJSON exports segments to JSON. Map keys are emitted sorted, so the
// output is as stable as the text format.
func ExportJSON(segs []*Segment) ([]byte, error) {
	out := make([]segmentJSON, 0, len(segs))
	for _, seg := range segs {
		out = append(out, segmentJSON{
			TileType: seg.TileType,
			Segment:  seg.Key.String(),
			Offset:   seg.Key.WordOffset,
			Words:    seg.Words,
			Frames:   seg.Frames,
			Tiles:    seg.Tiles,
			Bits:     seg.BitNames(),
			Tags:     seg.Tags,
		})
	}

	output := struct {
		Version      string        `json:"version"`
		SegmentCount int           `json:"segment_count"`
		Segments     []segmentJSON `json:"segments"`
		GeneratedBy  string        `json:"generated_by"`
	}{
		Version:      "1.0",
		SegmentCount: len(out),
		Segments:     out,
		GeneratedBy:  "segmaker feature-bit correlation",
	}

	return json.MarshalIndent(output, "", "  ")
}

// ExportSExp exports segments as one s-expression:
//
//	(segbits (version "1.0")
//	  (segment (type "CLBLL") (key "00020500_000")
//	    (bit 0 8)
//	    (tag "CLBLL.FOO" 1)))
//
// The result is parsed back before it is returned so that malformed names
// surface as an error here rather than in a downstream reader.
func ExportSExp(segs []*Segment) (string, error) {
	var b strings.Builder
	b.WriteString("(segbits (version \"1.0\")\n")
	for _, seg := range segs {
		fmt.Fprintf(&b, "  (segment (type %s) (key %s) (frames %d) (words %d)\n",
			strconv.Quote(seg.TileType), strconv.Quote(seg.Key.String()), seg.Frames, seg.Words)
		for _, p := range seg.Bits() {
			fmt.Fprintf(&b, "    (bit %d %d)\n", p.Frame, p.Bit)
		}
		for _, name := range seg.TagNames() {
			v := 0
			if seg.Tags[name] {
				v = 1
			}
			fmt.Fprintf(&b, "    (tag %s %d)\n", strconv.Quote(name), v)
		}
		b.WriteString("  )\n")
	}
	b.WriteString(")\n")

	out := b.String()
	parsed, err := sexp.ParseString(out)
	if err != nil {
		return "", fmt.Errorf("segmaker: s-expression export: %w", err)
	}
	if len(parsed) != 1 || parsed[0].IsLeaf() {
		return "", fmt.Errorf("segmaker: s-expression export: expected one list, got %d expressions", len(parsed))
	}
	return out, nil
}
