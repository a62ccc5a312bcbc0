package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/segmaker"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <segdata file>...",
	Short: "Summarize or convert segment files",
	Long: `Read segment files written by compile and print a summary, or convert
them to JSON or an s-expression.

Examples:
  segmaker inspect build/segdata_clbll.txt
  segmaker inspect -v build/segdata_*.txt.zst        # List every bit and tag
  segmaker inspect --format json build/segdata_bram.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text",
		"output format (text, json, sexp)")
}

// tileTypeFromName recovers the tile type from a segdata_<type>[_group].txt
// file name. The group suffix cannot be told apart, so it is kept.
func tileTypeFromName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, compress.FromPath(name).Ext())
	name = strings.TrimSuffix(name, ".txt")
	name = strings.TrimPrefix(name, "segdata_")
	return strings.ToUpper(name)
}

func readSegmentFile(path string) ([]*segmaker.Segment, error) {
	rc, err := compress.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	segs, err := segmaker.ReadSegments(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tt := tileTypeFromName(path)
	for _, seg := range segs {
		seg.TileType = tt
	}
	return segs, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	var all []*segmaker.Segment
	perFile := make(map[string][]*segmaker.Segment, len(args))
	for _, path := range args {
		segs, err := readSegmentFile(path)
		if err != nil {
			return fmt.Errorf("failed to read segments: %w", err)
		}
		perFile[path] = segs
		all = append(all, segs...)
	}

	switch inspectFormat {
	case "json":
		data, err := segmaker.ExportJSON(all)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "sexp":
		out, err := segmaker.ExportSExp(all)
		if err != nil {
			return err
		}
		fmt.Print(out)
	case "text":
		for _, path := range args {
			printSegmentFile(path, perFile[path])
		}
	default:
		return fmt.Errorf("unknown format %q (want text, json or sexp)", inspectFormat)
	}
	return nil
}

// printSegmentFile displays per-segment counts and the tags seen in a file
func printSegmentFile(path string, segs []*segmaker.Segment) {
	fmt.Printf("=== %s ===\n", path)
	fmt.Printf("Segments: %d\n", len(segs))

	tagTrue := make(map[string]int)
	tagSeen := make(map[string]int)
	bitsTotal := 0
	for _, seg := range segs {
		bitsTotal += seg.BitCount()
		for name, v := range seg.Tags {
			tagSeen[name]++
			if v {
				tagTrue[name]++
			}
		}
	}
	fmt.Printf("Bits:     %d\n", bitsTotal)
	fmt.Printf("Tags:     %d distinct\n", len(tagSeen))

	if len(tagSeen) > 0 {
		names := make([]string, 0, len(tagSeen))
		for name := range tagSeen {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("\nTag coverage (set/seen):")
		for _, name := range names {
			fmt.Printf("  %-48s %d/%d\n", name, tagTrue[name], tagSeen[name])
		}
	}

	if verbose {
		fmt.Println()
		for _, seg := range segs {
			fmt.Printf("  seg %s\n", seg.Key)
			for _, b := range seg.BitNames() {
				fmt.Printf("    bit %s\n", b)
			}
			for _, name := range seg.TagNames() {
				fmt.Printf("    tag %s %v\n", name, seg.Tags[name])
			}
		}
	}
	fmt.Println()
}
