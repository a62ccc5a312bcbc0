package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/segmaker"
	"github.com/spf13/cobra"
)

var (
	// Flags for compile command
	dbPath       string
	bitsPath     string
	tagsPath     string
	outDir       string
	groupKey     string
	compileJSON  string
	compileSExp  string
	compileLimit int // timeout in seconds
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile one capture and its tags into segment files",
	Long: `Build the segments of one fuzzer run and write one segment file per
canonical tile type.

For every tile of the device database the command selects the tile's
configuration block, collects the captured bits inside the block's address
window and attaches the tags recorded on the tile and its sites under
position-independent names. Every tag must land in a segment.

Examples:
  # One run, plain text output
  segmaker compile --db tilegrid.json --bits design.bits --tags tags.txt --out build

  # BRAM tiles have two blocks; pick the configuration block explicitly
  segmaker compile --db tilegrid.json --bits design.bits.zst --tags tags.txt \
    --default-block BLOCK_RAM --only-types "^BRAM" --ignore-filtered --out build

  # Exclude always-set bits and publish to a bucket
  segmaker compile --db tilegrid.json --bits design.bits --tags tags.txt \
    --mask mask_clbll.txt --s3-bucket segbits --s3-prefix clb/0042 --compress zstd`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&dbPath, "db", "d", "",
		"tile grid database (JSON, optionally .zst/.lz4)")
	compileCmd.Flags().StringVarP(&bitsPath, "bits", "b", "",
		"captured bit list (bit_<frame>_<word>_<bit> per line)")
	compileCmd.Flags().StringVarP(&tagsPath, "tags", "t", "",
		"tag observation file (site|tile <key> <name> <0|1> per line)")
	compileCmd.Flags().StringVarP(&outDir, "out", "o", ".",
		"output directory for segment files")
	compileCmd.Flags().StringVarP(&groupKey, "group", "g", "",
		"suffix appended to output file names (segdata_<type>_<group>.txt)")
	compileCmd.Flags().StringVar(&compileJSON, "json", "",
		"also export the segments as JSON to this path")
	compileCmd.Flags().StringVar(&compileSExp, "sexp", "",
		"also export the segments as an s-expression to this path")
	compileCmd.Flags().IntVar(&compileLimit, "timeout", 0,
		"timeout in seconds (0 = no timeout)")
	addRecorderFlags(compileCmd)

	compileCmd.MarkFlagRequired("db")
	compileCmd.MarkFlagRequired("bits")
}

func runCompile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if compileLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(compileLimit)*time.Second)
		defer cancel()
	}

	if verbose {
		fmt.Printf("Loading tile database from: %s\n", dbPath)
	}
	db, err := loadDatabase(ctx, dbPath)
	if err != nil {
		return err
	}

	filter, maskCount, err := loadFilter()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Printf("Tiles: %d\n", db.Len())
		if onlyTypes != "" {
			fmt.Printf("  • Tile type filter: %s\n", onlyTypes)
		}
		if defaultBlock != "" {
			fmt.Printf("  • Default block: %s\n", defaultBlock)
		}
		if maskCount > 0 {
			fmt.Printf("  • Masked bits: %d\n", maskCount)
		}
		if maxFrames > 0 {
			fmt.Printf("  • Frame limit: %d\n", maxFrames)
		}
		fmt.Println()
	}

	res, err := runExperiment(ctx, db, experiment{
		Name:     groupKey,
		BitsPath: bitsPath,
		TagsPath: tagsPath,
		OutDir:   outDir,
		GroupKey: groupKey,
	}, filter)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	printRunSummary(res)

	segs := res.Recorder.Segments()
	if compileJSON != "" {
		data, err := segmaker.ExportJSON(segs)
		if err != nil {
			return fmt.Errorf("failed to export JSON: %w", err)
		}
		if err := writeFile(compileJSON, data); err != nil {
			return err
		}
		fmt.Printf("\n✓ JSON segments saved to: %s\n", compileJSON)
	}
	if compileSExp != "" {
		data, err := segmaker.ExportSExp(segs)
		if err != nil {
			return fmt.Errorf("failed to export s-expression: %w", err)
		}
		if err := writeFile(compileSExp, []byte(data)); err != nil {
			return err
		}
		fmt.Printf("✓ S-expression segments saved to: %s\n", compileSExp)
	}

	return nil
}

// printRunSummary displays the statistics of one run
func printRunSummary(res *runResult) {
	st := res.Stats

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║ Segment Compilation Complete                                   ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Printf("Captured bits:         %d\n", res.Bits)
	fmt.Printf("Tag observations:      %d\n", res.Tags)
	fmt.Printf("Tiles visited:         %d\n", st.Tiles)
	if st.TilesFiltered > 0 {
		fmt.Printf("Tiles filtered:        %d\n", st.TilesFiltered)
	}
	fmt.Printf("Tiles without bits:    %d\n", st.TilesWithoutBits)
	fmt.Printf("Segments:              %d\n", st.Segments)
	fmt.Printf("Candidate bits:        %d\n", st.Bits)
	fmt.Printf("Tags consumed:         %d\n", st.TagsConsumed)
	if st.TagsDropped > 0 {
		fmt.Printf("Tags dropped:          %d\n", st.TagsDropped)
	}
	if st.TagCollisions > 0 {
		fmt.Printf("Tag collisions:        %d\n", st.TagCollisions)
	}
	fmt.Printf("Time elapsed:          %s\n", res.Elapsed.Round(time.Millisecond))

	if len(res.Files) == 0 {
		fmt.Println("\n⚠ No segments produced, nothing written.")
		return
	}

	fmt.Printf("\nWrote %d file(s) to %s:\n", len(res.Files), res.Dest)
	for _, name := range res.Files {
		fmt.Printf("  • %s\n", name)
	}

	if verbose {
		fmt.Println("\nSegments:")
		for _, seg := range res.Recorder.Segments() {
			fmt.Printf("  %-8s %s  bits=%-4d tags=%-4d tiles=%s\n",
				seg.TileType, seg.Key, seg.BitCount(), len(seg.Tags), strings.Join(seg.Tiles, ","))
		}
	}
}
