package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// Flags for batch command
	batchJobs     int
	batchBitsName string
	batchTagsName string
	batchOutDir   string
	batchGroupDir bool
	batchDBPath   string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>...",
	Short: "Compile many experiment directories concurrently",
	Long: `Run compile over several experiment directories at once.

Each directory holds the capture of one fuzzer iteration (design.bits, or
design.bits.zst / design.bits.lz4) and optionally its tag observations
(tags.txt). Segment files are written back into the directory, or under
--out/<dir name> when --out is given. All runs share the tile database.

The first failing run cancels the remaining ones.

Examples:
  segmaker batch --db tilegrid.json build/specimen_*
  segmaker batch --db tilegrid.json --jobs 4 --group-by-dir --out segs build/specimen_*`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchDBPath, "db", "d", "",
		"tile grid database (JSON, optionally .zst/.lz4)")
	batchCmd.Flags().IntVarP(&batchJobs, "jobs", "j", runtime.NumCPU(),
		"number of experiments compiled concurrently")
	batchCmd.Flags().StringVar(&batchBitsName, "bits-name", "design.bits",
		"capture file name inside each directory")
	batchCmd.Flags().StringVar(&batchTagsName, "tags-name", "tags.txt",
		"tag file name inside each directory (skipped if absent)")
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "",
		"write segment files to <out>/<dir name> instead of each directory")
	batchCmd.Flags().BoolVar(&batchGroupDir, "group-by-dir", false,
		"use each directory name as the output group key")
	addRecorderFlags(batchCmd)

	batchCmd.MarkFlagRequired("db")
}

// findInput returns dir/name, or its first compressed variant that exists.
func findInput(dir, name string) (string, bool) {
	for _, ext := range []string{"", ".zst", ".lz4"} {
		p := filepath.Join(dir, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// planBatch turns the directory arguments into experiments.
func planBatch(dirs []string) ([]experiment, error) {
	exps := make([]experiment, 0, len(dirs))
	for _, dir := range dirs {
		name := filepath.Base(filepath.Clean(dir))
		bitsFile, ok := findInput(dir, batchBitsName)
		if !ok {
			return nil, fmt.Errorf("%s: no %s found", dir, batchBitsName)
		}
		tagsFile, _ := findInput(dir, batchTagsName)

		exp := experiment{
			Name:     name,
			BitsPath: bitsFile,
			TagsPath: tagsFile,
			OutDir:   dir,
		}
		if batchOutDir != "" {
			exp.OutDir = filepath.Join(batchOutDir, name)
		}
		if batchGroupDir {
			exp.GroupKey = name
		}
		exps = append(exps, exp)
	}
	return exps, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	ctx := context.Background()

	exps, err := planBatch(args)
	if err != nil {
		return err
	}

	db, err := loadDatabase(ctx, batchDBPath)
	if err != nil {
		return err
	}
	filter, _, err := loadFilter()
	if err != nil {
		return err
	}

	fmt.Printf("Compiling %d experiment(s) with %d job(s)...\n\n", len(exps), batchJobs)

	results := make([]*runResult, len(exps))
	g, gctx := errgroup.WithContext(ctx)
	if batchJobs > 0 {
		g.SetLimit(batchJobs)
	}
	for i, exp := range exps {
		i, exp := i, exp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := runExperiment(gctx, db, exp, filter)
			if err != nil {
				return fmt.Errorf("%s: %w", exp.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	printBatchSummary(results, time.Since(startTime))
	return nil
}

// printBatchSummary displays one line per experiment and the totals
func printBatchSummary(results []*runResult, elapsed time.Duration) {
	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║ Batch Compilation Complete                                     ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Printf("%-24s %8s %8s %8s %6s\n", "EXPERIMENT", "BITS", "TAGS", "SEGS", "FILES")
	var bitsTotal, tagsTotal, segsTotal int
	for _, res := range results {
		fmt.Printf("%-24s %8d %8d %8d %6d\n",
			res.Name, res.Bits, res.Tags, res.Stats.Segments, len(res.Files))
		bitsTotal += res.Bits
		tagsTotal += res.Tags
		segsTotal += res.Stats.Segments
	}
	fmt.Println()
	fmt.Printf("Experiments:           %d\n", len(results))
	fmt.Printf("Captured bits:         %d\n", bitsTotal)
	fmt.Printf("Tag observations:      %d\n", tagsTotal)
	fmt.Printf("Segments:              %d\n", segsTotal)
	fmt.Printf("Time elapsed:          %s\n", elapsed.Round(time.Millisecond))
}
