package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
	"github.com/OpenTraceLab/OpenTraceSegbits/internal/diag"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/bits"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/segmaker"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/sink"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/tagfile"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/tilegrid"
	"github.com/spf13/cobra"
)

// Recorder options shared by compile and batch.
var (
	defaultBlock   string
	onlyTypes      string
	ignoreFiltered bool
	allowEmpty     bool
	maskPath       string
	maxFrames      int
	outCompress    string

	s3Endpoint  string
	s3Bucket    string
	s3Prefix    string
	s3AccessKey string
	s3SecretKey string
	s3Secure    bool
)

func addRecorderFlags(c *cobra.Command) {
	c.Flags().StringVar(&defaultBlock, "default-block", "",
		"block type used for tiles with several blocks (e.g. CLB_IO_CLK)")
	c.Flags().StringVar(&onlyTypes, "only-types", "",
		"only compile tiles whose type matches this regex pattern")
	c.Flags().BoolVar(&ignoreFiltered, "ignore-filtered", false,
		"drop tags on tiles excluded by --only-types instead of failing")
	c.Flags().BoolVar(&allowEmpty, "allow-empty", false,
		"succeed when no segment is produced")
	c.Flags().StringVar(&maskPath, "mask", "",
		"file listing <frame>_<bit> positions to exclude")
	c.Flags().IntVar(&maxFrames, "max-frames", 0,
		"exclude bits at frame offsets >= this value (0 = no limit)")
	c.Flags().StringVar(&outCompress, "compress", "none",
		"compression for segment files (none, zstd, lz4)")

	c.Flags().StringVar(&s3Endpoint, "s3-endpoint", "localhost:9000",
		"S3-compatible endpoint used with --s3-bucket")
	c.Flags().StringVar(&s3Bucket, "s3-bucket", "",
		"upload segment files to this bucket instead of the output directory")
	c.Flags().StringVar(&s3Prefix, "s3-prefix", "",
		"object key prefix for uploaded segment files")
	c.Flags().StringVar(&s3AccessKey, "s3-access-key", os.Getenv("MINIO_ACCESS_KEY"),
		"S3 access key (default $MINIO_ACCESS_KEY)")
	c.Flags().StringVar(&s3SecretKey, "s3-secret-key", os.Getenv("MINIO_SECRET_KEY"),
		"S3 secret key (default $MINIO_SECRET_KEY)")
	c.Flags().BoolVar(&s3Secure, "s3-secure", false,
		"use TLS for the S3 endpoint")
}

// newConfig builds a recorder configuration from the command line flags.
func newConfig(l *diag.Logger) *segmaker.Config {
	cfg := segmaker.DefaultConfig()
	cfg.DefaultBlockType = defaultBlock
	cfg.OnlyTileTypes = onlyTypes
	cfg.IgnoreFilteredTags = ignoreFiltered
	cfg.AllowEmpty = allowEmpty
	cfg.Logger = l
	return cfg
}

// loadFilter builds the bit filter from --mask and --max-frames.
func loadFilter() (segmaker.BitFilter, int, error) {
	var mask []segmaker.BitPos
	if maskPath != "" {
		rc, err := compress.Open(maskPath)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open mask: %w", err)
		}
		defer rc.Close()
		mask, err = segmaker.ReadMask(rc)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read mask %s: %w", maskPath, err)
		}
	}

	var filters []segmaker.BitFilter
	if len(mask) > 0 {
		filters = append(filters, segmaker.MaskFilter(mask))
	}
	if maxFrames > 0 {
		filters = append(filters, segmaker.FrameRangeFilter(0, maxFrames))
	}
	return segmaker.AllFilters(filters...), len(mask), nil
}

// newSink returns the output destination for one run. runName separates
// runs sharing a bucket prefix; it is ignored for directory output.
func newSink(ctx context.Context, outDir, runName string) (segmaker.Sink, string, error) {
	comp, err := compress.ParseType(outCompress)
	if err != nil {
		return nil, "", err
	}

	if s3Bucket == "" {
		return sink.NewDir(outDir, comp), outDir, nil
	}

	client, err := sink.NewClient(sink.ObjectConfig{
		Endpoint:  s3Endpoint,
		AccessKey: s3AccessKey,
		SecretKey: s3SecretKey,
		Secure:    s3Secure,
	})
	if err != nil {
		return nil, "", err
	}
	prefix := path.Join(s3Prefix, runName)
	obj := sink.NewObject(client, s3Bucket, prefix, comp)
	if err := obj.EnsureBucket(ctx); err != nil {
		return nil, "", err
	}
	return obj, "s3://" + path.Join(s3Bucket, prefix), nil
}

// experiment describes one fuzzer run: a capture, its tag observations and
// where the segment files go.
type experiment struct {
	Name     string
	BitsPath string
	TagsPath string // optional
	OutDir   string
	GroupKey string
}

// runResult summarizes one completed run.
type runResult struct {
	Name     string
	Bits     int
	Tags     int
	Stats    segmaker.Stats
	Files    []string
	Dest     string
	Elapsed  time.Duration
	Recorder *segmaker.Recorder
}

// runExperiment loads one capture and its tags, compiles the segments and
// writes them.
func runExperiment(ctx context.Context, db *tilegrid.Database, exp experiment, filter segmaker.BitFilter) (*runResult, error) {
	start := time.Now()
	l := logger.WithRun(exp.Name)

	parser, err := bits.NewParser()
	if err != nil {
		return nil, err
	}
	captured, err := parser.ParseFile(exp.BitsPath)
	l.LogLoad(ctx, "bits", exp.BitsPath, len(captured), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load bits: %w", err)
	}
	ix := bits.NewIndex()
	ix.Load(captured)

	rec, err := segmaker.New(db, ix, newConfig(l))
	if err != nil {
		return nil, err
	}

	if exp.TagsPath != "" {
		tp, err := tagfile.NewParser()
		if err != nil {
			return nil, err
		}
		obs, err := tp.ParseFile(exp.TagsPath)
		l.LogLoad(ctx, "tags", exp.TagsPath, len(obs), err)
		if err != nil {
			return nil, fmt.Errorf("failed to load tags: %w", err)
		}
		if err := tagfile.Apply(rec, obs); err != nil {
			return nil, err
		}
	}

	if err := rec.Compile(filter); err != nil {
		return nil, err
	}

	out, dest, err := newSink(ctx, exp.OutDir, exp.Name)
	if err != nil {
		return nil, err
	}
	if err := rec.Write(ctx, out, exp.GroupKey); err != nil {
		return nil, err
	}

	var files []string
	for _, tt := range rec.TileTypes() {
		files = append(files, segmaker.FileName(tt, exp.GroupKey))
	}

	return &runResult{
		Name:     exp.Name,
		Bits:     ix.Len(),
		Tags:     rec.Tags().Len(),
		Stats:    rec.Stats(),
		Files:    files,
		Dest:     dest,
		Elapsed:  time.Since(start),
		Recorder: rec,
	}, nil
}

// loadDatabase loads the tile grid and logs it.
func loadDatabase(ctx context.Context, path string) (*tilegrid.Database, error) {
	db, err := tilegrid.LoadFile(path)
	n := 0
	if db != nil {
		n = db.Len()
	}
	logger.LogLoad(ctx, "tilegrid", path, n, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load tile database: %w", err)
	}
	return db, nil
}

// writeFile writes data to path, creating its directory if needed.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
