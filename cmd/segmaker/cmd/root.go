package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/diag"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose   bool
	logLevel  string
	logFormat string

	logger = diag.NoopLogger()
)

var rootCmd = &cobra.Command{
	Use:   "segmaker",
	Short: "FPGA feature-bit correlation recorder",
	Long: `Correlate the bits set in a bitstream capture with the features a
fuzzer design enabled, and write per tile-type segment files for the solver.

Examples:
  segmaker compile --db tilegrid.json --bits design.bits --tags tags.txt --out build
  segmaker batch --db tilegrid.json --jobs 8 build/0*       # One run per directory
  segmaker inspect build/segdata_clbll.txt                  # Summarize a segment file
  segmaker zerogroup --site RAMB18_X0Y40 --prefix WIDTH_ --values 4,8,12,16 --zero 12 --observed 8`,
	Version:           "0.1.0",
	PersistentPreRunE: setupLogger,
	SilenceUsage:      true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}

// setupLogger builds the structured logger shared by all subcommands. Logs
// go to stderr so that stdout carries only the command's report.
func setupLogger(cmd *cobra.Command, args []string) error {
	level, err := diag.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	l, err := diag.New(os.Stderr, logFormat, level)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
