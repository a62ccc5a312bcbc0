package segmaker

import (
	"regexp"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/diag"
)

// Config controls how a Recorder compiles and writes segments.
type Config struct {
	// Block selection
	DefaultBlockType string // Block used for tiles with several blocks (e.g. "CLB_IO_CLK")

	// Tile filtering
	OnlyTileTypes      string // If set, only compile tiles whose physical type matches this regex
	IgnoreFilteredTags bool   // Count tags on filtered-out tiles as dropped instead of unconsumed

	// Output
	AllowEmpty bool // Write succeeds with zero segments

	Logger *diag.Logger // Defaults to a no-op logger

	// Internal compiled regex
	tileRegex *regexp.Regexp
}

// DefaultConfig returns a Config suitable for most fuzzers.
func DefaultConfig() *Config {
	return &Config{
		DefaultBlockType:   "",
		OnlyTileTypes:      "",
		IgnoreFilteredTags: false,
		AllowEmpty:         false,
	}
}

// Validate checks the configuration for errors and compiles any regex patterns.
func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = diag.NoopLogger()
	}

	c.tileRegex = nil
	if c.OnlyTileTypes != "" {
		regex, err := regexp.Compile(c.OnlyTileTypes)
		if err != nil {
			return err
		}
		c.tileRegex = regex
	}

	return nil
}

// ShouldCompileTile returns true if tiles of the given physical type should
// be compiled based on the OnlyTileTypes filter.
func (c *Config) ShouldCompileTile(tileType string) bool {
	if c.tileRegex == nil {
		return true
	}
	return c.tileRegex.MatchString(tileType)
}
