package canon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Strategy selects how a site instance name becomes a site key.
type Strategy int

const (
	// StrategyPrefix keys a site by its type prefix (RAMB36_X0Y5 -> RAMB36).
	StrategyPrefix Strategy = iota
	// StrategySliceX keys a slice by the parity of its X coordinate
	// (SLICE_X13Y40 -> SLICE_X1).
	StrategySliceX
	// StrategyPairY keys one of two vertically stacked instances by the
	// parity of its Y coordinate (RAMB18_X0Y41 -> RAMB18_Y1).
	StrategyPairY
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategySliceX:
		return "slice-x"
	case StrategyPairY:
		return "pair-y"
	default:
		return "prefix"
	}
}

// pairedY lists site prefixes that occur twice per tile, stacked in Y.
var pairedY = map[string]bool{
	"RAMB18":  true,
	"FIFO18":  true,
	"IOB":     true,
	"ILOGIC":  true,
	"OLOGIC":  true,
	"IDELAY":  true,
	"ODELAY":  true,
	"ISERDES": true,
	"OSERDES": true,
	"DSP48":   true,
}

var siteNameRe = regexp.MustCompile(`^(.+)_X([0-9]+)Y([0-9]+)$`)

// StrategyFor returns the strategy used for sites with the given prefix.
func StrategyFor(prefix string) Strategy {
	switch {
	case prefix == "SLICE":
		return StrategySliceX
	case pairedY[prefix]:
		return StrategyPairY
	default:
		return StrategyPrefix
	}
}

// Site is a parsed site instance name.
type Site struct {
	Prefix string
	X, Y   int
}

// ParseSite splits a site instance name such as "SLICE_X12Y100" into its
// prefix and coordinates.
func ParseSite(name string) (Site, bool) {
	m := siteNameRe.FindStringSubmatch(name)
	if m == nil {
		return Site{}, false
	}
	x, err := strconv.Atoi(m[2])
	if err != nil {
		return Site{}, false
	}
	y, err := strconv.Atoi(m[3])
	if err != nil {
		return Site{}, false
	}
	return Site{Prefix: m[1], X: x, Y: y}, true
}

// Key returns the canonical key for the site under strategy s.
func (s Site) Key(strategy Strategy) string {
	switch strategy {
	case StrategySliceX:
		return fmt.Sprintf("%s_X%d", s.Prefix, s.X%2)
	case StrategyPairY:
		return fmt.Sprintf("%s_Y%d", s.Prefix, s.Y%2)
	default:
		return s.Prefix
	}
}

// SiteKey maps a site instance name to a position key shared by every
// instance filling the same role in a tile. Names without an embedded
// coordinate are returned unchanged.
func SiteKey(site string) string {
	parsed, ok := ParseSite(site)
	if !ok {
		return site
	}
	return parsed.Key(StrategyFor(parsed.Prefix))
}

// roleInfix drops slice flavours that the site key already implies.
var roleInfix = strings.NewReplacer(".SLICEM.", ".", ".SLICEL.", ".")

// TagName builds the canonical name of a site-scoped tag.
func TagName(tileType, siteKey, name string) string {
	return roleInfix.Replace(tileType + "." + siteKey + "." + name)
}
