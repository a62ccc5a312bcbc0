package canon

import "regexp"

// tileTypeRules are applied in order. Each strips one positional variant so
// that mirror-image tiles collapse onto the same canonical type. Mirrored
// tiles are assumed to share bit semantics; nothing here verifies that.
var tileTypeRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Row-letter variants of I/O columns (LIOI3_TBYTESRC, RIOB33_SING)
	{regexp.MustCompile(`_(TBYTESRC|TBYTETERM|SING)$`), ""},
	// Top/bottom halves, optionally mirrored (CMT_TOP_L, BRAM_BOT)
	{regexp.MustCompile(`_(TOP|BOT)(_[LR])?$`), ""},
	// Left/right mirrors (CLBLL_L, INT_R)
	{regexp.MustCompile(`_[LR]$`), ""},
	// I/O families carry the side as a leading letter (LIOI3, RIOB33)
	{regexp.MustCompile(`^[LR](IOI3|IOI|IOB33|IOB18)`), "${1}"},
}

// NormalizeTileType maps a physical tile type onto its canonical,
// position-independent type. Unknown types are returned unchanged.
func NormalizeTileType(tileType string) string {
	for _, rule := range tileTypeRules {
		tileType = rule.re.ReplaceAllString(tileType, rule.repl)
	}
	return tileType
}
