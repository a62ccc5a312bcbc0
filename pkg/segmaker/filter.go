package segmaker

// BitFilter decides whether a candidate bit is kept. It receives the
// tile-relative frame and bit offsets and returns false to drop the bit.
type BitFilter func(frameOffset, bitOffset int) bool

// MaskFilter drops every bit listed in mask.
func MaskFilter(mask []BitPos) BitFilter {
	drop := make(map[BitPos]bool, len(mask))
	for _, p := range mask {
		drop[p] = true
	}
	return func(frameOffset, bitOffset int) bool {
		return !drop[BitPos{Frame: frameOffset, Bit: bitOffset}]
	}
}

// FrameRangeFilter keeps only bits whose frame offset lies in [lo, hi).
func FrameRangeFilter(lo, hi int) BitFilter {
	return func(frameOffset, _ int) bool {
		return frameOffset >= lo && frameOffset < hi
	}
}

// AllFilters keeps a bit only when every non-nil filter keeps it.
// It returns nil when no filter is given.
func AllFilters(filters ...BitFilter) BitFilter {
	var active []BitFilter
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(frameOffset, bitOffset int) bool {
		for _, f := range active {
			if !f(frameOffset, bitOffset) {
				return false
			}
		}
		return true
	}
}
