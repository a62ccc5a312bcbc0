package segmaker

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrUnknownScope      = errors.New("segmaker: unknown scope")
	ErrAmbiguousBlock    = errors.New("segmaker: ambiguous configuration block")
	ErrGeometryMismatch  = errors.New("segmaker: segment geometry mismatch")
	ErrUnconsumedTag     = errors.New("segmaker: unconsumed tag")
	ErrEmptyOutput       = errors.New("segmaker: empty output")
	ErrInvalidGroupValue = errors.New("segmaker: invalid group value")
	ErrInvalidTagName    = errors.New("segmaker: invalid tag name")

	// ErrNotCompiled is returned by Write before a successful Compile.
	ErrNotCompiled = errors.New("segmaker: recorder not compiled")
)

// InvalidTagNameError reports a tag name or key that cannot be written to a
// segment file: empty, or containing whitespace or '#'.
type InvalidTagNameError struct {
	Scope Scope
	Key   string
	Name  string
}

func (e *InvalidTagNameError) Error() string {
	return fmt.Sprintf("segmaker: invalid tag %q on %s %q: must be non-empty without whitespace or '#'",
		e.Name, e.Scope, e.Key)
}

func (e *InvalidTagNameError) Is(target error) bool { return target == ErrInvalidTagName }

// UnknownScopeError reports a tag recorded against a site or tile that is not
// in the device database.
type UnknownScopeError struct {
	Scope Scope
	Key   string
}

func (e *UnknownScopeError) Error() string {
	return fmt.Sprintf("segmaker: unknown %s %q", e.Scope, e.Key)
}

func (e *UnknownScopeError) Is(target error) bool { return target == ErrUnknownScope }

// AmbiguousBlockError reports a tile with several configuration blocks and
// no usable default block type.
//
// The underlying tilegrid error can be accessed via errors.Unwrap.
type AmbiguousBlockError struct {
	Tile             string
	BlockTypes       []string
	DefaultBlockType string
	cause            error
}

func (e *AmbiguousBlockError) Error() string {
	msg := fmt.Sprintf("segmaker: tile %s has blocks [%s]", e.Tile, strings.Join(e.BlockTypes, " "))
	if e.DefaultBlockType == "" {
		return msg + " and no default block type is set"
	}
	return msg + fmt.Sprintf(" and none is the default %s", e.DefaultBlockType)
}

func (e *AmbiguousBlockError) Is(target error) bool { return target == ErrAmbiguousBlock }

func (e *AmbiguousBlockError) Unwrap() error { return e.cause }

// Geometry is the shape of a segment's address window.
type Geometry struct {
	Offset int
	Words  int
	Frames int
}

func (g Geometry) String() string {
	return fmt.Sprintf("offset=%d words=%d frames=%d", g.Offset, g.Words, g.Frames)
}

// GeometryMismatchError reports two tiles that resolve to the same segment
// but disagree on its window.
type GeometryMismatchError struct {
	TileType  string
	Key       SegmentKey
	FirstTile string
	Tile      string
	Want      Geometry
	Got       Geometry
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("segmaker: %s segment %s: tile %s has %s but %s has %s",
		e.TileType, e.Key, e.Tile, e.Got, e.FirstTile, e.Want)
}

func (e *GeometryMismatchError) Is(target error) bool { return target == ErrGeometryMismatch }

// UnconsumedTagError lists observations that did not reach any segment,
// usually because their tile carries no configuration bits.
type UnconsumedTagError struct {
	Missing []Observation
}

func (e *UnconsumedTagError) Error() string {
	const shown = 5
	parts := make([]string, 0, shown)
	for i, o := range e.Missing {
		if i == shown {
			parts = append(parts, fmt.Sprintf("... and %d more", len(e.Missing)-shown))
			break
		}
		parts = append(parts, o.String())
	}
	return fmt.Sprintf("segmaker: %d tag observation(s) not consumed: %s",
		len(e.Missing), strings.Join(parts, ", "))
}

func (e *UnconsumedTagError) Is(target error) bool { return target == ErrUnconsumedTag }

// EmptyOutputError reports a write that would produce no segments.
type EmptyOutputError struct {
	GroupKey string
}

func (e *EmptyOutputError) Error() string {
	if e.GroupKey == "" {
		return "segmaker: no segments to write"
	}
	return fmt.Sprintf("segmaker: no segments to write for %s", e.GroupKey)
}

func (e *EmptyOutputError) Is(target error) bool { return target == ErrEmptyOutput }

// InvalidGroupValueError reports a zero-group observation outside the legal
// value set.
type InvalidGroupValueError struct {
	Observed string
	Zero     string
	Values   []string
}

func (e *InvalidGroupValueError) Error() string {
	return fmt.Sprintf("segmaker: value %q is neither in [%s] nor the zero value %q",
		e.Observed, strings.Join(e.Values, " "), e.Zero)
}

func (e *InvalidGroupValueError) Is(target error) bool { return target == ErrInvalidGroupValue }
