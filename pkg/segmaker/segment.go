package segmaker

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// SegmentKey identifies the address window shared by a group of tiles.
type SegmentKey struct {
	BaseAddress uint32
	WordOffset  int
}

// String renders the key as it appears in segment files ("00020500_000").
func (k SegmentKey) String() string {
	return fmt.Sprintf("%08x_%03d", k.BaseAddress, k.WordOffset)
}

// ParseSegmentKey parses the String form of a key.
func ParseSegmentKey(s string) (SegmentKey, error) {
	base, offset, ok := strings.Cut(s, "_")
	if !ok {
		return SegmentKey{}, fmt.Errorf("segmaker: bad segment key %q", s)
	}
	b, err := strconv.ParseUint(base, 16, 32)
	if err != nil {
		return SegmentKey{}, fmt.Errorf("segmaker: bad segment base %q: %w", s, err)
	}
	o, err := strconv.Atoi(offset)
	if err != nil {
		return SegmentKey{}, fmt.Errorf("segmaker: bad segment offset %q: %w", s, err)
	}
	return SegmentKey{BaseAddress: uint32(b), WordOffset: o}, nil
}

// BitPos is a tile-relative bit position.
type BitPos struct {
	Frame int
	Bit   int
}

// String renders the position as "<frame>_<bit>" with two-digit padding.
func (p BitPos) String() string {
	return fmt.Sprintf("%02d_%02d", p.Frame, p.Bit)
}

// ParseBitPos parses the String form of a position.
func ParseBitPos(s string) (BitPos, error) {
	frame, bit, ok := strings.Cut(s, "_")
	if !ok {
		return BitPos{}, fmt.Errorf("segmaker: bad bit %q", s)
	}
	f, err := strconv.Atoi(frame)
	if err != nil {
		return BitPos{}, fmt.Errorf("segmaker: bad bit frame %q: %w", s, err)
	}
	b, err := strconv.Atoi(bit)
	if err != nil {
		return BitPos{}, fmt.Errorf("segmaker: bad bit offset %q: %w", s, err)
	}
	if f < 0 || f > 0xFFFF || b < 0 || b > 0xFFFF {
		return BitPos{}, fmt.Errorf("segmaker: bit %q out of range", s)
	}
	return BitPos{Frame: f, Bit: b}, nil
}

func (p BitPos) pack() uint32 {
	return uint32(p.Frame)<<16 | uint32(p.Bit)
}

func unpack(v uint32) BitPos {
	return BitPos{Frame: int(v >> 16), Bit: int(v & 0xFFFF)}
}

// Segment pairs the candidate bits of one address window with the tags
// observed on the tiles occupying it.
type Segment struct {
	Key      SegmentKey
	TileType string
	Frames   int
	Words    int
	Tiles    []string
	Tags     map[string]bool

	bits *roaring.Bitmap
}

func newSegment(tileType string, key SegmentKey, frames, words int) *Segment {
	return &Segment{
		Key:      key,
		TileType: tileType,
		Frames:   frames,
		Words:    words,
		Tags:     make(map[string]bool),
		bits:     roaring.New(),
	}
}

// Geometry returns the window shape recorded for the segment.
func (s *Segment) Geometry() Geometry {
	return Geometry{Offset: s.Key.WordOffset, Words: s.Words, Frames: s.Frames}
}

// AddBit adds a candidate bit.
func (s *Segment) AddBit(p BitPos) {
	s.bits.Add(p.pack())
}

// HasBit reports whether p is a candidate bit.
func (s *Segment) HasBit(p BitPos) bool {
	return s.bits.Contains(p.pack())
}

// BitCount returns the number of candidate bits.
func (s *Segment) BitCount() int {
	return int(s.bits.GetCardinality())
}

// Bits returns the candidate bits ordered by their rendered name.
func (s *Segment) Bits() []BitPos {
	out := make([]BitPos, 0, s.bits.GetCardinality())
	it := s.bits.Iterator()
	for it.HasNext() {
		out = append(out, unpack(it.Next()))
	}
	slices.SortFunc(out, func(a, b BitPos) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// BitNames returns the rendered candidate bits, sorted.
func (s *Segment) BitNames() []string {
	bits := s.Bits()
	out := make([]string, len(bits))
	for i, b := range bits {
		out[i] = b.String()
	}
	return out
}

// TagNames returns the tag names, sorted.
func (s *Segment) TagNames() []string {
	return sortedKeys(s.Tags)
}
