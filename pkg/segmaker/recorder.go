package segmaker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/bits"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/canon"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/tilegrid"
)

// Stats summarizes the last compile pass.
type Stats struct {
	Tiles            int // Tiles visited
	TilesFiltered    int // Tiles skipped by OnlyTileTypes
	TilesWithoutBits int // Tiles with no configuration block
	Segments         int
	Bits             int // Candidate bits across all segments
	TagsRecorded     int
	TagsConsumed     int
	TagsDropped      int // Tags on filtered tiles, with IgnoreFilteredTags
	TagCollisions    int // Tags whose canonical name was already set in the segment
}

// Recorder owns the state of one run: the bit index of a capture, the
// device database, the tag observations and the compiled segments.
//
// A Recorder is not safe for concurrent use.
type Recorder struct {
	cfg   *Config
	db    *tilegrid.Database
	index *bits.Index
	tags  *TagStore

	segments map[string]map[SegmentKey]*Segment // canonical tile type -> key -> segment
	stats    Stats
	compiled bool
}

// New creates a recorder over a loaded device database and bit index.
// cfg may be nil, in which case DefaultConfig is used. The recorder keeps its
// own copy of cfg; later changes by the caller have no effect.
func New(db *tilegrid.Database, index *bits.Index, cfg *Config) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("segmaker: nil tile database")
	}
	if index == nil {
		index = bits.NewIndex()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	cfg = &c
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("segmaker: invalid config: %w", err)
	}
	return &Recorder{
		cfg:   cfg,
		db:    db,
		index: index,
		tags:  NewTagStore(),
	}, nil
}

// SetDefaultBlockType selects the block used for tiles with several blocks.
func (r *Recorder) SetDefaultBlockType(blockType string) {
	r.cfg.DefaultBlockType = blockType
}

// Tags returns the recorder's tag store.
func (r *Recorder) Tags() *TagStore {
	return r.tags
}

// AddSiteTag records a tag against a site instance.
func (r *Recorder) AddSiteTag(site, name string, value bool) error {
	if !validToken(site) || !validToken(name) {
		return &InvalidTagNameError{Scope: ScopeSite, Key: site, Name: name}
	}
	if _, ok := r.db.SiteTile(site); !ok {
		return &UnknownScopeError{Scope: ScopeSite, Key: site}
	}
	r.tags.set(ScopeSite, site, name, value)
	return nil
}

// AddTileTag records a tag against a tile instance.
func (r *Recorder) AddTileTag(tile, name string, value bool) error {
	if !validToken(tile) || !validToken(name) {
		return &InvalidTagNameError{Scope: ScopeTile, Key: tile, Name: name}
	}
	if _, ok := r.db.Tile(tile); !ok {
		return &UnknownScopeError{Scope: ScopeTile, Key: tile}
	}
	r.tags.set(ScopeTile, tile, name, value)
	return nil
}

// validToken reports whether s survives the whitespace-delimited segment
// format as a single token.
func validToken(s string) bool {
	return s != "" && !strings.ContainsFunc(s, func(r rune) bool {
		return r == '#' || unicode.IsSpace(r)
	})
}

// AddSiteGroupZero records one observation of an enumerated site attribute
// using the ZeroGroup encoding. Tags are named prefix+value.
func (r *Recorder) AddSiteGroupZero(site, prefix string, values []string, zero, observed string) error {
	group, err := ZeroGroup(values, zero, observed)
	if err != nil {
		return err
	}
	for v := range group {
		if !validToken(prefix + v) {
			return &InvalidTagNameError{Scope: ScopeSite, Key: site, Name: prefix + v}
		}
	}
	for _, v := range sortedKeys(group) {
		if err := r.AddSiteTag(site, prefix+v, group[v]); err != nil {
			return err
		}
	}
	return nil
}

// Compile builds the segments from the device database, the bit index and
// the recorded tags. filter, if non-nil, is consulted for every candidate bit
// and drops it by returning false.
//
// Compile fails on the first inconsistency: a tile with an ambiguous block, two
// tiles disagreeing on a shared segment's geometry, or tag observations that
// did not reach any segment. A failed Compile leaves no segments behind.
func (r *Recorder) Compile(filter BitFilter) error {
	ctx := context.Background()
	r.segments = make(map[string]map[SegmentKey]*Segment)
	r.stats = Stats{TagsRecorded: r.tags.Len()}
	r.compiled = false

	consumed := make(map[obsKey]bool, r.tags.Len())
	for _, name := range r.db.TileNames() {
		tile, _ := r.db.Tile(name)
		r.stats.Tiles++

		if !r.cfg.ShouldCompileTile(tile.Type) {
			r.stats.TilesFiltered++
			if r.cfg.IgnoreFilteredTags {
				r.stats.TagsDropped += r.dropTags(tile, consumed)
			}
			continue
		}

		_, block, err := tile.SelectBlock(r.cfg.DefaultBlockType)
		if errors.Is(err, tilegrid.ErrNoBlocks) {
			r.stats.TilesWithoutBits++
			continue
		}
		if err != nil {
			r.segments = nil
			err = &AmbiguousBlockError{
				Tile:             name,
				BlockTypes:       tile.BlockTypes(),
				DefaultBlockType: r.cfg.DefaultBlockType,
				cause:            err,
			}
			r.cfg.Logger.LogCompile(ctx, r.stats.Tiles, 0, 0, err)
			return err
		}

		tileType := canon.NormalizeTileType(tile.Type)
		seg, err := r.segmentFor(tileType, name, block, filter)
		if err != nil {
			r.segments = nil
			r.cfg.Logger.LogCompile(ctx, r.stats.Tiles, 0, 0, err)
			return err
		}
		r.transferTags(seg, tile, tileType, consumed)
	}

	r.stats.TagsConsumed = len(consumed) - r.stats.TagsDropped
	if len(consumed) != r.tags.Len() {
		var missing []Observation
		for _, o := range r.tags.Observations() {
			if !consumed[obsKey{o.Scope, o.Key, o.Name}] {
				missing = append(missing, o)
			}
		}
		r.segments = nil
		err := &UnconsumedTagError{Missing: missing}
		r.cfg.Logger.LogCompile(ctx, r.stats.Tiles, 0, 0, err)
		return err
	}

	for _, byKey := range r.segments {
		for _, seg := range byKey {
			r.stats.Segments++
			r.stats.Bits += seg.BitCount()
		}
	}
	r.compiled = true
	r.cfg.Logger.LogCompile(ctx, r.stats.Tiles, r.stats.Segments, r.stats.TagsConsumed, nil)
	return nil
}

// segmentFor returns the segment a tile's block resolves to, creating and
// filling it with candidate bits on first use.
func (r *Recorder) segmentFor(tileType, tileName string, block tilegrid.Block, filter BitFilter) (*Segment, error) {
	key := SegmentKey{BaseAddress: block.BaseAddress, WordOffset: block.Offset}
	got := Geometry{Offset: block.Offset, Words: block.Words, Frames: block.Frames}

	byKey, ok := r.segments[tileType]
	if !ok {
		byKey = make(map[SegmentKey]*Segment)
		r.segments[tileType] = byKey
	}

	if seg, ok := byKey[key]; ok {
		if want := seg.Geometry(); want != got {
			return nil, &GeometryMismatchError{
				TileType:  tileType,
				Key:       key,
				FirstTile: seg.Tiles[0],
				Tile:      tileName,
				Want:      want,
				Got:       got,
			}
		}
		seg.Tiles = append(seg.Tiles, tileName)
		return seg, nil
	}

	seg := newSegment(tileType, key, block.Frames, block.Words)
	seg.Tiles = append(seg.Tiles, tileName)
	for _, b := range r.index.Window(block.BaseAddress, block.Offset, block.Words) {
		frameOffset := int(b.FrameAddress) - int(block.BaseAddress)
		if frameOffset < 0 || frameOffset >= block.Frames {
			continue
		}
		bitOffset := 32*(b.Word-block.Offset) + b.Bit
		if filter != nil && !filter(frameOffset, bitOffset) {
			continue
		}
		seg.AddBit(BitPos{Frame: frameOffset, Bit: bitOffset})
	}
	byKey[key] = seg
	return seg, nil
}

// transferTags copies the tile's and its sites' tags into seg under their
// canonical names.
func (r *Recorder) transferTags(seg *Segment, tile *tilegrid.Tile, tileType string, consumed map[obsKey]bool) {
	tileTags := r.tags.tileTags(tile.Name)
	for _, name := range sortedKeys(tileTags) {
		r.insertTag(seg, tileType+"."+name, tileTags[name])
		consumed[obsKey{ScopeTile, tile.Name, name}] = true
	}

	for _, site := range tile.SiteNames() {
		siteTags := r.tags.siteTags(site)
		if len(siteTags) == 0 {
			continue
		}
		siteKey := canon.SiteKey(site)
		for _, name := range sortedKeys(siteTags) {
			r.insertTag(seg, canon.TagName(tileType, siteKey, name), siteTags[name])
			consumed[obsKey{ScopeSite, site, name}] = true
		}
	}
}

// insertTag sets a tag unless the segment already holds it; the first
// writer in tile-name order wins.
func (r *Recorder) insertTag(seg *Segment, name string, value bool) {
	if prev, ok := seg.Tags[name]; ok {
		r.stats.TagCollisions++
		if prev != value {
			r.cfg.Logger.Warn("conflicting tag values in segment",
				"segment", seg.Key.String(),
				"tag", name,
				"kept", prev,
			)
		}
		return
	}
	seg.Tags[name] = value
}

// dropTags marks the tags of a filtered-out tile as consumed and returns how
// many there were.
func (r *Recorder) dropTags(tile *tilegrid.Tile, consumed map[obsKey]bool) int {
	n := 0
	for name := range r.tags.tileTags(tile.Name) {
		consumed[obsKey{ScopeTile, tile.Name, name}] = true
		n++
	}
	for site := range tile.Sites {
		for name := range r.tags.siteTags(site) {
			consumed[obsKey{ScopeSite, site, name}] = true
			n++
		}
	}
	return n
}

// Stats returns statistics of the last compile pass.
func (r *Recorder) Stats() Stats {
	return r.stats
}

// TileTypes returns the canonical tile types that have segments, sorted.
func (r *Recorder) TileTypes() []string {
	return sortedKeys(r.segments)
}

// SegmentsOf returns the segments of one canonical tile type ordered by key.
func (r *Recorder) SegmentsOf(tileType string) []*Segment {
	byKey := r.segments[tileType]
	out := make([]*Segment, 0, len(byKey))
	for _, seg := range byKey {
		out = append(out, seg)
	}
	slices.SortFunc(out, func(a, b *Segment) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return out
}

// Segments returns every segment, ordered by tile type and key.
func (r *Recorder) Segments() []*Segment {
	var out []*Segment
	for _, tt := range r.TileTypes() {
		out = append(out, r.SegmentsOf(tt)...)
	}
	return out
}
