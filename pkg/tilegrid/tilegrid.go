package tilegrid

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
)

var (
	// ErrNoBlocks is returned by SelectBlock for tiles without configuration bits.
	ErrNoBlocks = errors.New("tilegrid: tile has no configuration blocks")
	// ErrAmbiguousBlock is returned by SelectBlock when a tile has several
	// blocks and none matches the requested default.
	ErrAmbiguousBlock = errors.New("tilegrid: ambiguous configuration block")
)

// Block is the address window one block type of a tile occupies.
type Block struct {
	BaseAddress uint32
	Frames      int
	Offset      int
	Words       int
}

// Tile is one tile instance of the device.
type Tile struct {
	Name   string
	Type   string
	GridX  int
	GridY  int
	Sites  map[string]string // site instance name -> site type
	Blocks map[string]Block  // block type -> window
}

// SiteNames returns the tile's site instance names, sorted.
func (t *Tile) SiteNames() []string {
	out := make([]string, 0, len(t.Sites))
	for name := range t.Sites {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// BlockTypes returns the tile's block types, sorted.
func (t *Tile) BlockTypes() []string {
	out := make([]string, 0, len(t.Blocks))
	for name := range t.Blocks {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// SelectBlock picks the block that carries this tile's segment: the sole
// block when there is exactly one, otherwise the block named defaultType.
func (t *Tile) SelectBlock(defaultType string) (string, Block, error) {
	switch len(t.Blocks) {
	case 0:
		return "", Block{}, ErrNoBlocks
	case 1:
		for name, b := range t.Blocks {
			return name, b, nil
		}
	}
	if defaultType != "" {
		if b, ok := t.Blocks[defaultType]; ok {
			return defaultType, b, nil
		}
	}
	return "", Block{}, fmt.Errorf("%w: %s has %v", ErrAmbiguousBlock, t.Name, t.BlockTypes())
}

// Database is the tile grid of one device part.
type Database struct {
	tiles    map[string]*Tile
	siteTile map[string]string
}

// New builds a database from tiles and indexes their sites. A site listed
// under two tiles is an error.
func New(tiles []*Tile) (*Database, error) {
	db := &Database{
		tiles:    make(map[string]*Tile, len(tiles)),
		siteTile: make(map[string]string),
	}
	for _, t := range tiles {
		if _, dup := db.tiles[t.Name]; dup {
			return nil, fmt.Errorf("tilegrid: duplicate tile %s", t.Name)
		}
		db.tiles[t.Name] = t
		for site := range t.Sites {
			if owner, dup := db.siteTile[site]; dup {
				return nil, fmt.Errorf("tilegrid: site %s listed in %s and %s", site, owner, t.Name)
			}
			db.siteTile[site] = t.Name
		}
	}
	return db, nil
}

// Tile looks up a tile by name.
func (db *Database) Tile(name string) (*Tile, bool) {
	t, ok := db.tiles[name]
	return t, ok
}

// SiteTile returns the name of the tile owning site.
func (db *Database) SiteTile(site string) (string, bool) {
	name, ok := db.siteTile[site]
	return name, ok
}

// TileNames returns all tile names, sorted.
func (db *Database) TileNames() []string {
	out := make([]string, 0, len(db.tiles))
	for name := range db.tiles {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of tiles.
func (db *Database) Len() int {
	return len(db.tiles)
}

type jsonBlock struct {
	BaseAddr string `json:"baseaddr"`
	Frames   int    `json:"frames"`
	Offset   int    `json:"offset"`
	Words    int    `json:"words"`
}

type jsonTile struct {
	Type  string               `json:"type"`
	GridX int                  `json:"grid_x"`
	GridY int                  `json:"grid_y"`
	Sites map[string]string    `json:"sites"`
	Bits  map[string]jsonBlock `json:"bits"`
}

// Load reads a tile grid JSON document:
//
//	{"<tile>": {"type": .., "grid_x": .., "grid_y": .., "sites": {..},
//	            "bits": {"<block>": {"baseaddr": "0x..", "frames": .., "offset": .., "words": ..}}}}
func Load(r io.Reader) (*Database, error) {
	var raw map[string]jsonTile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("tilegrid: decode: %w", err)
	}

	tiles := make([]*Tile, 0, len(raw))
	for name, jt := range raw {
		t := &Tile{
			Name:   name,
			Type:   jt.Type,
			GridX:  jt.GridX,
			GridY:  jt.GridY,
			Sites:  jt.Sites,
			Blocks: make(map[string]Block, len(jt.Bits)),
		}
		if t.Sites == nil {
			t.Sites = map[string]string{}
		}
		for bt, jb := range jt.Bits {
			base, err := strconv.ParseUint(jb.BaseAddr, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("tilegrid: %s.%s: bad baseaddr %q: %w", name, bt, jb.BaseAddr, err)
			}
			if jb.Frames < 0 || jb.Offset < 0 || jb.Words < 0 {
				return nil, fmt.Errorf("tilegrid: %s.%s: negative geometry", name, bt)
			}
			t.Blocks[bt] = Block{
				BaseAddress: uint32(base),
				Frames:      jb.Frames,
				Offset:      jb.Offset,
				Words:       jb.Words,
			}
		}
		tiles = append(tiles, t)
	}
	return New(tiles)
}

// LoadFile reads a tile grid from path (optionally .zst or .lz4 compressed).
func LoadFile(path string) (*Database, error) {
	f, err := compress.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tilegrid: open %s: %w", path, err)
	}
	defer f.Close()
	db, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}
