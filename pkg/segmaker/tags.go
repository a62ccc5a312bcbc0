package segmaker

import (
	"fmt"
	"maps"
	"slices"
)

// Scope identifies what a tag observation is keyed by.
type Scope int

const (
	ScopeSite Scope = iota
	ScopeTile
)

func (s Scope) String() string {
	if s == ScopeTile {
		return "tile"
	}
	return "site"
}

// Observation is one recorded tag value.
type Observation struct {
	Scope Scope
	Key   string
	Name  string
	Value bool
}

func (o Observation) String() string {
	v := 0
	if o.Value {
		v = 1
	}
	return fmt.Sprintf("%s %s %s %d", o.Scope, o.Key, o.Name, v)
}

type obsKey struct {
	scope Scope
	key   string
	name  string
}

// TagStore accumulates tag observations keyed by site or tile. Recording the
// same (scope, key, name) again overwrites the earlier value.
type TagStore struct {
	site  map[string]map[string]bool
	tile  map[string]map[string]bool
	count int
}

// NewTagStore creates an empty store.
func NewTagStore() *TagStore {
	return &TagStore{
		site: make(map[string]map[string]bool),
		tile: make(map[string]map[string]bool),
	}
}

func (s *TagStore) set(scope Scope, key, name string, value bool) {
	m := s.site
	if scope == ScopeTile {
		m = s.tile
	}
	tags, ok := m[key]
	if !ok {
		tags = make(map[string]bool)
		m[key] = tags
	}
	if _, seen := tags[name]; !seen {
		s.count++
	}
	tags[name] = value
}

// Site returns a copy of the tags recorded against site.
func (s *TagStore) Site(site string) map[string]bool {
	return maps.Clone(s.site[site])
}

// Tile returns a copy of the tags recorded against tile.
func (s *TagStore) Tile(tile string) map[string]bool {
	return maps.Clone(s.tile[tile])
}

func (s *TagStore) siteTags(site string) map[string]bool { return s.site[site] }

func (s *TagStore) tileTags(tile string) map[string]bool { return s.tile[tile] }

// Len returns the number of distinct observations.
func (s *TagStore) Len() int {
	return s.count
}

// Observations returns every observation, sorted by scope, key and name.
func (s *TagStore) Observations() []Observation {
	out := make([]Observation, 0, s.count)
	for _, scope := range []Scope{ScopeSite, ScopeTile} {
		m := s.site
		if scope == ScopeTile {
			m = s.tile
		}
		for _, key := range sortedKeys(m) {
			tags := m[key]
			for _, name := range sortedKeys(tags) {
				out = append(out, Observation{Scope: scope, Key: key, Name: name, Value: tags[name]})
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
