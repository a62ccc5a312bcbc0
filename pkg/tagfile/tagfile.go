// Package tagfile reads and writes tag observation files.
//
// A fuzzer's design generator records the features it enabled as one line
// per observation:
//
//	# <scope> <key> <name> <0|1>
//	site SLICE_X12Y100 AFF.ZINI 1
//	tile CLBLL_L_X2Y100 FOO 0
//
// The file is replayed into a segmaker.Recorder with Apply.
package tagfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/segmaker"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "EOL", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Word", Pattern: `[^\s#]+`},
})

// File is the parsed form of an observation file.
type File struct {
	Lines []*Line `EOL* ( @@ EOL* )*`
}

// Line is one observation.
type Line struct {
	Pos lexer.Position

	Scope string `@( "site" | "tile" )`
	Key   string `@Word`
	Name  string `@Word`
	Value string `@( "0" | "1" )`
}

// Parser parses observation files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new observation file parser.
func NewParser() (*Parser, error) {
	p, err := participle.Build[File](
		participle.Lexer(tagLexer),
		participle.Elide("Comment", "Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("tagfile: failed to build parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Parse reads observations from r.
func (p *Parser) Parse(r io.Reader) ([]segmaker.Observation, error) {
	return p.parse("", r)
}

// ParseString reads observations from a string.
func (p *Parser) ParseString(s string) ([]segmaker.Observation, error) {
	file, err := p.parser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("tagfile: parse error: %w", err)
	}
	return file.Observations(), nil
}

// ParseFile reads observations from a file, decompressing .zst and .lz4
// inputs.
func (p *Parser) ParseFile(path string) ([]segmaker.Observation, error) {
	rc, err := compress.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tagfile: %w", err)
	}
	defer rc.Close()
	return p.parse(path, rc)
}

func (p *Parser) parse(name string, r io.Reader) ([]segmaker.Observation, error) {
	file, err := p.parser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("tagfile: parse error: %w", err)
	}
	return file.Observations(), nil
}

// Observations converts the parsed lines in file order.
func (f *File) Observations() []segmaker.Observation {
	out := make([]segmaker.Observation, 0, len(f.Lines))
	for _, l := range f.Lines {
		scope := segmaker.ScopeSite
		if l.Scope == "tile" {
			scope = segmaker.ScopeTile
		}
		out = append(out, segmaker.Observation{
			Scope: scope,
			Key:   l.Key,
			Name:  l.Name,
			Value: l.Value == "1",
		})
	}
	return out
}

// Recorder receives replayed observations.
type Recorder interface {
	AddSiteTag(site, name string, value bool) error
	AddTileTag(tile, name string, value bool) error
}

// Apply records every observation on rec in order, stopping at the first
// error.
func Apply(rec Recorder, obs []segmaker.Observation) error {
	for _, o := range obs {
		var err error
		switch o.Scope {
		case segmaker.ScopeTile:
			err = rec.AddTileTag(o.Key, o.Name, o.Value)
		default:
			err = rec.AddSiteTag(o.Key, o.Name, o.Value)
		}
		if err != nil {
			return fmt.Errorf("tagfile: %s: %w", o, err)
		}
	}
	return nil
}

// Write emits observations in the file format, one per line.
func Write(w io.Writer, obs []segmaker.Observation) error {
	bw := bufio.NewWriter(w)
	for _, o := range obs {
		fmt.Fprintln(bw, o.String())
	}
	return bw.Flush()
}
