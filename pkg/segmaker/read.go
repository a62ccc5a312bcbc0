package segmaker

import (
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// segLexer tokenizes segment files and bit mask files.
var segLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "EOL", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Word", Pattern: `[^\s#]+`},
})

type segFile struct {
	Records []*segRecord `EOL* @@*`
}

type segRecord struct {
	Pos lexer.Position

	Key  string    `"seg" @Word EOL*`
	Bits []string  `( "bit" @Word EOL* )*`
	Tags []*segTag `@@*`
}

type segTag struct {
	Name  string `"tag" @Word`
	Value string `@( "0" | "1" ) EOL*`
}

type maskFile struct {
	Bits []string `EOL* ( "bit"? @Word EOL* )*`
}

var (
	segParser = participle.MustBuild[segFile](
		participle.Lexer(segLexer),
		participle.Elide("Comment", "Whitespace"),
	)
	maskParser = participle.MustBuild[maskFile](
		participle.Lexer(segLexer),
		participle.Elide("Comment", "Whitespace"),
	)
)

// ReadSegments parses a stream written by WriteSegments. The returned
// segments carry keys, bits and tags; tile type and geometry are not part of
// the text format and are left zero.
func ReadSegments(r io.Reader) ([]*Segment, error) {
	file, err := segParser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("segmaker: parse error: %w", err)
	}

	seen := make(map[SegmentKey]bool, len(file.Records))
	out := make([]*Segment, 0, len(file.Records))
	for _, rec := range file.Records {
		key, err := ParseSegmentKey(rec.Key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.Pos, err)
		}
		if seen[key] {
			return nil, fmt.Errorf("%s: segmaker: duplicate segment %s", rec.Pos, key)
		}
		seen[key] = true

		seg := newSegment("", key, 0, 0)
		for _, b := range rec.Bits {
			p, err := ParseBitPos(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rec.Pos, err)
			}
			seg.AddBit(p)
		}
		for _, t := range rec.Tags {
			seg.Tags[t.Name] = t.Value == "1"
		}
		out = append(out, seg)
	}
	return out, nil
}

// ReadMask parses a bit mask: one "<frame>_<bit>" per line, optionally
// prefixed with "bit". Lines starting with # are comments.
func ReadMask(r io.Reader) ([]BitPos, error) {
	file, err := maskParser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("segmaker: mask parse error: %w", err)
	}
	out := make([]BitPos, 0, len(file.Bits))
	for _, b := range file.Bits {
		p, err := ParseBitPos(b)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
