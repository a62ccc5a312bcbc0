package bits

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// BitsLexer defines the lexical structure of a bit-list capture.
// A capture is one "bit_<frame>_<word>_<bit>" token group per line.
var BitsLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments (# to end of line), emitted by some diffing tools
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Line terminators are significant; other whitespace is not
	{Name: "EOL", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},

	// Prefix must come before Hex, "b" is a hex digit
	{Name: "Prefix", Pattern: `bit`},
	{Name: "Sep", Pattern: `_`},

	// Frame addresses are hex; word and bit indexes are decimal but share the
	// token class and are range-checked after parsing.
	{Name: "Hex", Pattern: `[0-9a-fA-F]+`},
})
