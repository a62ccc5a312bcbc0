package bits

import "github.com/alecthomas/participle/v2/lexer"

// BitsFile represents a complete bit-list capture.
type BitsFile struct {
	Lines []*BitLine `EOL* ( @@ EOL* )*`
}

// BitLine represents one observed bit.
// Example: bit_00020500_000_08
type BitLine struct {
	Pos lexer.Position

	Frame string `Prefix Sep @Hex`
	Word  string `Sep @Hex`
	Bit   string `Sep @Hex`
}
