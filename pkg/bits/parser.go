package bits

import (
	"fmt"
	"io"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
	"github.com/alecthomas/participle/v2"
)

// Parser reads bit-list captures.
type Parser struct {
	parser *participle.Parser[BitsFile]
}

// NewParser creates a new bit-list parser instance.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[BitsFile](
		participle.Lexer(BitsLexer),
		participle.Elide("Comment", "Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a capture from a reader and decodes every line.
func (p *Parser) Parse(r io.Reader) ([]Bit, error) {
	file, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file.Decode()
}

// ParseString parses a capture held in memory.
func (p *Parser) ParseString(input string) ([]Bit, error) {
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return file.Decode()
}

// ParseFile parses a capture from a file path. Files ending in .zst or .lz4
// are decompressed on the fly.
func (p *Parser) ParseFile(filename string) ([]Bit, error) {
	file, err := compress.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	bits, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return bits, nil
}

// Decode converts the parsed lines into bit observations, range-checking the
// word and bit indexes.
func (f *BitsFile) Decode() ([]Bit, error) {
	out := make([]Bit, 0, len(f.Lines))
	for _, line := range f.Lines {
		b, err := line.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Decode converts a single parsed line.
func (l *BitLine) Decode() (Bit, error) {
	frame, err := strconv.ParseUint(l.Frame, 16, 32)
	if err != nil {
		return Bit{}, fmt.Errorf("%s: bad frame address %q: %w", l.Pos, l.Frame, err)
	}
	word, err := strconv.Atoi(l.Word)
	if err != nil {
		return Bit{}, fmt.Errorf("%s: bad word index %q: %w", l.Pos, l.Word, err)
	}
	if word < 0 || word > MaxWord {
		return Bit{}, fmt.Errorf("%s: word index %d out of range 0..%d", l.Pos, word, MaxWord)
	}
	bit, err := strconv.Atoi(l.Bit)
	if err != nil {
		return Bit{}, fmt.Errorf("%s: bad bit index %q: %w", l.Pos, l.Bit, err)
	}
	if bit < 0 || bit > MaxBit {
		return Bit{}, fmt.Errorf("%s: bit index %d out of range 0..%d", l.Pos, bit, MaxBit)
	}
	return Bit{FrameAddress: uint32(frame), Word: word, Bit: bit}, nil
}
