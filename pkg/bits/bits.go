package bits

import "fmt"

const (
	// MaxWord is the highest word index inside a configuration frame.
	MaxWord = 100
	// MaxBit is the highest bit index inside a configuration word.
	MaxBit = 31

	// frameMask selects the minor-frame part of a frame address.
	frameMask = 0x7F
)

// Bit is one configuration bit observed set in a capture.
type Bit struct {
	FrameAddress uint32
	Word         int
	Bit          int
}

// String renders the bit in capture syntax.
func (b Bit) String() string {
	return fmt.Sprintf("bit_%08x_%03d_%02d", b.FrameAddress, b.Word, b.Bit)
}

// BaseAddress returns the frame address with its minor-frame bits cleared.
func BaseAddress(frameAddress uint32) uint32 {
	return frameAddress &^ frameMask
}
