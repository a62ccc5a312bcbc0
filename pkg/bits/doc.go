// Package bits loads the set bits of one bitstream capture and indexes them
// by configuration address.
//
// A capture is the decoded output of a bitstream diff: one line per bit that
// is set, in the form
//
//	bit_<frame address, 8 hex digits>_<word, 3 digits>_<bit, 2 digits>
//
// for example "bit_00020500_000_08". The parser accepts plain files as well as
// zstd (.zst) and lz4 (.lz4) compressed captures.
//
// # Usage
//
//	parser, err := bits.NewParser()
//	observed, err := parser.ParseFile("design.bits")
//
//	ix := bits.NewIndex()
//	ix.Load(observed)
//
//	// Bits of a tile occupying words 50..51 of the frames at 0x00020500
//	for _, b := range ix.Window(0x00020500, 50, 2) {
//		fmt.Println(b)
//	}
//
// # Addressing
//
// A frame address is split into a base address (the address with its low
// seven minor-frame bits cleared) and a minor frame. The index groups bits by
// base address and word, so a tile's candidate bits are gathered by walking
// only the words it occupies.
package bits
