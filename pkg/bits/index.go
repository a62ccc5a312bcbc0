package bits

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index groups the bits of one capture by base address and word index.
//
// Each (base, word) cell is a roaring bitmap of (minorFrame<<5 | bit), so
// loading duplicate observations is idempotent and iteration is ordered.
type Index struct {
	cells map[uint32]map[int]*roaring.Bitmap
	count int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		cells: make(map[uint32]map[int]*roaring.Bitmap),
	}
}

// Load adds every bit in bits to the index.
func (ix *Index) Load(bits []Bit) {
	for _, b := range bits {
		ix.Add(b)
	}
}

// Add adds a single bit. It reports whether the bit was not already present.
func (ix *Index) Add(b Bit) bool {
	base := BaseAddress(b.FrameAddress)
	words, ok := ix.cells[base]
	if !ok {
		words = make(map[int]*roaring.Bitmap)
		ix.cells[base] = words
	}
	rb, ok := words[b.Word]
	if !ok {
		rb = roaring.New()
		words[b.Word] = rb
	}
	if rb.CheckedAdd(pack(b.FrameAddress, b.Bit)) {
		ix.count++
		return true
	}
	return false
}

// Contains reports whether b was observed.
func (ix *Index) Contains(b Bit) bool {
	rb := ix.cells[BaseAddress(b.FrameAddress)][b.Word]
	return rb != nil && rb.Contains(pack(b.FrameAddress, b.Bit))
}

// Window returns every bit stored under base whose word index lies in
// [wordOffset, wordOffset+wordCount). Results are ordered by word, then frame,
// then bit. base is aligned with BaseAddress before lookup.
func (ix *Index) Window(base uint32, wordOffset, wordCount int) []Bit {
	base = BaseAddress(base)
	words, ok := ix.cells[base]
	if !ok {
		return nil
	}

	var out []Bit
	for w := wordOffset; w < wordOffset+wordCount; w++ {
		rb, ok := words[w]
		if !ok {
			continue
		}
		it := rb.Iterator()
		for it.HasNext() {
			v := it.Next()
			out = append(out, Bit{
				FrameAddress: base + v>>5,
				Word:         w,
				Bit:          int(v & 0x1F),
			})
		}
	}
	return out
}

// Len returns the number of distinct bits in the index.
func (ix *Index) Len() int {
	return ix.count
}

// Bases returns the base addresses present in the index, sorted.
func (ix *Index) Bases() []uint32 {
	out := make([]uint32, 0, len(ix.cells))
	for base := range ix.cells {
		out = append(out, base)
	}
	slices.Sort(out)
	return out
}

func pack(frameAddress uint32, bit int) uint32 {
	return (frameAddress&frameMask)<<5 | uint32(bit&0x1F)
}
