// Package segmaker correlates the configuration bits of one bitstream
// capture with the feature tags a test design is known to exercise.
//
// A fuzzer generates a design, records which features each site or tile has
// enabled, builds the bitstream and diffs it into a list of set bits. This
// package turns that run into segments: for every address window of the
// device it collects the candidate bits observed in the window and the tags
// recorded on the tiles occupying it, under canonical names that do not
// depend on a tile's position. A separate solver later correlates segments
// from many runs into a bit database.
//
// # Usage
//
//	db, err := tilegrid.LoadFile("tilegrid.json")
//
//	parser, err := bits.NewParser()
//	observed, err := parser.ParseFile("design.bits")
//	ix := bits.NewIndex()
//	ix.Load(observed)
//
//	rec, err := segmaker.New(db, ix, segmaker.DefaultConfig())
//	rec.AddSiteTag("SLICE_X12Y100", "AFF.ZINI", true)
//	rec.AddTileTag("CLBLL_L_X2Y100", "FOO", false)
//
//	if err := rec.Compile(nil); err != nil {
//		return err
//	}
//	err = rec.Write(ctx, sink.NewDir("build", compress.None), "")
//
// # Compile
//
// Tiles are visited in name order. Each tile resolves to one configuration
// block (its only block, or the configured default block type) whose base
// address and word offset form the segment key. The first tile to reach a
// key fills the segment with bits from the capture, clipped to the block's
// frame count and passed through the optional BitFilter; later tiles must
// agree on the window geometry. Tags are renamed to
//
//	<canonical tile type>.<tile tag>
//	<canonical tile type>.<site key>.<site tag>
//
// and every recorded observation must land in a segment.
//
// # Errors
//
// All failures are fatal and typed so callers can tell them apart:
// UnknownScopeError, AmbiguousBlockError, GeometryMismatchError,
// UnconsumedTagError, EmptyOutputError and InvalidGroupValueError. Each also
// matches its sentinel (ErrUnknownScope, ...) through errors.Is.
//
// # Output
//
// Write emits one stream per canonical tile type, named by FileName. Bits and
// tags are sorted so that identical runs produce byte-identical files.
// ExportJSON and ExportSExp provide the same data for other tools.
package segmaker
