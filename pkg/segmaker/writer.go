package segmaker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Sink creates the named output streams a Recorder writes to.
type Sink interface {
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

// FileName returns the stream name used for a canonical tile type.
func FileName(tileType, groupKey string) string {
	name := "segdata_" + strings.ToLower(tileType)
	if groupKey != "" {
		name += "_" + groupKey
	}
	return name + ".txt"
}

// Write serializes the compiled segments, one stream per canonical tile type.
// It fails with an EmptyOutputError when there is nothing to write, unless
// the configuration allows empty output.
func (r *Recorder) Write(ctx context.Context, sink Sink, groupKey string) error {
	if !r.compiled {
		return ErrNotCompiled
	}
	if r.stats.Segments == 0 {
		if r.cfg.AllowEmpty {
			return nil
		}
		return &EmptyOutputError{GroupKey: groupKey}
	}

	for _, tt := range r.TileTypes() {
		segs := r.SegmentsOf(tt)
		name := FileName(tt, groupKey)
		err := writeStream(ctx, sink, name, segs)
		r.cfg.Logger.LogWrite(ctx, name, len(segs), err)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeStream(ctx context.Context, sink Sink, name string, segs []*Segment) error {
	w, err := sink.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("segmaker: create %s: %w", name, err)
	}
	if err := WriteSegments(w, segs); err != nil {
		w.Close()
		return fmt.Errorf("segmaker: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("segmaker: close %s: %w", name, err)
	}
	return nil
}

// WriteSegments writes segs in the segment text format:
//
//	seg 00020500_000
//	bit 00_08
//	bit 00_17
//	tag CLBLL.FOO 1
//
// Bits and tags are sorted, and records are separated by a blank line, so
// identical inputs always produce identical bytes.
func WriteSegments(w io.Writer, segs []*Segment) error {
	bw := bufio.NewWriter(w)
	for _, seg := range segs {
		fmt.Fprintf(bw, "seg %s\n", seg.Key)
		for _, name := range seg.BitNames() {
			fmt.Fprintf(bw, "bit %s\n", name)
		}
		for _, name := range seg.TagNames() {
			v := 0
			if seg.Tags[name] {
				v = 1
			}
			fmt.Fprintf(bw, "tag %s %d\n", name, v)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
