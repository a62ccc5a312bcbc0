// Package compress selects a stream codec for capture inputs and segment
// outputs based on a file extension.
package compress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used for a stream.
type Type uint8

const (
	// None indicates a plain text stream.
	None Type = iota
	// ZSTD indicates a zstd frame stream (".zst").
	ZSTD
	// LZ4 indicates an lz4 frame stream (".lz4").
	LZ4
)

// String returns the flag spelling of the compression type.
func (t Type) String() string {
	switch t {
	case ZSTD:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

// Ext returns the file extension appended for this compression type.
func (t Type) Ext() string {
	switch t {
	case ZSTD:
		return ".zst"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseType parses a flag value ("none", "zstd", "lz4").
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "zstd", "zst":
		return ZSTD, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("compress: unknown compression %q", s)
	}
}

// FromPath infers the compression type from a file extension.
func FromPath(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return ZSTD
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// Open opens path for reading and transparently decodes it when the
// extension names a known codec.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := NewReader(f, FromPath(path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("compress: %s: %w", path, err)
	}
	return rc, nil
}

// NewReader wraps rc with a decoder for t. Closing the result closes rc.
func NewReader(rc io.ReadCloser, t Type) (io.ReadCloser, error) {
	switch t {
	case ZSTD:
		dec, err := zstd.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: dec, close: func() error {
			dec.Close()
			return rc.Close()
		}}, nil
	case LZ4:
		return &readCloser{Reader: lz4.NewReader(rc), close: rc.Close}, nil
	default:
		return rc, nil
	}
}

// NewWriter wraps wc with an encoder for t. Closing the result flushes the
// encoder and then closes wc.
func NewWriter(wc io.WriteCloser, t Type) (io.WriteCloser, error) {
	switch t {
	case ZSTD:
		enc, err := zstd.NewWriter(wc, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return &writeCloser{Writer: enc, close: func() error {
			if err := enc.Close(); err != nil {
				wc.Close()
				return err
			}
			return wc.Close()
		}}, nil
	case LZ4:
		zw := lz4.NewWriter(wc)
		return &writeCloser{Writer: zw, close: func() error {
			if err := zw.Close(); err != nil {
				wc.Close()
				return err
			}
			return wc.Close()
		}}, nil
	default:
		return wc, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }

type writeCloser struct {
	io.Writer
	close func() error
}

func (w *writeCloser) Close() error { return w.close() }
