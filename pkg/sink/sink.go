// Package sink provides the output destinations a segmaker.Recorder writes
// segment files to: a local directory, an in-memory map and an S3-compatible
// bucket.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
)

// Dir writes each stream to a file in a directory, optionally compressed.
type Dir struct {
	root string
	comp compress.Type
}

// NewDir creates a sink rooted at root. Compressed files get the codec's
// extension appended to their name.
func NewDir(root string, comp compress.Type) *Dir {
	return &Dir{root: root, comp: comp}
}

// Path returns the file a stream name is written to.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name+d.comp.Ext())
}

// Create creates or truncates the file for name.
func (d *Dir) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	f, err := os.Create(d.Path(name))
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	w, err := compress.NewWriter(f, d.comp)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: %w", err)
	}
	return w, nil
}

// Memory keeps streams in memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]*bytes.Buffer)}
}

// Create starts a new stream, replacing any earlier one of the same name.
func (m *Memory) Create(_ context.Context, name string) (io.WriteCloser, error) {
	return &memoryFile{sink: m, name: name}, nil
}

// Names returns the names of all closed streams, sorted.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns the content of a closed stream, or "" if there is none.
func (m *Memory) String(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.files[name]; ok {
		return buf.String()
	}
	return ""
}

type memoryFile struct {
	sink   *Memory
	name   string
	buf    bytes.Buffer
	closed bool
}

func (f *memoryFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errors.New("sink: write on closed stream")
	}
	return f.buf.Write(p)
}

// Close publishes the stream; a stream that is never closed is not visible.
func (f *memoryFile) Close() error {
	if f.closed {
		return errors.New("sink: already closed")
	}
	f.closed = true
	f.sink.mu.Lock()
	f.sink.files[f.name] = &f.buf
	f.sink.mu.Unlock()
	return nil
}
