package sink

import (
	"context"
	"io"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	o := NewObject(nil, "segbits", "runs/0042", compress.ZSTD)
	assert.Equal(t, "runs/0042/segdata_clbll.txt.zst", o.Key("segdata_clbll.txt"))

	o = NewObject(nil, "segbits", "", compress.None)
	assert.Equal(t, "segdata_clbll.txt", o.Key("segdata_clbll.txt"))
}

// TestObjectSink_Integration requires a running MinIO instance.
// Skip if not available.
func TestObjectSink_Integration(t *testing.T) {
	client, err := NewClient(ObjectConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	o := NewObject(client, "test-segmaker", "it", compress.LZ4)
	require.NoError(t, o.EnsureBucket(ctx))

	writeStream(t, o.Create, "segdata_x.txt")

	names, err := o.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "segdata_x.txt")

	rc, err := o.Open(ctx, "segdata_x.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, record, string(got))
}
