package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/OpenTraceLab/OpenTraceSegbits/internal/compress"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig describes an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Prefix    string // Prepended to every object key (e.g. "runs/0042")
}

// NewClient creates a MinIO client for cfg.
func NewClient(cfg ObjectConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: minio client: %w", err)
	}
	return client, nil
}

// Object uploads each stream as an object in a MinIO or S3-compatible bucket.
type Object struct {
	client *minio.Client
	bucket string
	prefix string
	comp   compress.Type
}

// NewObject creates a bucket sink. Object keys are prefix/name plus the
// codec's extension.
func NewObject(client *minio.Client, bucket, prefix string, comp compress.Type) *Object {
	return &Object{client: client, bucket: bucket, prefix: prefix, comp: comp}
}

// Key returns the object key a stream name is uploaded to.
func (o *Object) Key(name string) string {
	return path.Join(o.prefix, name+o.comp.Ext())
}

// EnsureBucket creates the bucket if it does not exist yet.
func (o *Object) EnsureBucket(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("sink: bucket %s: %w", o.bucket, err)
	}
	if exists {
		return nil
	}
	if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("sink: make bucket %s: %w", o.bucket, err)
	}
	return nil
}

// Create starts a streaming upload. The object becomes visible when the
// returned writer is closed.
func (o *Object) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	key := o.Key(name)
	pr, pw := io.Pipe()

	up := &upload{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		_, err := o.client.PutObject(ctx, o.bucket, key, pr, -1, minio.PutObjectOptions{
			ContentType: "text/plain",
		})
		_ = pr.CloseWithError(err)
		up.done <- err
	}()

	w, err := compress.NewWriter(up, o.comp)
	if err != nil {
		up.abort(err)
		return nil, fmt.Errorf("sink: %w", err)
	}
	return w, nil
}

// List returns the stream names stored under the sink's prefix, sorted.
func (o *Object) List(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{
		Prefix:    o.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, o.prefix)
		name = strings.TrimPrefix(name, "/")
		name = strings.TrimSuffix(name, o.comp.Ext())
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Open reads back a stream written by Create.
func (o *Object) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.Key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("sink: get %s: %w", name, err)
	}
	rc, err := compress.NewReader(obj, o.comp)
	if err != nil {
		obj.Close()
		return nil, fmt.Errorf("sink: %s: %w", name, err)
	}
	return rc, nil
}

type upload struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *upload) Close() error {
	if !u.finished.CompareAndSwap(false, true) {
		return errors.New("sink: already closed")
	}
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

func (u *upload) abort(err error) {
	if u.finished.CompareAndSwap(false, true) {
		_ = u.pw.CloseWithError(err)
		<-u.done
	}
}
