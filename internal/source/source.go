// Package source reads and stores document bytes on the local filesystem
// or in Cloud Storage (gs://bucket/object).
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const gcsScheme = "gs://"

var (
	ErrTooLarge      = errors.New("source: object exceeds size limit")
	ErrGCSNotEnabled = errors.New("source: gs:// path given but no storage client configured")
)

// Router dispatches on the path scheme. A nil GCS client disables gs://.
type Router struct {
	gcs      *storage.Client
	maxBytes int64
}

func New(gcs *storage.Client, maxBytes int64) *Router {
	return &Router{gcs: gcs, maxBytes: maxBytes}
}

func IsGCS(p string) bool { return strings.HasPrefix(p, gcsScheme) }

// ParseGCSURI splits gs://bucket/object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCS(uri) {
		return "", "", fmt.Errorf("source: %q is not a gs:// uri", uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("source: %q must name a bucket and an object", uri)
	}
	return bucket, object, nil
}

func (r *Router) Open(ctx context.Context, p string) ([]byte, error) {
	if IsGCS(p) {
		return r.openGCS(ctx, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.readAll(f)
}

func (r *Router) openGCS(ctx context.Context, uri string) ([]byte, error) {
	if r.gcs == nil {
		return nil, ErrGCSNotEnabled
	}
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	rd, err := r.gcs.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer rd.Close()
	return r.readAll(rd)
}

func (r *Router) readAll(rd io.Reader) ([]byte, error) {
	if r.maxBytes <= 0 {
		return io.ReadAll(rd)
	}
	b, err := io.ReadAll(io.LimitReader(rd, r.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > r.maxBytes {
		return nil, ErrTooLarge
	}
	return b, nil
}

// Save writes data under dir (a local directory or a gs://bucket/prefix)
// and returns the stored path.
func (r *Router) Save(ctx context.Context, dir, name string, data []byte) (string, error) {
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return "", ErrTooLarge
	}
	if IsGCS(dir) {
		if r.gcs == nil {
			return "", ErrGCSNotEnabled
		}
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(dir, gcsScheme), "/")
		if bucket == "" {
			return "", fmt.Errorf("source: %q must name a bucket", dir)
		}
		object := path.Join(prefix, name)
		w := r.gcs.Bucket(bucket).Object(object).NewWriter(ctx)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", fmt.Errorf("failed to write gs://%s/%s: %w", bucket, object, err)
		}
		return gcsScheme + bucket + "/" + object, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// List returns the files directly under dir, or every object under a
// gs://bucket/prefix/, sorted by name.
func (r *Router) List(ctx context.Context, dir string) ([]string, error) {
	if IsGCS(dir) {
		return r.listGCS(ctx, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func (r *Router) listGCS(ctx context.Context, dir string) ([]string, error) {
	if r.gcs == nil {
		return nil, ErrGCSNotEnabled
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(dir, gcsScheme), "/")
	if bucket == "" {
		return nil, fmt.Errorf("source: %q must name a bucket", dir)
	}
	it := r.gcs.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucket, prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		out = append(out, gcsScheme+bucket+"/"+attrs.Name)
	}
	sort.Strings(out)
	return out, nil
}
