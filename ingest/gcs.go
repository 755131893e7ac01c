package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/warp/cashflow-engine/cashflow"
)

const gcsScheme = "gs://"

// ObjectStore reads statements kept in object storage.
type ObjectStore interface {
	Stat(ctx context.Context, uri string) (cashflow.SourceFile, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

func IsGCSURI(path string) bool { return strings.HasPrefix(path, gcsScheme) }

// ParseGCSURI splits gs://bucket/path/to/object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// GCSStore reads Google Cloud Storage objects using Application Default
// Credentials. A client is created per call.
type GCSStore struct{}

var _ ObjectStore = GCSStore{}

func (GCSStore) Stat(ctx context.Context, uri string) (cashflow.SourceFile, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return cashflow.SourceFile{}, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return cashflow.SourceFile{}, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	attrs, err := client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return cashflow.SourceFile{}, fmt.Errorf("%w: %s", cashflow.ErrFileNotFound, uri)
	}
	if err != nil {
		return cashflow.SourceFile{}, fmt.Errorf("stat %s: %w", uri, err)
	}
	return cashflow.SourceFile{Path: uri, ModTime: attrs.Updated, Size: attrs.Size}, nil
}

func (GCSStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", cashflow.ErrFileNotFound, uri)
		}
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	return &objectReader{Reader: r, client: client}, nil
}

// objectReader closes the client along with the object reader.
type objectReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *objectReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}
