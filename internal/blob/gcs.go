package blob

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCS writes artifacts to a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS connects a GCS store. prefix may be empty.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put implements Store. The returned URI is a gs:// reference.
func (g *GCS) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	object := name
	if g.prefix != "" {
		object = g.prefix + "/" + name
	}
	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gcs object: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}
