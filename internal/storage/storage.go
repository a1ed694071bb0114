// Package storage resolves report destinations to a blob store. Destinations
// are local paths or gs://bucket/key URIs.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	gcsclient "cloud.google.com/go/storage"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/storage/gcs"
	"github.com/JakeFAU/reviewer-calls/internal/storage/local"
)

// Target is an opened destination: a store plus the object key inside it.
type Target struct {
	Store discovery.BlobStore
	Key   string
	close func() error
}

// Close releases any client held by the target.
func (t Target) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

// Open resolves dest. GCS destinations create a client with application
// default credentials.
func Open(ctx context.Context, dest string) (Target, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return Target{}, fmt.Errorf("destination is required")
	}
	if strings.HasPrefix(dest, gcs.Scheme) {
		bucket, key, err := gcs.ParseURI(dest)
		if err != nil {
			return Target{}, err
		}
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return Target{}, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: bucket})
		if err != nil {
			_ = client.Close()
			return Target{}, err
		}
		return Target{Store: store, Key: key, close: client.Close}, nil
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return Target{}, fmt.Errorf("resolve %s: %w", dest, err)
	}
	store, err := local.New(local.Config{BaseDir: filepath.Dir(abs)})
	if err != nil {
		return Target{}, err
	}
	return Target{Store: store, Key: filepath.Base(abs)}, nil
}
