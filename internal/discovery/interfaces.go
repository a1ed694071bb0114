package discovery

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (uuid.UUID, error)
}

// Publisher pushes notification payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes report artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// RobotsPolicy is the politeness hook consulted before each fetch.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}
