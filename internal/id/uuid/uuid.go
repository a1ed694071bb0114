// Package uuid generates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Generator creates time-ordered UUIDv7 run IDs, so ledger rows sort by
// creation time.
type Generator struct{}

var _ discovery.IDGenerator = Generator{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a fresh UUIDv7.
func (Generator) NewID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate uuid7: %w", err)
	}
	return id, nil
}

// Static always returns the same ID. It is meant for tests and replays.
type Static uuid.UUID

// NewID implements discovery.IDGenerator.
func (s Static) NewID() (uuid.UUID, error) {
	return uuid.UUID(s), nil
}
