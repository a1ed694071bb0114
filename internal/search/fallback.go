package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Fallback tries providers in order and returns the first success.
type Fallback struct {
	providers []Provider
	logger    *zap.Logger
}

// NewFallback chains providers. A single provider is returned unchanged by
// callers that do not need fallback.
func NewFallback(logger *zap.Logger, providers ...Provider) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{providers: providers, logger: logger}
}

// Name implements Provider.
func (f *Fallback) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// Search implements Provider. Cancellation stops the chain immediately.
func (f *Fallback) Search(ctx context.Context, query string, dateRange DateRange) ([]discovery.SearchResult, error) {
	errs := make([]error, 0, len(f.providers))
	for _, p := range f.providers {
		results, err := p.Search(ctx, query, dateRange)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("search %s: %w", p.Name(), ctx.Err())
		}
		f.logger.Debug("Search provider failed; trying next",
			zap.String("provider", p.Name()),
			zap.Error(err))
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}
