package discovery

import "errors"

// ErrProvidersUnavailable means every search provider failed on the first
// conference of a run; the run cannot make progress.
var ErrProvidersUnavailable = errors.New("all search providers unavailable")

// ErrCatalogUnavailable wraps catalog load failures, which are fatal.
var ErrCatalogUnavailable = errors.New("conference catalog unavailable")
