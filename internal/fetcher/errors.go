package fetcher

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind separates retryable failures from final ones.
type Kind int

// Failure kinds.
const (
	KindTransient Kind = iota
	KindPermanent
)

func (k Kind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

var (
	errInvalidURL             = errors.New("invalid url")
	errRobotsDisallowed       = errors.New("disallowed by robots.txt")
	errUnsupportedContentType = errors.New("unsupported content type")
)

// FetchError is the tagged failure stored in a Result.
type FetchError struct {
	URL      string
	Kind     Kind
	Status   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): status %d: %v", e.URL, e.Kind, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v", e.URL, e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether the last failure was retryable.
func (e *FetchError) Transient() bool { return e.Kind == KindTransient }

// classify decides whether an attempt failure may be retried.
func classify(err error, status int) Kind {
	switch {
	case errors.Is(err, errInvalidURL),
		errors.Is(err, errRobotsDisallowed),
		errors.Is(err, errUnsupportedContentType):
		return KindPermanent
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= http.StatusInternalServerError:
		return KindTransient
	case status >= http.StatusBadRequest:
		return KindPermanent
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout || dnsErr.IsTemporary {
			return KindTransient
		}
		return KindPermanent
	}
	// Timeouts, resets, refused connections, EOF and unknown errors are retried.
	return KindTransient
}
