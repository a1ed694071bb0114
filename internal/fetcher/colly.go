package fetcher

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

var allowedContentTypes = map[string]struct{}{
	"text/html":             {},
	"application/xhtml+xml": {},
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// attemptResult is what one colly visit produced.
type attemptResult struct {
	page   *discovery.FetchedPage
	status int
	err    error
}

// newBaseCollector builds the collector cloned by every attempt of one
// FetchAll call. It is never mutated after construction.
func (f *Fetcher) newBaseCollector(timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.MaxBodySize(f.cfg.MaxBodySize),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)
	c.WithTransport(f.transport)
	return c
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, rawURL string, result *attemptResult) {
	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		contentType := r.Headers.Get("Content-Type")
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = contentType
		}
		if _, ok := allowedContentTypes[mediaType]; !ok {
			result.err = fmt.Errorf("%w: %q", errUnsupportedContentType, contentType)
			return
		}
		finalURL := rawURL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		result.page = &discovery.FetchedPage{
			URL:         rawURL,
			FinalURL:    finalURL,
			Status:      r.StatusCode,
			ContentType: mediaType,
			Body:        append([]byte(nil), r.Body...),
			FetchedAt:   f.now(),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

// visit performs exactly one HTTP attempt for rawURL. The request carries
// ctx, so it has finished by the time visit returns.
func (f *Fetcher) visit(ctx context.Context, base *colly.Collector, rawURL string) attemptResult {
	var result attemptResult
	collector := base.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, rawURL, &result)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		<-done
		return attemptResult{err: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if err != nil && result.err == nil {
			result.err = fmt.Errorf("colly visit failed: %w", err)
		}
		if result.err == nil && result.page == nil {
			result.err = fmt.Errorf("colly visit produced no response")
		}
		return result
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}
