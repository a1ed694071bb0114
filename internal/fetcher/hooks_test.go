package fetcher

import (
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/gocolly/colly/v2"
)

var netDNSNotFound = net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

func newStubResponse(t *testing.T, contentType string) *colly.Response {
	t.Helper()
	u, err := url.Parse("https://example.org/final")
	if err != nil {
		t.Fatalf("failed to parse url: %v", err)
	}
	return &colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("<html></html>"),
		Headers:    &http.Header{"Content-Type": {contentType}},
		Request:    &colly.Request{URL: u},
	}
}
