package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	first := searchCallsTotal
	Init()
	if searchCallsTotal != first || first == nil {
		t.Fatal("Init() should initialize collectors exactly once")
	}
}

func TestObserveHelpers(t *testing.T) {
	ObserveSearch("duckduckgo", "ok")
	ObserveSearch("duckduckgo", "ok")
	if val := testutil.ToFloat64(searchCallsTotal.WithLabelValues("duckduckgo", "ok")); val != 2 {
		t.Errorf("expected 2 search calls, got %f", val)
	}

	ObserveFetch("https://Conf.Example.org/pc", "succeeded", 512)
	if val := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("conf.example.org", "succeeded")); val != 1 {
		t.Errorf("expected 1 fetch attempt, got %f", val)
	}
	if val := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("conf.example.org")); val != 512 {
		t.Errorf("expected 512 bytes, got %f", val)
	}

	ObserveCandidates("kept", 0)
	ObserveCandidates("kept", 3)
	if val := testutil.ToFloat64(candidatesTotal.WithLabelValues("kept")); val != 3 {
		t.Errorf("expected 3 kept candidates, got %f", val)
	}

	ObserveNotification("log", "ok")
	ObserveRun("completed")
	ObserveRateLimitDelay("search", 1500*time.Millisecond)
	if val := testutil.CollectAndCount(rateLimitDelaysSeconds); val != 1 {
		t.Errorf("expected one rate limit series, got %d", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
