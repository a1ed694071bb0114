package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestEnforcer(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	allowAll := New(false, "test-agent", nil, logger)
	if !allowAll.Allowed(ctx, "https://example.com/whatever") {
		t.Fatal("allow-all policy should permit URLs")
	}

	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow: /private")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	enforcer := New(true, "ReviewerCalls/0.1", nil, logger)
	if !enforcer.Allowed(ctx, srv.URL+"/cfp/reviewers") {
		t.Fatal("expected allowed path to pass robots")
	}
	if enforcer.Allowed(ctx, srv.URL+"/private/pc") {
		t.Fatal("expected blocked path to be denied")
	}
	if got := robotsHits.Load(); got != 1 {
		t.Fatalf("expected robots.txt to be cached, fetched %d times", got)
	}
}

func TestEnforcerUnreachableAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	enforcer := New(true, "ReviewerCalls/0.1", nil, nil)
	if !enforcer.Allowed(context.Background(), base+"/anything") {
		t.Fatal("expected unreachable robots.txt to allow access")
	}
}
