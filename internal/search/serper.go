package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// DefaultSerperEndpoint is the Serper Google search API.
const DefaultSerperEndpoint = "https://google.serper.dev/search"

// SerperConfig configures the paid provider.
type SerperConfig struct {
	Endpoint   string
	APIKey     string
	MaxResults int
	Client     *http.Client
}

// Serper queries Google through the Serper API. It requires an API key.
type Serper struct {
	endpoint   string
	apiKey     string
	maxResults int
	client     *http.Client
}

// NewSerper builds the paid provider. It fails without an API key.
func NewSerper(cfg SerperConfig) (*Serper, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("serper api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultSerperEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Serper{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		client:     cfg.Client,
	}, nil
}

// Name implements Provider.
func (s *Serper) Name() string { return "serper" }

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
	TBS   string `json:"tbs,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search implements Provider.
func (s *Serper) Search(ctx context.Context, query string, dateRange DateRange) ([]discovery.SearchResult, error) {
	body := serperRequest{Query: query, Num: s.maxResults}
	if dateRange != DateRangeNone {
		body.TBS = "qdr:" + string(dateRange)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s: status %d: %w", s.Name(), resp.StatusCode, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ProviderError{Provider: s.Name(), Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", bytes.TrimSpace(snippet))}
	}

	var decoded serperResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 2<<20)).Decode(&decoded); err != nil {
		return nil, &ProviderError{Provider: s.Name(), Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	results := make([]discovery.SearchResult, 0, len(decoded.Organic))
	for _, item := range decoded.Organic {
		if item.Link == "" {
			continue
		}
		results = append(results, discovery.SearchResult{URL: item.Link, Title: item.Title, Snippet: item.Snippet})
		if len(results) == s.maxResults {
			break
		}
	}
	return results, nil
}
