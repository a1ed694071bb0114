// Package report builds the evaluation export: one JSON document per run with
// the score breakdown of every discovered candidate.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/reviewer-calls/internal/analyzer"
	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/storage"
)

// Entry is one candidate with its layered scores. GraphScore is the search
// score plus the link score.
type Entry struct {
	URL            string          `json:"url"`
	Conference     string          `json:"conference"`
	Year           int             `json:"year"`
	Role           string          `json:"role"`
	Label          string          `json:"label,omitempty"`
	Date           *discovery.Date `json:"date"`
	SourceDepth    int             `json:"source_depth"`
	FinalScore     float64         `json:"final_score"`
	SearchScore    float64         `json:"search_score"`
	GraphScore     float64         `json:"graph_score"`
	ContentScore   float64         `json:"content_score"`
	Decision       string          `json:"decision"`
	MatchedSignals []string        `json:"matched_signals"`
}

// Eval is the exported document.
type Eval struct {
	RunID               uuid.UUID      `json:"run_id"`
	Timestamp           time.Time      `json:"timestamp"`
	ConferencesSearched int            `json:"conferences_searched"`
	TotalCandidates     int            `json:"total_candidates"`
	Decisions           map[string]int `json:"decisions"`
	Candidates          []Entry        `json:"candidates"`
}

// Build assembles the export for cands, which are all candidates discovered
// in the run before merging.
func Build(runID uuid.UUID, at time.Time, conferences int, cands []discovery.Candidate) Eval {
	eval := Eval{
		RunID:               runID,
		Timestamp:           at.UTC(),
		ConferencesSearched: conferences,
		TotalCandidates:     len(cands),
		Decisions: map[string]int{
			analyzer.DecisionAccept:   0,
			analyzer.DecisionGrayZone: 0,
			analyzer.DecisionReject:   0,
		},
		Candidates: make([]Entry, 0, len(cands)),
	}
	for _, c := range cands {
		decision := c.Scores.Decision
		if decision == "" {
			decision = analyzer.Decide(c.Scores.Final)
		}
		eval.Decisions[decision]++
		signals := c.Signals
		if signals == nil {
			signals = []string{}
		}
		eval.Candidates = append(eval.Candidates, Entry{
			URL:            c.URL,
			Conference:     c.Conference,
			Year:           c.Year,
			Role:           c.Role,
			Label:          c.Label,
			Date:           c.Date,
			SourceDepth:    c.SourceDepth,
			FinalScore:     c.Scores.Final,
			SearchScore:    c.Scores.Search,
			GraphScore:     c.Scores.Search + c.Scores.Link,
			ContentScore:   c.Scores.Content,
			Decision:       decision,
			MatchedSignals: signals,
		})
	}
	return eval
}

// Export writes eval as indented JSON to dest, a local path or a
// gs://bucket/key URI, and returns the stored object's URI.
func Export(ctx context.Context, dest string, eval Eval) (string, error) {
	target, err := storage.Open(ctx, dest)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dest, err)
	}
	defer func() { _ = target.Close() }()
	return Put(ctx, target.Store, target.Key, eval)
}

// Put stores eval under key in store.
func Put(ctx context.Context, store discovery.BlobStore, key string, eval Eval) (string, error) {
	data, err := json.MarshalIndent(eval, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal eval report: %w", err)
	}
	uri, err := store.PutObject(ctx, key, "application/json", bytes.NewReader(append(data, '\n')))
	if err != nil {
		return "", fmt.Errorf("write eval report: %w", err)
	}
	return uri, nil
}
