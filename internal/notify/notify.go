// Package notify tells downstream channels about newly kept candidates. Every
// channel is best effort: a failed notification is logged and counted, never
// propagated to the run.
package notify

import (
	"context"
	"strconv"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Notification is the payload sent for one kept candidate.
type Notification struct {
	RunID          string   `json:"run_id,omitempty"`
	Conference     string   `json:"conference"`
	Year           int      `json:"year"`
	Role           string   `json:"role"`
	URL            string   `json:"url"`
	Label          string   `json:"label,omitempty"`
	DiscoveryScore float64  `json:"discovery_score"`
	Signals        []string `json:"matched_signals,omitempty"`
}

// FromCandidate builds the notification for c.
func FromCandidate(runID string, c discovery.Candidate) Notification {
	return Notification{
		RunID:          runID,
		Conference:     c.Conference,
		Year:           c.Year,
		Role:           c.Role,
		URL:            c.URL,
		Label:          c.Label,
		DiscoveryScore: c.DiscoveryScore,
		Signals:        c.Signals,
	}
}

// Attributes exposes routing attributes for message brokers.
func (n Notification) Attributes() map[string]string {
	return map[string]string{
		"conference": n.Conference,
		"year":       strconv.Itoa(n.Year),
		"role":       n.Role,
	}
}

// Notifier delivers one notification to a channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}
