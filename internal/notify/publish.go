package notify

import (
	"context"
	"fmt"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Publish sends notifications to a message topic.
type Publish struct {
	publisher discovery.Publisher
	topic     string
}

// NewPublish creates a notifier publishing to topic.
func NewPublish(publisher discovery.Publisher, topic string) *Publish {
	return &Publish{publisher: publisher, topic: topic}
}

// Name implements Notifier.
func (*Publish) Name() string { return "pubsub" }

// Notify implements Notifier.
func (p *Publish) Notify(ctx context.Context, n Notification) error {
	if _, err := p.publisher.Publish(ctx, p.topic, n); err != nil {
		return fmt.Errorf("publish %s: %w", n.URL, err)
	}
	return nil
}
