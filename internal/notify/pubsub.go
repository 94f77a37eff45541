package notify

import (
	"context"
	"fmt"
)

// Publisher is satisfied by the Pub/Sub and in-memory publishers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Topic publishes the whole Message as JSON to a topic.
type Topic struct {
	publisher Publisher
	topic     string
}

// NewTopic builds a Topic channel.
func NewTopic(publisher Publisher, topic string) *Topic {
	return &Topic{publisher: publisher, topic: topic}
}

// Name implements Channel.
func (t *Topic) Name() string { return "pubsub" }

// Send implements Channel.
func (t *Topic) Send(ctx context.Context, msg Message) error {
	if _, err := t.publisher.Publish(ctx, t.topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", t.topic, err)
	}
	return nil
}
