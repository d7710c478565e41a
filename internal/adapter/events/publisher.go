// Package events publishes domain events to a Redis stream. Downstream
// consumers (notifications, analytics) read the stream with consumer groups.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// StreamPublisher implements ports.EventPublisher on a Redis stream. Each
// event is one stream entry with a topic field and a JSON payload.
type StreamPublisher struct {
	client *goredis.Client
	stream string
}

// NewStreamPublisher creates a publisher writing to the given stream key.
func NewStreamPublisher(client *goredis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

// Publish appends the event to the stream. Callers treat failures as
// non-fatal; the originating transaction has already committed.
func (p *StreamPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	err = p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"topic":   topic,
			"payload": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish event to stream: %w", err)
	}
	return nil
}
