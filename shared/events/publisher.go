package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen bounds a stream when no WithMaxLen option is given.
const DefaultStreamMaxLen int64 = 10000

type Publisher struct {
	client redis.Cmdable
	maxLen int64
}

type PublisherOption func(*Publisher)

// WithMaxLen caps each stream at roughly n entries (XADD MAXLEN ~).
// n <= 0 disables trimming.
func WithMaxLen(n int64) PublisherOption {
	return func(p *Publisher) { p.maxLen = n }
}

func NewPublisher(client redis.Cmdable, opts ...PublisherOption) *Publisher {
	p := &Publisher{client: client, maxLen: DefaultStreamMaxLen}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	event := NewEvent(eventType, data)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.XAdd(ctx, p.addArgs(stream, eventJSON)).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *Publisher) addArgs(stream string, eventJSON []byte) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event": eventJSON,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return args
}

// Discard drops every event. Used when no Redis is configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, string, any) error {
	return nil
}
