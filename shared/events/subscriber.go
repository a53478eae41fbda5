package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, event Event) error

type Subscriber struct {
	client        redis.Cmdable
	group         string
	consumer      string
	stream        string
	startID       string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	retryDelay    time.Duration
	destroyGroup  bool
	logger        *zap.Logger
}

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	// StartID is where a newly created group begins reading; "$" (default)
	// skips history, "0" replays the whole stream.
	StartID       string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	RetryDelay    time.Duration
	// DestroyGroupOnExit removes the consumer group when Start returns. Set it
	// for groups named per process, which nothing else will ever read again.
	DestroyGroupOnExit bool
	Logger             *zap.Logger
}

func NewSubscriber(client redis.Cmdable, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.StartID == "" {
		config.StartID = "$"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		startID:       config.StartID,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryDelay:    config.RetryDelay,
		destroyGroup:  config.DestroyGroupOnExit,
		logger:        config.Logger,
	}
}

// Start blocks until ctx is cancelled. A failed read is retried after
// RetryDelay; a message whose handler fails stays pending and is not acked.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, s.startID).Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.logger.Info("subscriber started",
		zap.String("stream", s.stream), zap.String("group", s.group), zap.String("consumer", s.consumer))

	for {
		streams, err := s.poll(ctx)
		if ctx.Err() != nil {
			s.logger.Info("subscriber stopping", zap.String("stream", s.stream))
			s.cleanup(ctx)
			return ctx.Err()
		}
		if err != nil {
			s.logger.Warn("error reading messages", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
			continue
		}
		for _, stream := range streams {
			s.handleBatch(ctx, stream.Messages)
		}
	}
}

// groupCleanupTimeout bounds the XGROUP DESTROY issued after ctx is done.
const groupCleanupTimeout = 5 * time.Second

func (s *Subscriber) cleanup(ctx context.Context) {
	if !s.destroyGroup {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), groupCleanupTimeout)
	defer cancel()
	if err := s.client.XGroupDestroy(cleanupCtx, s.stream, s.group).Err(); err != nil {
		s.logger.Warn("failed to destroy consumer group", zap.String("group", s.group), zap.Error(err))
		return
	}
	s.logger.Info("consumer group destroyed", zap.String("group", s.group))
}

func (s *Subscriber) poll(ctx context.Context) ([]redis.XStream, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	return streams, nil
}

// handleBatch returns the ids that were processed and acked.
func (s *Subscriber) handleBatch(ctx context.Context, messages []redis.XMessage) []string {
	acked := make([]string, 0, len(messages))
	for _, message := range messages {
		if err := s.processMessage(ctx, message); err != nil {
			s.logger.Warn("failed to process message", zap.String("message_id", message.ID), zap.Error(err))
			continue
		}
		if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
			s.logger.Warn("failed to ack message", zap.String("message_id", message.ID), zap.Error(err))
			continue
		}
		acked = append(acked, message.ID)
	}
	return acked
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	var payload []byte
	switch v := message.Values["event"].(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		return fmt.Errorf("message %s has no event field", message.ID)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	s.logger.Debug("event received", zap.String("event_id", event.ID), zap.String("type", event.Type))
	return s.handler(ctx, event)
}
