package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// deletedMarker is stored in place of a value that is known to be gone.
var deletedMarker = []byte("null")

// ViewCache is a generic JSON-backed Redis cache for read projections.
// Bind it to a specific type T; ttl 0 keeps keys without expiry.
type ViewCache[T any] struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewViewCache[T any](client goredis.Cmdable, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache[T]{client: client, ttl: ttl, logger: logger}
}

// Get reports ok=false on a miss or a read error. A key holding the deleted
// marker is a hit with a nil value.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("view cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if bytes.Equal(data, deletedMarker) {
		return nil, true
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("view cache decode failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &v, true
}

// Set overwrites the key. Errors are logged, not returned: a failed cache
// write never fails the caller.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Add writes the key only when it does not exist (SET NX), so a value loaded
// before a concurrent write can never replace that write's entry or marker.
func (c *ViewCache[T]) Add(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.SetNX(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache add failed", zap.String("key", key), zap.Error(err))
	}
}

// MarkDeleted replaces the key with the deleted marker for one ttl.
func (c *ViewCache[T]) MarkDeleted(ctx context.Context, key string) {
	if err := c.client.Set(ctx, key, deletedMarker, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache mark deleted failed", zap.String("key", key), zap.Error(err))
	}
}
