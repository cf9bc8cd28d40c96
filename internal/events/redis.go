package events

import (
	"context"
	"encoding/json"

	"github.com/schemaflow/schemaflow/pkg/database"
	"github.com/schemaflow/schemaflow/pkg/logger"
)

// DefaultChannel is the pub/sub channel events are published on
const DefaultChannel = "schemaflow.events"

// RedisPublisher delivers events over Redis pub/sub. Publish failures are
// logged and dropped; the core never blocks on event delivery.
type RedisPublisher struct {
	redis   *database.Redis
	channel string
	logger  *logger.Logger
}

// NewRedisPublisher creates a Redis pub/sub publisher
func NewRedisPublisher(redis *database.Redis, channel string, logger *logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		redis:   redis,
		channel: channel,
		logger:  logger,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorf("Failed to encode event %s: %v", event.Type, err)
		return
	}

	if err := p.redis.Client().Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warnf("Failed to publish event %s (%s): %v", event.Type, event.ID, err)
	}
}
