package publisher

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
)

// RedisPublisher sends every notification on a channel named after its type
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisPublisher creates a publisher writing to channels "<prefix>.<type>"
func NewRedisPublisher(rdb *redis.Client, prefix string) repository.EventPublisher {
	return &RedisPublisher{
		rdb:    rdb,
		prefix: prefix,
	}
}

// Publish sends the event as JSON
func (p *RedisPublisher) Publish(ctx context.Context, event entity.Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "RedisPublisher.Publish: marshal")
	}

	err = p.rdb.Publish(ctx, Channel(p.prefix, event.Type), jsonstr).Err()
	if err != nil {
		return errors.Wrapf(err, "RedisPublisher.Publish: %s", event.Type)
	}
	return nil
}

// Channel names the pub/sub channel of an event type, e.g. "flightsurety.flight_status_info".
func Channel(prefix string, typ entity.EventType) string {
	var b strings.Builder
	for i, r := range string(typ) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	if prefix == "" {
		return b.String()
	}
	return prefix + "." + b.String()
}
