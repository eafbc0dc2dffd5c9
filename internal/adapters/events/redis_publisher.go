package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"courier-market-service/internal/domain"
)

// Implementation of the EventSink port on a Redis stream. Each event becomes
// one XADD entry; downstream consumers (notifications, analytics) read the
// stream with consumer groups. The marketplace core never reads it back.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	values := map[string]any{
		"id":         event.ID,
		"kind":       string(event.Kind),
		"package_id": event.PackageID,
		"actor_id":   event.ActorID,
		"at":         event.At.Format(time.RFC3339Nano),
	}
	if event.BidID != "" {
		values["bid_id"] = event.BidID
	}
	if event.From != "" {
		values["from"] = event.From
	}
	if event.To != "" {
		values["to"] = event.To
	}
	if event.Note != "" {
		values["note"] = event.Note
	}
	if !event.Deadline.IsZero() {
		values["deadline"] = event.Deadline.Format(time.RFC3339Nano)
	}

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("publish %s for package %s: %w", event.Kind, event.PackageID, err)
	}
	return nil
}
