package ports

import (
	"context"

	"courier-market-service/internal/domain"
)

// Contract for publishing domain events to downstream consumers.
// Publishing is best effort: callers log failures and keep going, so an
// implementation must never block indefinitely.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}
