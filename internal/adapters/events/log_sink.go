package events

import (
	"context"

	"go.uber.org/zap"

	"courier-market-service/internal/domain"
)

// EventSink fallback that writes events to the log. Runs without Redis so
// local development still shows the full event flow.
type LogSink struct{ log *zap.SugaredLogger }

func NewLogSink(log *zap.SugaredLogger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Publish(ctx context.Context, event domain.Event) error {
	s.log.Infow("event",
		"kind", event.Kind,
		"package_id", event.PackageID,
		"bid_id", event.BidID,
		"actor_id", event.ActorID,
		"from", event.From,
		"to", event.To,
	)
	return nil
}
