package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/ports"
)

// Bidding window policy. Window is the span granted to a fresh listing,
// Extension the span added per automatic deadline push, and MaxExtensions
// how many pushes a listing gets before its stale bids are purged and the
// window restarts from Window.
type BiddingRules struct {
	Window        time.Duration
	Extension     time.Duration
	MaxExtensions int
}

const (
	lockAttempts   = 3
	lockRetryDelay = 150 * time.Millisecond
)

// Run fn while holding the package's mutation lock. A busy lock is retried
// a bounded number of times before ErrBusy surfaces to the caller; any other
// acquisition failure surfaces immediately.
func withPackageLock(ctx context.Context, locker ports.PackageLocker, packageID string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= lockAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(lockRetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		release, err := locker.Acquire(ctx, packageID)
		if err != nil {
			if errors.Is(err, domain.ErrBusy) {
				lastErr = err
				continue
			}
			return err
		}
		err = func() error {
			defer release()
			return fn()
		}()
		return err
	}
	return lastErr
}

// Emit a domain event. Publishing is best-effort: a sink outage is logged
// and never fails the operation that produced the event.
func publish(ctx context.Context, sink ports.EventSink, log *zap.SugaredLogger, event domain.Event) {
	if err := sink.Publish(ctx, event); err != nil {
		log.Warnw("event publish failed",
			"kind", event.Kind,
			"package_id", event.PackageID,
			"bid_id", event.BidID,
			"error", err,
		)
	}
}
