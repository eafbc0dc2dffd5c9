package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"courier-market-service/internal/ports"
)

// DeadlineSweeper drives the bidding window policy in the background. On a
// fixed interval it finds open listings whose deadline has passed and either
// pushes the deadline out or, once the extensions are spent, purges the
// stale bids and restarts the window.
type DeadlineSweeper struct {
	packages    ports.PackageRepository
	lifecycle   *PackageLifecycle
	ledger      *BidLedger
	log         *zap.SugaredLogger
	interval    time.Duration
	parallelism int

	now func() time.Time
}

func NewDeadlineSweeper(
	packages ports.PackageRepository,
	lifecycle *PackageLifecycle,
	ledger *BidLedger,
	log *zap.SugaredLogger,
	interval time.Duration,
	parallelism int,
) *DeadlineSweeper {
	if parallelism < 1 {
		parallelism = 1
	}
	return &DeadlineSweeper{
		packages:    packages,
		lifecycle:   lifecycle,
		ledger:      ledger,
		log:         log,
		interval:    interval,
		parallelism: parallelism,
		now:         time.Now,
	}
}

// Run sweeps on the configured interval until the context is canceled.
// In-flight package work finishes before Run returns.
func (s *DeadlineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infow("deadline sweeper started", "interval", s.interval, "parallelism", s.parallelism)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("deadline sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over the overdue listings. Each package is an
// independent unit of work: a failure on one is logged and never blocks the
// rest, and the next tick picks it up again.
func (s *DeadlineSweeper) Sweep(ctx context.Context) {
	overdue, err := s.packages.ListOverdueOpen(ctx, s.now().UTC())
	if err != nil {
		s.log.Errorw("sweep: list overdue packages", "error", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	var extended, purged, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for _, pkg := range overdue {
		pkg := pkg
		g.Go(func() error {
			// The listed snapshot only routes the work; both operations
			// revalidate under the package lock and no-op when stale.
			if pkg.ExtensionsUsed < s.lifecycle.rules.MaxExtensions {
				ok, err := s.lifecycle.ExtendBidding(ctx, pkg.ID)
				if err != nil {
					failed.Add(1)
					s.log.Warnw("sweep: extend bidding", "package_id", pkg.ID, "error", err)
					return nil
				}
				if ok {
					extended.Add(1)
				}
				return nil
			}

			ok, err := s.ledger.ExpireOverdue(ctx, pkg.ID)
			if err != nil {
				failed.Add(1)
				s.log.Warnw("sweep: expire overdue bids", "package_id", pkg.ID, "error", err)
				return nil
			}
			if ok {
				purged.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Infow("sweep finished",
		"overdue", len(overdue),
		"extended", extended.Load(),
		"purged", purged.Load(),
		"failed", failed.Load(),
	)
}
