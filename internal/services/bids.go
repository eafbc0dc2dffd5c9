package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/ports"
)

// BidLedger owns the bid book of every listing: placing, withdrawing,
// selecting, and expiring bids. Package status changes stay with the
// lifecycle service; the ledger delegates to it under the same lock.
type BidLedger struct {
	packages  ports.PackageRepository
	bids      ports.BidRepository
	locker    ports.PackageLocker
	directory ports.CourierDirectory
	sink      ports.EventSink
	log       *zap.SugaredLogger
	lifecycle *PackageLifecycle

	now func() time.Time
}

func NewBidLedger(
	packages ports.PackageRepository,
	bids ports.BidRepository,
	locker ports.PackageLocker,
	directory ports.CourierDirectory,
	sink ports.EventSink,
	log *zap.SugaredLogger,
	lifecycle *PackageLifecycle,
) *BidLedger {
	return &BidLedger{
		packages:  packages,
		bids:      bids,
		locker:    locker,
		directory: directory,
		sink:      sink,
		log:       log,
		lifecycle: lifecycle,
		now:       time.Now,
	}
}

type PlaceBidRequest struct {
	PackageID  string
	CourierID  string
	PriceCents int64
	PickupAt   time.Time
}

// PlaceBid records a courier's offer on an open listing. The eligibility
// check runs before the package lock is taken so a slow directory lookup
// never stalls other bidders on the same package.
func (s *BidLedger) PlaceBid(ctx context.Context, req PlaceBidRequest) (*domain.Bid, error) {
	if req.CourierID == "" {
		return nil, fmt.Errorf("place bid: %w: courier id cannot be empty", domain.ErrInvalidInput)
	}
	if req.PriceCents <= 0 {
		return nil, fmt.Errorf("place bid: %w: price must be positive", domain.ErrInvalidInput)
	}
	if req.PickupAt.IsZero() {
		return nil, fmt.Errorf("place bid: %w: pickup time is required", domain.ErrInvalidInput)
	}

	eligible, err := s.directory.IsEligible(ctx, req.CourierID)
	if err != nil {
		return nil, fmt.Errorf("place bid on package %s: check eligibility: %w", req.PackageID, err)
	}
	if !eligible {
		return nil, fmt.Errorf("place bid on package %s: courier %s: %w", req.PackageID, req.CourierID, domain.ErrCourierNotEligible)
	}

	var out *domain.Bid
	err = withPackageLock(ctx, s.locker, req.PackageID, func() error {
		pkg, err := s.packages.Get(ctx, req.PackageID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if !pkg.Biddable(now) {
			return fmt.Errorf("package is %s: %w", pkg.Status, domain.ErrPackageNotBiddable)
		}
		if pkg.SenderID == req.CourierID {
			return fmt.Errorf("sender cannot bid on own package: %w", domain.ErrCourierNotEligible)
		}
		dup, err := s.bids.HasActiveBid(ctx, req.PackageID, req.CourierID)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("courier %s: %w", req.CourierID, domain.ErrDuplicateBid)
		}

		bid := &domain.Bid{
			ID:         uuid.NewString(),
			PackageID:  req.PackageID,
			CourierID:  req.CourierID,
			PriceCents: req.PriceCents,
			PickupAt:   req.PickupAt,
			Status:     domain.BidPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.bids.Create(ctx, bid); err != nil {
			return err
		}
		publish(ctx, s.sink, s.log, domain.Event{
			ID:        uuid.NewString(),
			Kind:      domain.EventBidPlaced,
			PackageID: req.PackageID,
			BidID:     bid.ID,
			ActorID:   req.CourierID,
			At:        now,
		})
		out = bid
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("place bid on package %s: %w", req.PackageID, err)
	}
	s.log.Infow("bid placed",
		"bid_id", out.ID,
		"package_id", req.PackageID,
		"courier_id", req.CourierID,
		"price_cents", req.PriceCents,
	)
	return out, nil
}

// WithdrawBid retracts a courier's own still-pending bid.
func (s *BidLedger) WithdrawBid(ctx context.Context, bidID, courierID string) (*domain.Bid, error) {
	ref, err := s.bids.Get(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("withdraw bid %s: %w", bidID, err)
	}

	var out *domain.Bid
	err = withPackageLock(ctx, s.locker, ref.PackageID, func() error {
		bid, err := s.bids.Get(ctx, bidID)
		if err != nil {
			return err
		}
		if bid.CourierID != courierID {
			return fmt.Errorf("bid belongs to another courier: %w", domain.ErrNotOwner)
		}
		if bid.Status != domain.BidPending {
			return fmt.Errorf("bid is %s: %w", bid.Status, domain.ErrAlreadyTerminal)
		}
		now := s.now().UTC()
		if err := bid.Transition(domain.BidWithdrawn, now); err != nil {
			return err
		}
		if err := s.bids.Update(ctx, bid); err != nil {
			return err
		}
		publish(ctx, s.sink, s.log, domain.Event{
			ID:        uuid.NewString(),
			Kind:      domain.EventBidWithdrawn,
			PackageID: bid.PackageID,
			BidID:     bid.ID,
			ActorID:   courierID,
			At:        now,
		})
		out = bid
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw bid %s: %w", bidID, err)
	}
	s.log.Infow("bid withdrawn", "bid_id", bidID, "package_id", out.PackageID, "courier_id", courierID)
	return out, nil
}

// SelectBid lets the sender pick the winning bid. The winner turns SELECTED,
// every other pending bid on the package is rejected, and the package leaves
// the market. Selecting an already-decided bid reports AlreadyTerminal and
// never re-rejects siblings.
func (s *BidLedger) SelectBid(ctx context.Context, bidID, senderID string) (*domain.Bid, error) {
	ref, err := s.bids.Get(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("select bid %s: %w", bidID, err)
	}

	var out *domain.Bid
	err = withPackageLock(ctx, s.locker, ref.PackageID, func() error {
		pkg, err := s.packages.Get(ctx, ref.PackageID)
		if err != nil {
			return err
		}
		if pkg.SenderID != senderID {
			return fmt.Errorf("package belongs to another sender: %w", domain.ErrNotOwner)
		}
		winner, err := s.bids.Get(ctx, bidID)
		if err != nil {
			return err
		}
		if winner.Status != domain.BidPending {
			return fmt.Errorf("bid is %s: %w", winner.Status, domain.ErrAlreadyTerminal)
		}
		if pkg.Status != domain.StatusOpenForBids {
			return fmt.Errorf("package is %s: %w", pkg.Status, domain.ErrInvalidTransition)
		}

		now := s.now().UTC()
		if err := winner.Transition(domain.BidSelected, now); err != nil {
			return err
		}
		if err := s.bids.Update(ctx, winner); err != nil {
			return err
		}
		publish(ctx, s.sink, s.log, domain.Event{
			ID:        uuid.NewString(),
			Kind:      domain.EventBidSelected,
			PackageID: pkg.ID,
			BidID:     winner.ID,
			ActorID:   senderID,
			At:        now,
		})

		if err := s.lifecycle.applySelectionLocked(ctx, pkg, winner.ID, senderID, now); err != nil {
			return err
		}
		s.rejectLosersLocked(ctx, pkg.ID, winner.ID, senderID, now)
		out = winner
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select bid %s: %w", bidID, err)
	}
	s.log.Infow("bid selected", "bid_id", bidID, "package_id", out.PackageID, "sender_id", senderID)
	return out, nil
}

// ExpireOverdue purges the pending bids of a listing that burned through all
// its deadline extensions, then restarts the bidding window. Invoked by the
// deadline sweep; returns false without error when the package no longer
// qualifies by the time the lock is held.
func (s *BidLedger) ExpireOverdue(ctx context.Context, packageID string) (bool, error) {
	var purged bool
	err := withPackageLock(ctx, s.locker, packageID, func() error {
		pkg, err := s.packages.Get(ctx, packageID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if pkg.Status != domain.StatusOpenForBids || !pkg.DeadlinePassed(now) || pkg.ExtensionsUsed < s.lifecycle.rules.MaxExtensions {
			return nil
		}

		bids, err := s.bids.ListByPackage(ctx, packageID)
		if err != nil {
			return err
		}
		expired := 0
		for _, bid := range bids {
			if bid.Status != domain.BidPending {
				continue
			}
			if err := bid.Transition(domain.BidExpired, now); err != nil {
				s.log.Warnw("purge: expire bid", "bid_id", bid.ID, "error", err)
				continue
			}
			if err := s.bids.Update(ctx, bid); err != nil {
				s.log.Warnw("purge: persist expired bid", "bid_id", bid.ID, "error", err)
				continue
			}
			expired++
			publish(ctx, s.sink, s.log, domain.Event{
				ID:        uuid.NewString(),
				Kind:      domain.EventBidExpired,
				PackageID: packageID,
				BidID:     bid.ID,
				At:        now,
			})
		}

		if err := s.lifecycle.reopenBiddingLocked(ctx, pkg, now); err != nil {
			return err
		}
		purged = true
		s.log.Infow("bidding reopened after purge",
			"package_id", packageID,
			"expired_bids", expired,
		)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("expire overdue bids for package %s: %w", packageID, err)
	}
	return purged, nil
}

// ListBids returns a package's bids, newest first.
func (s *BidLedger) ListBids(ctx context.Context, packageID string) ([]*domain.Bid, error) {
	if _, err := s.packages.Get(ctx, packageID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return s.bids.ListByPackage(ctx, packageID)
}

// rejectLosersLocked rejects the remaining pending bids after a selection.
// Failures are logged and skipped: the selection is already persisted and a
// pending loser on a closed package can never be selected anyway.
func (s *BidLedger) rejectLosersLocked(ctx context.Context, packageID, winnerID, actorID string, now time.Time) {
	bids, err := s.bids.ListByPackage(ctx, packageID)
	if err != nil {
		s.log.Warnw("select: list sibling bids", "package_id", packageID, "error", err)
		return
	}
	for _, bid := range bids {
		if bid.ID == winnerID || bid.Status != domain.BidPending {
			continue
		}
		if err := bid.Transition(domain.BidRejected, now); err != nil {
			s.log.Warnw("select: reject bid", "bid_id", bid.ID, "error", err)
			continue
		}
		if err := s.bids.Update(ctx, bid); err != nil {
			s.log.Warnw("select: persist rejected bid", "bid_id", bid.ID, "error", err)
			continue
		}
		publish(ctx, s.sink, s.log, domain.Event{
			ID:        uuid.NewString(),
			Kind:      domain.EventBidRejected,
			PackageID: packageID,
			BidID:     bid.ID,
			ActorID:   actorID,
			At:        now,
		})
	}
}
