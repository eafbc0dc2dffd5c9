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

// PackageLifecycle owns every package status transition. Other services
// change package state only through this type, so the transition table and
// the per-package lock are enforced in one place.
type PackageLifecycle struct {
	packages ports.PackageRepository
	bids     ports.BidRepository
	locker   ports.PackageLocker
	sink     ports.EventSink
	log      *zap.SugaredLogger
	rules    BiddingRules

	now func() time.Time
}

func NewPackageLifecycle(
	packages ports.PackageRepository,
	bids ports.BidRepository,
	locker ports.PackageLocker,
	sink ports.EventSink,
	log *zap.SugaredLogger,
	rules BiddingRules,
) *PackageLifecycle {
	return &PackageLifecycle{
		packages: packages,
		bids:     bids,
		locker:   locker,
		sink:     sink,
		log:      log,
		rules:    rules,
		now:      time.Now,
	}
}

type CreatePackageRequest struct {
	SenderID           string
	Origin             domain.Coordinates
	OriginAddress      string
	Destination        domain.Coordinates
	DestinationAddress string
	Size               domain.SizeClass
	WeightKg           float64
	PriceOfferCents    int64
}

// CreatePackage stores a new listing and puts it straight on the market:
// the package opens for bids with a fresh full bidding window.
func (s *PackageLifecycle) CreatePackage(ctx context.Context, req CreatePackageRequest) (*domain.Package, error) {
	now := s.now().UTC()
	pkg := &domain.Package{
		ID:                 uuid.NewString(),
		SenderID:           req.SenderID,
		Origin:             req.Origin,
		OriginAddress:      req.OriginAddress,
		Destination:        req.Destination,
		DestinationAddress: req.DestinationAddress,
		Size:               req.Size,
		WeightKg:           req.WeightKg,
		PriceOfferCents:    req.PriceOfferCents,
		Status:             domain.StatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	if err := pkg.Transition(domain.StatusOpenForBids, now); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}
	deadline := now.Add(s.rules.Window)
	pkg.BiddingDeadline = &deadline

	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	publish(ctx, s.sink, s.log, domain.Event{
		ID:        uuid.NewString(),
		Kind:      domain.EventPackageOpened,
		PackageID: pkg.ID,
		ActorID:   pkg.SenderID,
		Deadline:  deadline,
		At:        now,
	})
	s.log.Infow("package opened for bids",
		"package_id", pkg.ID,
		"sender_id", pkg.SenderID,
		"deadline", deadline,
	)
	return pkg, nil
}

func (s *PackageLifecycle) GetPackage(ctx context.Context, id string) (*domain.Package, error) {
	return s.packages.Get(ctx, id)
}

func (s *PackageLifecycle) ListByStatus(ctx context.Context, status domain.PackageStatus) ([]*domain.Package, error) {
	return s.packages.ListByStatus(ctx, status)
}

// Cancel takes a listing off the market for good. Only the sender may cancel,
// and only before the package is in transit. Bids still in play are rejected.
func (s *PackageLifecycle) Cancel(ctx context.Context, packageID, senderID string) (*domain.Package, error) {
	var out *domain.Package
	err := withPackageLock(ctx, s.locker, packageID, func() error {
		pkg, err := s.packages.Get(ctx, packageID)
		if err != nil {
			return err
		}
		if pkg.SenderID != senderID {
			return fmt.Errorf("package belongs to another sender: %w", domain.ErrNotOwner)
		}
		now := s.now().UTC()
		if err := s.advanceLocked(ctx, pkg, domain.StatusCanceled, senderID, "", now); err != nil {
			return err
		}
		s.rejectActiveBidsLocked(ctx, packageID, senderID, now)
		out = pkg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel package %s: %w", packageID, err)
	}
	s.log.Infow("package canceled", "package_id", packageID, "sender_id", senderID)
	return out, nil
}

// SchedulePickup confirms pickup arrangements between sender and the winning
// courier. Only that courier may confirm.
func (s *PackageLifecycle) SchedulePickup(ctx context.Context, packageID, courierID string) (*domain.Package, error) {
	pkg, err := s.winnerTransition(ctx, packageID, courierID, domain.StatusPendingPickup)
	if err != nil {
		return nil, fmt.Errorf("schedule pickup for package %s: %w", packageID, err)
	}
	return pkg, nil
}

// ConfirmPickup records that the winning courier has the package in hand.
func (s *PackageLifecycle) ConfirmPickup(ctx context.Context, packageID, courierID string) (*domain.Package, error) {
	pkg, err := s.winnerTransition(ctx, packageID, courierID, domain.StatusInTransit)
	if err != nil {
		return nil, fmt.Errorf("confirm pickup for package %s: %w", packageID, err)
	}
	return pkg, nil
}

// MarkDelivered closes out a delivery after the proof-capture collaborator
// accepted a proof (photo or signature). proofRef identifies that proof in
// the external system and travels on the emitted event.
func (s *PackageLifecycle) MarkDelivered(ctx context.Context, packageID, proofRef string) (*domain.Package, error) {
	if proofRef == "" {
		return nil, fmt.Errorf("mark package %s delivered: %w: proof reference is required", packageID, domain.ErrInvalidInput)
	}
	var out *domain.Package
	err := withPackageLock(ctx, s.locker, packageID, func() error {
		pkg, err := s.packages.Get(ctx, packageID)
		if err != nil {
			return err
		}
		actorID := ""
		if winner, err := s.selectedBidLocked(ctx, pkg); err == nil {
			actorID = winner.CourierID
		}
		if err := s.advanceLocked(ctx, pkg, domain.StatusDelivered, actorID, proofRef, s.now().UTC()); err != nil {
			return err
		}
		out = pkg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark package %s delivered: %w", packageID, err)
	}
	s.log.Infow("package delivered", "package_id", packageID, "proof_ref", proofRef)
	return out, nil
}

// MarkFailed records a failed pickup or delivery attempt with a free-form
// reason for the event stream.
func (s *PackageLifecycle) MarkFailed(ctx context.Context, packageID, actorID, reason string) (*domain.Package, error) {
	if reason == "" {
		return nil, fmt.Errorf("mark package %s failed: %w: a failure reason is required", packageID, domain.ErrInvalidInput)
	}
	var out *domain.Package
	err := withPackageLock(ctx, s.locker, packageID, func() error {
		pkg, err := s.packages.Get(ctx, packageID)
		if err != nil {
			return err
		}
		if err := s.advanceLocked(ctx, pkg, domain.StatusFailed, actorID, reason, s.now().UTC()); err != nil {
			return err
		}
		out = pkg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark package %s failed: %w", packageID, err)
	}
	s.log.Infow("package failed", "package_id", packageID, "reason", reason)
	return out, nil
}

// ExtendBidding pushes an overdue listing's deadline out by one extension.
// Returns false without error when the package no longer qualifies; the
// sweep treats that as a benign no-op.
func (s *PackageLifecycle) ExtendBidding(ctx context.Context, packageID string) (bool, error) {
	var extended bool
	err := withPackageLock(ctx, s.locker, packageID, func() error {
		pkg, err := s.packages.Get(ctx, packageID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if pkg.Status != domain.StatusOpenForBids || !pkg.DeadlinePassed(now) || pkg.ExtensionsUsed >= s.rules.MaxExtensions {
			return nil
		}

		deadline := now.Add(s.rules.Extension)
		pkg.BiddingDeadline = &deadline
		pkg.ExtensionsUsed++
		pkg.UpdatedAt = now
		if err := s.packages.Update(ctx, pkg); err != nil {
			return err
		}
		extended = true

		publish(ctx, s.sink, s.log, domain.Event{
			ID:        uuid.NewString(),
			Kind:      domain.EventDeadlineExtended,
			PackageID: pkg.ID,
			Deadline:  deadline,
			At:        now,
		})
		s.log.Infow("bidding deadline extended",
			"package_id", pkg.ID,
			"extensions_used", pkg.ExtensionsUsed,
			"deadline", deadline,
		)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("extend bidding for package %s: %w", packageID, err)
	}
	return extended, nil
}

// winnerTransition applies a status change that only the selected courier
// may trigger.
func (s *PackageLifecycle) winnerTransition(ctx context.Context, packageID, courierID string, to domain.PackageStatus) (*domain.Package, error) {
	var out *domain.Package
	err := withPackageLock(ctx, s.locker, packageID, func() error {
		pkg, err := s.packages.Get(ctx, packageID)
		if err != nil {
			return err
		}
		winner, err := s.selectedBidLocked(ctx, pkg)
		if err != nil {
			return err
		}
		if winner.CourierID != courierID {
			return fmt.Errorf("package was won by another courier: %w", domain.ErrNotOwner)
		}
		if err := s.advanceLocked(ctx, pkg, to, courierID, "", s.now().UTC()); err != nil {
			return err
		}
		out = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// advanceLocked applies a single transition edge and publishes the status
// event. Deadlines only exist while a package is open for bids, so any move
// off that state clears it. Assumes the package lock is held.
func (s *PackageLifecycle) advanceLocked(ctx context.Context, pkg *domain.Package, to domain.PackageStatus, actorID, note string, now time.Time) error {
	from := pkg.Status
	if err := pkg.Transition(to, now); err != nil {
		return err
	}
	if to != domain.StatusOpenForBids {
		pkg.BiddingDeadline = nil
	}
	if err := s.packages.Update(ctx, pkg); err != nil {
		return err
	}
	publish(ctx, s.sink, s.log, domain.Event{
		ID:        uuid.NewString(),
		Kind:      domain.EventPackageStatus,
		PackageID: pkg.ID,
		ActorID:   actorID,
		From:      string(from),
		To:        string(to),
		Note:      note,
		At:        now,
	})
	return nil
}

// applySelectionLocked marks the winning bid on the package and takes the
// listing off the market. Assumes the package lock is held.
func (s *PackageLifecycle) applySelectionLocked(ctx context.Context, pkg *domain.Package, winnerID, actorID string, now time.Time) error {
	from := pkg.Status
	if err := pkg.Transition(domain.StatusBidSelected, now); err != nil {
		return err
	}
	pkg.SelectedBidID = &winnerID
	pkg.BiddingDeadline = nil
	if err := s.packages.Update(ctx, pkg); err != nil {
		return err
	}
	publish(ctx, s.sink, s.log, domain.Event{
		ID:        uuid.NewString(),
		Kind:      domain.EventPackageStatus,
		PackageID: pkg.ID,
		ActorID:   actorID,
		From:      string(from),
		To:        string(domain.StatusBidSelected),
		At:        now,
	})
	return nil
}

// reopenBiddingLocked resets the listing to a fresh bidding window after a
// purge. The package never leaves OPEN_FOR_BIDS. Assumes the package lock
// is held.
func (s *PackageLifecycle) reopenBiddingLocked(ctx context.Context, pkg *domain.Package, now time.Time) error {
	deadline := now.Add(s.rules.Window)
	pkg.BiddingDeadline = &deadline
	pkg.ExtensionsUsed = 0
	pkg.UpdatedAt = now
	if err := s.packages.Update(ctx, pkg); err != nil {
		return err
	}
	publish(ctx, s.sink, s.log, domain.Event{
		ID:        uuid.NewString(),
		Kind:      domain.EventBiddingReopened,
		PackageID: pkg.ID,
		Deadline:  deadline,
		At:        now,
	})
	return nil
}

// selectedBidLocked resolves the package's winning bid for guard checks.
// Assumes the package lock is held.
func (s *PackageLifecycle) selectedBidLocked(ctx context.Context, pkg *domain.Package) (*domain.Bid, error) {
	if pkg.SelectedBidID == nil {
		return nil, fmt.Errorf("package %s has no selected bid: %w", pkg.ID, domain.ErrInvalidTransition)
	}
	return s.bids.Get(ctx, *pkg.SelectedBidID)
}

// rejectActiveBidsLocked rejects every bid still in play on a canceled
// package. Individual bid failures are logged and skipped so the cancel,
// which is already persisted, stands. Assumes the package lock is held.
func (s *PackageLifecycle) rejectActiveBidsLocked(ctx context.Context, packageID, actorID string, now time.Time) {
	bids, err := s.bids.ListByPackage(ctx, packageID)
	if err != nil {
		s.log.Warnw("cancel: list bids", "package_id", packageID, "error", err)
		return
	}
	for _, bid := range bids {
		if !bid.Status.Active() {
			continue
		}
		if err := bid.Transition(domain.BidRejected, now); err != nil {
			s.log.Warnw("cancel: reject bid", "bid_id", bid.ID, "error", err)
			continue
		}
		if err := s.bids.Update(ctx, bid); err != nil {
			s.log.Warnw("cancel: persist rejected bid", "bid_id", bid.ID, "error", err)
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
