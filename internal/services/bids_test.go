package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courier-market-service/internal/adapters/identity"
	"courier-market-service/internal/domain"
)

func TestPlaceBid(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	pickupAt := m.clock.Now().Add(3 * time.Hour)

	bid, err := m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID:  pkg.ID,
		CourierID:  "courier-1",
		PriceCents: 2050,
		PickupAt:   pickupAt,
	})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if bid.Status != domain.BidPending {
		t.Fatalf("status = %s, want %s", bid.Status, domain.BidPending)
	}
	if bid.PriceCents != 2050 || !bid.PickupAt.Equal(pickupAt) {
		t.Fatalf("bid fields = %d cents at %v, want 2050 at %v", bid.PriceCents, bid.PickupAt, pickupAt)
	}
	if got := m.sink.count(domain.EventBidPlaced); got != 1 {
		t.Fatalf("bid placed events = %d, want 1", got)
	}

	stored := m.mustBid(t, bid.ID)
	if stored.CourierID != "courier-1" || stored.PackageID != pkg.ID {
		t.Fatalf("stored bid = %+v", stored)
	}
}

func TestPlaceBidRejectsBadInput(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")

	cases := []struct {
		name string
		req  PlaceBidRequest
	}{
		{"empty courier", PlaceBidRequest{PackageID: pkg.ID, PriceCents: 100, PickupAt: m.clock.Now()}},
		{"zero price", PlaceBidRequest{PackageID: pkg.ID, CourierID: "courier-1", PickupAt: m.clock.Now()}},
		{"missing pickup time", PlaceBidRequest{PackageID: pkg.ID, CourierID: "courier-1", PriceCents: 100}},
	}
	for _, tc := range cases {
		if _, err := m.ledger.PlaceBid(context.Background(), tc.req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestPlaceBidDuplicate(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	first := m.bid(t, pkg.ID, "courier-1", 2000)

	_, err := m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID:  pkg.ID,
		CourierID:  "courier-1",
		PriceCents: 1500,
		PickupAt:   m.clock.Now().Add(time.Hour),
	})
	if !errors.Is(err, domain.ErrDuplicateBid) {
		t.Fatalf("expected ErrDuplicateBid, got %v", err)
	}

	// withdrawing frees the courier to bid again
	if _, err := m.ledger.WithdrawBid(context.Background(), first.ID, "courier-1"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID:  pkg.ID,
		CourierID:  "courier-1",
		PriceCents: 1500,
		PickupAt:   m.clock.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("rebid after withdraw: %v", err)
	}
}

func TestPlaceBidOnClosedOrOverduePackage(t *testing.T) {
	m := newMarket(t)

	decided := m.openPackage(t, "sender-1")
	winner := m.bid(t, decided.ID, "courier-1", 2000)
	if _, err := m.ledger.SelectBid(context.Background(), winner.ID, "sender-1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, err := m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID: decided.ID, CourierID: "courier-2", PriceCents: 900, PickupAt: m.clock.Now(),
	})
	if !errors.Is(err, domain.ErrPackageNotBiddable) {
		t.Fatalf("bid on decided package: expected ErrPackageNotBiddable, got %v", err)
	}

	// still OPEN_FOR_BIDS but past the deadline: the sweep has not caught up
	overdue := m.openPackage(t, "sender-1")
	m.clock.Advance(25 * time.Hour)
	_, err = m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID: overdue.ID, CourierID: "courier-2", PriceCents: 900, PickupAt: m.clock.Now(),
	})
	if !errors.Is(err, domain.ErrPackageNotBiddable) {
		t.Fatalf("bid past deadline: expected ErrPackageNotBiddable, got %v", err)
	}
}

func TestPlaceBidEligibility(t *testing.T) {
	m := newMarket(t)
	m.ledger.directory = identity.NewStaticDirectory("banned-courier")
	pkg := m.openPackage(t, "sender-1")

	_, err := m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID: pkg.ID, CourierID: "banned-courier", PriceCents: 1000, PickupAt: m.clock.Now(),
	})
	if !errors.Is(err, domain.ErrCourierNotEligible) {
		t.Fatalf("banned courier: expected ErrCourierNotEligible, got %v", err)
	}

	// senders cannot bid their own listings down
	_, err = m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID: pkg.ID, CourierID: "sender-1", PriceCents: 1000, PickupAt: m.clock.Now(),
	})
	if !errors.Is(err, domain.ErrCourierNotEligible) {
		t.Fatalf("self bid: expected ErrCourierNotEligible, got %v", err)
	}
}

func TestWithdrawBid(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	bid := m.bid(t, pkg.ID, "courier-1", 2000)

	if _, err := m.ledger.WithdrawBid(context.Background(), bid.ID, "courier-2"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("foreign withdraw: expected ErrNotOwner, got %v", err)
	}

	withdrawn, err := m.ledger.WithdrawBid(context.Background(), bid.ID, "courier-1")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Status != domain.BidWithdrawn {
		t.Fatalf("status = %s, want %s", withdrawn.Status, domain.BidWithdrawn)
	}
	if got := m.sink.count(domain.EventBidWithdrawn); got != 1 {
		t.Fatalf("bid withdrawn events = %d, want 1", got)
	}

	if _, err := m.ledger.WithdrawBid(context.Background(), bid.ID, "courier-1"); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Fatalf("second withdraw: expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestWithdrawSelectedBidRefused(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	bid := m.bid(t, pkg.ID, "courier-1", 2000)
	if _, err := m.ledger.SelectBid(context.Background(), bid.ID, "sender-1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	if _, err := m.ledger.WithdrawBid(context.Background(), bid.ID, "courier-1"); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Fatalf("withdraw selected bid: expected ErrAlreadyTerminal, got %v", err)
	}
	if got := m.mustBid(t, bid.ID).Status; got != domain.BidSelected {
		t.Fatalf("bid status = %s, want untouched %s", got, domain.BidSelected)
	}
}

func TestSelectBid(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	cheap := m.bid(t, pkg.ID, "courier-1", 2000)
	pricey := m.bid(t, pkg.ID, "courier-2", 2500)

	selected, err := m.ledger.SelectBid(context.Background(), cheap.ID, "sender-1")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected.Status != domain.BidSelected {
		t.Fatalf("winner status = %s, want %s", selected.Status, domain.BidSelected)
	}
	if got := m.mustBid(t, pricey.ID).Status; got != domain.BidRejected {
		t.Fatalf("loser status = %s, want %s", got, domain.BidRejected)
	}

	got := m.mustPackage(t, pkg.ID)
	if got.Status != domain.StatusBidSelected {
		t.Fatalf("package status = %s, want %s", got.Status, domain.StatusBidSelected)
	}
	if got.SelectedBidID == nil || *got.SelectedBidID != cheap.ID {
		t.Fatalf("selected bid id = %v, want %s", got.SelectedBidID, cheap.ID)
	}
	if m.sink.count(domain.EventBidSelected) != 1 || m.sink.count(domain.EventBidRejected) != 1 {
		t.Fatalf("events: selected=%d rejected=%d, want 1 and 1",
			m.sink.count(domain.EventBidSelected), m.sink.count(domain.EventBidRejected))
	}
}

func TestSelectBidGuards(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	bid := m.bid(t, pkg.ID, "courier-1", 2000)

	if _, err := m.ledger.SelectBid(context.Background(), bid.ID, "other-sender"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("foreign select: expected ErrNotOwner, got %v", err)
	}
	if _, err := m.ledger.SelectBid(context.Background(), "no-such-bid", "sender-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown bid: expected ErrNotFound, got %v", err)
	}
}

func TestSelectBidAgainNeverRerejects(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	winner := m.bid(t, pkg.ID, "courier-1", 2000)
	m.bid(t, pkg.ID, "courier-2", 2500)

	if _, err := m.ledger.SelectBid(context.Background(), winner.ID, "sender-1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	rejectedBefore := m.sink.count(domain.EventBidRejected)

	if _, err := m.ledger.SelectBid(context.Background(), winner.ID, "sender-1"); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Fatalf("repeat select: expected ErrAlreadyTerminal, got %v", err)
	}
	if got := m.sink.count(domain.EventBidRejected); got != rejectedBefore {
		t.Fatalf("repeat select re-rejected siblings: events %d -> %d", rejectedBefore, got)
	}
	if got := m.mustPackage(t, pkg.ID).Status; got != domain.StatusBidSelected {
		t.Fatalf("package status = %s, want %s", got, domain.StatusBidSelected)
	}
}

func TestSelectBidAfterDeadlineStillWorks(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	bid := m.bid(t, pkg.ID, "courier-1", 2000)

	// deadline passed but the sweep has not extended yet; the package is
	// still OPEN_FOR_BIDS, so the sender may settle on an existing bid
	m.clock.Advance(25 * time.Hour)
	if _, err := m.ledger.SelectBid(context.Background(), bid.ID, "sender-1"); err != nil {
		t.Fatalf("select after deadline: %v", err)
	}
	if got := m.mustPackage(t, pkg.ID).Status; got != domain.StatusBidSelected {
		t.Fatalf("package status = %s, want %s", got, domain.StatusBidSelected)
	}
	if got := m.sink.count(domain.EventBidRejected); got != 0 {
		t.Fatalf("lone-bid selection emitted %d rejections, want 0", got)
	}
}

func TestExpireOverduePurgesAndReopens(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	b1 := m.bid(t, pkg.ID, "courier-1", 2000)
	b2 := m.bid(t, pkg.ID, "courier-2", 2200)
	withdrawn := m.bid(t, pkg.ID, "courier-3", 2400)
	if _, err := m.ledger.WithdrawBid(context.Background(), withdrawn.ID, "courier-3"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	// not yet out of extensions: purge must refuse
	m.clock.Advance(25 * time.Hour)
	purged, err := m.ledger.ExpireOverdue(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if purged {
		t.Fatal("purged a package that still had extensions left")
	}

	// burn through both extensions, then purge
	for i := 0; i < 2; i++ {
		if ok, err := m.lifecycle.ExtendBidding(context.Background(), pkg.ID); err != nil || !ok {
			t.Fatalf("extension %d: ok=%v err=%v", i+1, ok, err)
		}
		m.clock.Advance(13 * time.Hour)
	}
	purged, err = m.ledger.ExpireOverdue(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !purged {
		t.Fatal("expected the purge to run")
	}

	for _, id := range []string{b1.ID, b2.ID} {
		if got := m.mustBid(t, id).Status; got != domain.BidExpired {
			t.Fatalf("bid %s = %s, want %s", id, got, domain.BidExpired)
		}
	}
	if got := m.mustBid(t, withdrawn.ID).Status; got != domain.BidWithdrawn {
		t.Fatalf("withdrawn bid = %s, want untouched %s", got, domain.BidWithdrawn)
	}

	got := m.mustPackage(t, pkg.ID)
	if got.Status != domain.StatusOpenForBids {
		t.Fatalf("package status = %s, want %s", got.Status, domain.StatusOpenForBids)
	}
	if got.ExtensionsUsed != 0 {
		t.Fatalf("extensions used = %d, want reset to 0", got.ExtensionsUsed)
	}
	wantDeadline := m.clock.Now().Add(24 * time.Hour)
	if got.BiddingDeadline == nil || !got.BiddingDeadline.Equal(wantDeadline) {
		t.Fatalf("deadline = %v, want fresh window %v", got.BiddingDeadline, wantDeadline)
	}
	if m.sink.count(domain.EventBidExpired) != 2 {
		t.Fatalf("bid expired events = %d, want 2", m.sink.count(domain.EventBidExpired))
	}
	if m.sink.count(domain.EventBiddingReopened) != 1 {
		t.Fatalf("bidding reopened events = %d, want 1", m.sink.count(domain.EventBiddingReopened))
	}
}

func TestListBids(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	m.bid(t, pkg.ID, "courier-1", 2000)
	m.clock.Advance(time.Minute)
	newest := m.bid(t, pkg.ID, "courier-2", 2100)

	bids, err := m.ledger.ListBids(context.Background(), pkg.ID)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	if len(bids) != 2 {
		t.Fatalf("got %d bids, want 2", len(bids))
	}
	if bids[0].ID != newest.ID {
		t.Fatalf("first bid = %s, want newest %s", bids[0].ID, newest.ID)
	}

	if _, err := m.ledger.ListBids(context.Background(), "no-such-package"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown package: expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSelectsPickOneWinner(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")

	const couriers = 8
	bidIDs := make([]string, couriers)
	for i := 0; i < couriers; i++ {
		bidIDs[i] = m.bid(t, pkg.ID, "courier-"+string(rune('a'+i)), int64(1000+i*100)).ID
	}

	var wg sync.WaitGroup
	succeeded := make(chan string, couriers)
	for _, id := range bidIDs {
		wg.Add(1)
		go func(bidID string) {
			defer wg.Done()
			if _, err := m.ledger.SelectBid(context.Background(), bidID, "sender-1"); err == nil {
				succeeded <- bidID
			}
		}(id)
	}
	wg.Wait()
	close(succeeded)

	var winners []string
	for id := range succeeded {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("concurrent selects produced %d winners, want exactly 1", len(winners))
	}

	got := m.mustPackage(t, pkg.ID)
	if got.Status != domain.StatusBidSelected {
		t.Fatalf("package status = %s, want %s", got.Status, domain.StatusBidSelected)
	}
	if got.SelectedBidID == nil || *got.SelectedBidID != winners[0] {
		t.Fatalf("selected bid = %v, want %s", got.SelectedBidID, winners[0])
	}
	for _, id := range bidIDs {
		status := m.mustBid(t, id).Status
		if id == winners[0] {
			if status != domain.BidSelected {
				t.Fatalf("winner %s status = %s", id, status)
			}
			continue
		}
		if status != domain.BidRejected {
			t.Fatalf("bid %s status = %s, want %s", id, status, domain.BidRejected)
		}
	}
}

func TestConcurrentPlaceAndSelectStaySane(t *testing.T) {
	m := newMarket(t)
	pkg := m.openPackage(t, "sender-1")
	first := m.bid(t, pkg.ID, "courier-1", 2000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = m.ledger.SelectBid(context.Background(), first.ID, "sender-1")
	}()
	var lateBid *domain.Bid
	var lateErr error
	go func() {
		defer wg.Done()
		lateBid, lateErr = m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
			PackageID:  pkg.ID,
			CourierID:  "courier-2",
			PriceCents: 1500,
			PickupAt:   m.clock.Now().Add(time.Hour),
		})
	}()
	wg.Wait()

	if got := m.mustPackage(t, pkg.ID).Status; got != domain.StatusBidSelected {
		t.Fatalf("package status = %s, want %s", got, domain.StatusBidSelected)
	}
	switch {
	case lateErr != nil:
		// placement lost the race against selection
		if !errors.Is(lateErr, domain.ErrPackageNotBiddable) {
			t.Fatalf("late bid error = %v, want ErrPackageNotBiddable", lateErr)
		}
	default:
		// placement won the lock first; selection then rejected it
		if got := m.mustBid(t, lateBid.ID).Status; got != domain.BidRejected {
			t.Fatalf("late bid status = %s, want %s", got, domain.BidRejected)
		}
	}
}
