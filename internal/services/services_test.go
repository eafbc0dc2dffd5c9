package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"courier-market-service/internal/adapters/detour"
	"courier-market-service/internal/adapters/identity"
	"courier-market-service/internal/adapters/locks"
	"courier-market-service/internal/adapters/repositories"
	"courier-market-service/internal/domain"
)

// testClock is a hand-driven clock shared by every service in a fixture.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Publish(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) count(kind domain.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingSink) last(kind domain.EventKind) (domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return domain.Event{}, false
}

// market wires the full service graph over in-memory adapters.
type market struct {
	clock     *testClock
	packages  *repositories.MemoryPackageRepository
	bids      *repositories.MemoryBidRepository
	routes    *repositories.MemoryRouteRepository
	sink      *recordingSink
	rules     BiddingRules
	lifecycle *PackageLifecycle
	ledger    *BidLedger
	sweeper   *DeadlineSweeper
	registry  *RouteRegistry
	matcher   *Matcher
}

func newMarket(t *testing.T) *market {
	t.Helper()

	m := &market{
		clock:    &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		packages: repositories.NewMemoryPackageRepository(),
		bids:     repositories.NewMemoryBidRepository(),
		routes:   repositories.NewMemoryRouteRepository(),
		sink:     &recordingSink{},
		rules:    BiddingRules{Window: 24 * time.Hour, Extension: 12 * time.Hour, MaxExtensions: 2},
	}
	log := zap.NewNop().Sugar()
	locker := locks.NewKeyedLocker(2 * time.Second)

	m.lifecycle = NewPackageLifecycle(m.packages, m.bids, locker, m.sink, log, m.rules)
	m.lifecycle.now = m.clock.Now
	m.ledger = NewBidLedger(m.packages, m.bids, locker, identity.NewStaticDirectory(), m.sink, log, m.lifecycle)
	m.ledger.now = m.clock.Now
	m.sweeper = NewDeadlineSweeper(m.packages, m.lifecycle, m.ledger, log, time.Minute, 4)
	m.sweeper.now = m.clock.Now
	m.registry = NewRouteRegistry(m.routes, log)
	m.registry.now = m.clock.Now
	m.matcher = NewMatcher(m.packages, m.routes, detour.NewStraightLine(), log)
	m.matcher.now = m.clock.Now
	return m
}

func (m *market) openPackage(t *testing.T, senderID string) *domain.Package {
	t.Helper()
	return m.openPackageAt(t, senderID,
		domain.Coordinates{Lon: 13.405, Lat: 52.52},
		domain.Coordinates{Lon: 13.7373, Lat: 51.0504},
	)
}

func (m *market) openPackageAt(t *testing.T, senderID string, origin, dest domain.Coordinates) *domain.Package {
	t.Helper()
	pkg, err := m.lifecycle.CreatePackage(context.Background(), CreatePackageRequest{
		SenderID:        senderID,
		Origin:          origin,
		Destination:     dest,
		Size:            domain.SizeMedium,
		WeightKg:        2.5,
		PriceOfferCents: 2000,
	})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	return pkg
}

func (m *market) bid(t *testing.T, packageID, courierID string, cents int64) *domain.Bid {
	t.Helper()
	bid, err := m.ledger.PlaceBid(context.Background(), PlaceBidRequest{
		PackageID:  packageID,
		CourierID:  courierID,
		PriceCents: cents,
		PickupAt:   m.clock.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	return bid
}

func (m *market) mustPackage(t *testing.T, id string) *domain.Package {
	t.Helper()
	pkg, err := m.packages.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get package %s: %v", id, err)
	}
	return pkg
}

func (m *market) mustBid(t *testing.T, id string) *domain.Bid {
	t.Helper()
	bid, err := m.bids.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get bid %s: %v", id, err)
	}
	return bid
}
