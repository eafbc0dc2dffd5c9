package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"courier-market-service/internal/domain"
)

// In-memory implementation of the BidRepository port.
type MemoryBidRepository struct {
	mu   sync.RWMutex
	bids map[string]*domain.Bid
}

func NewMemoryBidRepository() *MemoryBidRepository {
	return &MemoryBidRepository{bids: make(map[string]*domain.Bid)}
}

func (m *MemoryBidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bids[bid.ID]; ok {
		return fmt.Errorf("create bid %s: id already exists", bid.ID)
	}
	m.bids[bid.ID] = cloneBid(bid)
	return nil
}

func (m *MemoryBidRepository) Get(ctx context.Context, id string) (*domain.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bid, ok := m.bids[id]
	if !ok {
		return nil, fmt.Errorf("get bid %s: %w", id, domain.ErrNotFound)
	}
	return cloneBid(bid), nil
}

func (m *MemoryBidRepository) Update(ctx context.Context, bid *domain.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bids[bid.ID]; !ok {
		return fmt.Errorf("update bid %s: %w", bid.ID, domain.ErrNotFound)
	}
	m.bids[bid.ID] = cloneBid(bid)
	return nil
}

func (m *MemoryBidRepository) ListByPackage(ctx context.Context, packageID string) ([]*domain.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Bid, 0, 8)
	for _, bid := range m.bids {
		if bid.PackageID == packageID {
			out = append(out, cloneBid(bid))
		}
	}

	// newest first, id as a stable tie-break
	slices.SortFunc(out, func(a, b *domain.Bid) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (m *MemoryBidRepository) HasActiveBid(ctx context.Context, packageID, courierID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, bid := range m.bids {
		if bid.PackageID == packageID && bid.CourierID == courierID && bid.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func cloneBid(bid *domain.Bid) *domain.Bid {
	cp := *bid
	return &cp
}
