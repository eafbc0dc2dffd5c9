package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"courier-market-service/internal/domain"
)

// In-memory implementation of the PackageRepository port. Backs the service
// tests and the no-database development mode.
type MemoryPackageRepository struct {
	mu       sync.RWMutex
	packages map[string]*domain.Package
}

func NewMemoryPackageRepository() *MemoryPackageRepository {
	return &MemoryPackageRepository{packages: make(map[string]*domain.Package)}
}

func (m *MemoryPackageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packages[pkg.ID]; ok {
		return fmt.Errorf("create package %s: id already exists", pkg.ID)
	}
	m.packages[pkg.ID] = clonePackage(pkg)
	return nil
}

func (m *MemoryPackageRepository) Get(ctx context.Context, id string) (*domain.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pkg, ok := m.packages[id]
	if !ok {
		return nil, fmt.Errorf("get package %s: %w", id, domain.ErrNotFound)
	}
	return clonePackage(pkg), nil
}

func (m *MemoryPackageRepository) Update(ctx context.Context, pkg *domain.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packages[pkg.ID]; !ok {
		return fmt.Errorf("update package %s: %w", pkg.ID, domain.ErrNotFound)
	}
	m.packages[pkg.ID] = clonePackage(pkg)
	return nil
}

func (m *MemoryPackageRepository) ListByStatus(ctx context.Context, status domain.PackageStatus) ([]*domain.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Package, 0, 16)
	for _, pkg := range m.packages {
		if pkg.Status == status {
			out = append(out, clonePackage(pkg))
		}
	}
	sortPackagesByCreation(out)
	return out, nil
}

func (m *MemoryPackageRepository) ListOverdueOpen(ctx context.Context, now time.Time) ([]*domain.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Package, 0, 16)
	for _, pkg := range m.packages {
		if pkg.Status == domain.StatusOpenForBids && pkg.DeadlinePassed(now) {
			out = append(out, clonePackage(pkg))
		}
	}
	sortPackagesByDeadline(out)
	return out, nil
}

func (m *MemoryPackageRepository) ListOpenForBidding(ctx context.Context, now time.Time) ([]*domain.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Package, 0, 16)
	for _, pkg := range m.packages {
		if pkg.Biddable(now) {
			out = append(out, clonePackage(pkg))
		}
	}
	sortPackagesByCreation(out)
	return out, nil
}

// Copies isolate callers from later mutation of the stored value.
func clonePackage(pkg *domain.Package) *domain.Package {
	cp := *pkg
	if pkg.SelectedBidID != nil {
		id := *pkg.SelectedBidID
		cp.SelectedBidID = &id
	}
	if pkg.BiddingDeadline != nil {
		dl := *pkg.BiddingDeadline
		cp.BiddingDeadline = &dl
	}
	return &cp
}

func sortPackagesByCreation(pkgs []*domain.Package) {
	slices.SortFunc(pkgs, func(a, b *domain.Package) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Packages without a deadline sort last; callers filter them out anyway.
func sortPackagesByDeadline(pkgs []*domain.Package) {
	slices.SortFunc(pkgs, func(a, b *domain.Package) int {
		switch {
		case a.BiddingDeadline == nil && b.BiddingDeadline == nil:
		case a.BiddingDeadline == nil:
			return 1
		case b.BiddingDeadline == nil:
			return -1
		default:
			if c := a.BiddingDeadline.Compare(*b.BiddingDeadline); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ID, b.ID)
	})
}
