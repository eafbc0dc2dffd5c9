package ports

import "context"

// Contract for serializing mutations of a single package.
// Acquire blocks until the package lock is held, the configured acquisition
// timeout elapses (domain.ErrBusy), or ctx is done. The returned release
// function must be called exactly once.
type PackageLocker interface {
	Acquire(ctx context.Context, packageID string) (release func(), err error)
}
