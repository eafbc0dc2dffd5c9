package domain

import (
	"fmt"
	"time"
)

// Represents a courier's planned trip. Start and End bound the corridor the
// courier is willing to serve; MaxDeviationKm is the largest added detour (and
// off-route pickup distance) the courier accepts for carrying a package.
type Route struct {
	ID             string
	CourierID      string
	Start          Coordinates
	End            Coordinates
	MaxDeviationKm float64
	DepartAt       time.Time
	Active         bool
	CreatedAt      time.Time
}

func (r *Route) Validate() error {
	if r.CourierID == "" {
		return fmt.Errorf("%w: courier id cannot be empty", ErrInvalidInput)
	}
	if err := r.Start.Validate(); err != nil {
		return fmt.Errorf("route start: %w", err)
	}
	if err := r.End.Validate(); err != nil {
		return fmt.Errorf("route end: %w", err)
	}
	if r.MaxDeviationKm <= 0 {
		return fmt.Errorf("%w: max deviation must be positive, got %.3f", ErrInvalidInput, r.MaxDeviationKm)
	}
	return nil
}
