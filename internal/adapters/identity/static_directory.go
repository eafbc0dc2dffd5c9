package identity

import "context"

// CourierDirectory that answers from a fixed block list. With no entries it
// treats every courier as eligible; backs local runs and tests.
type StaticDirectory struct {
	blocked map[string]struct{}
}

func NewStaticDirectory(blockedIDs ...string) *StaticDirectory {
	blocked := make(map[string]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}
	return &StaticDirectory{blocked: blocked}
}

func (d *StaticDirectory) IsEligible(ctx context.Context, courierID string) (bool, error) {
	_, found := d.blocked[courierID]
	return !found, nil
}
