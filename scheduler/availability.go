package scheduler

import (
	"context"

	"github.com/room4-2/FrontDesk/domain"
)

// Checker answers whether an exact (date, time) pair is free. Occupancy is
// binary; there is no notion of duration or capacity.
type Checker struct {
	store domain.SessionStore
}

func NewChecker(store domain.SessionStore) *Checker {
	return &Checker{store: store}
}

// Available reports whether no session is booked at slot.
func (c *Checker) Available(ctx context.Context, slot domain.Slot) (bool, error) {
	n, err := c.store.CountSessionsAt(ctx, slot.Date, slot.Time)
	if err != nil {
		return false, domain.Unavailable("check availability", err)
	}
	return n == 0, nil
}
