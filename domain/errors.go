package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInputUnrecognized = errors.New("input unrecognized")
	ErrNoDateTime        = errors.New("no date and time found")
	ErrDateFormat        = errors.New("invalid date format")
	ErrTimeFormat        = errors.New("invalid time format")
	ErrSlotConflict      = errors.New("slot already booked")
	ErrNoSlotAvailable   = errors.New("no slot available")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrPrivilegeDenied   = errors.New("privilege denied")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")

	// ErrAmbiguousName is returned when a partial name matches several records
	// and the operation needs exactly one.
	ErrAmbiguousName = errors.New("name matches more than one record")

	// ErrSlotTaken is returned by stores when an insert or update would put
	// two sessions on the same (date, time) pair.
	ErrSlotTaken = errors.New("slot taken")
)

// Slot is a (date, time) pair eligible for exactly one booking.
type Slot struct {
	Date string
	Time string
}

func (s Slot) String() string {
	return s.Date + " at " + s.Time
}

// SlotConflictError reports a taken slot and, when one was found, an open alternative.
type SlotConflictError struct {
	Requested  Slot
	Suggestion *Slot
}

func (e *SlotConflictError) Error() string {
	if e.Suggestion != nil {
		return fmt.Sprintf("slot %s is taken, %s is open", e.Requested, e.Suggestion)
	}
	return fmt.Sprintf("slot %s is taken", e.Requested)
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// Unavailable wraps a persistence failure so callers can match ErrStoreUnavailable
// while the cause stays available for logging.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
