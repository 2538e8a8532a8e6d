// Package scheduler books, reschedules and auto-assigns counseling sessions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/datetime"
	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/metrics"
)

const dateLayout = "2006-01-02"

// DefaultSlots are the daily times tried by Autoschedule, in order.
var DefaultSlots = []string{"10:00", "14:00", "16:00"}

// Config bounds the autoschedule search.
type Config struct {
	// Anchor is the first day searched, YYYY-MM-DD. Empty means tomorrow.
	Anchor      string
	HorizonDays int
	Slots       []string
	Now         func() time.Time
}

// Request is one booking attempt. Text must contain a scheduling statement the
// datetime extractor understands.
type Request struct {
	Employee domain.Employee
	Mode     domain.Mode
	Course   *domain.Course
	Text     string
}

// Booking is a persisted session with its spoken confirmation.
type Booking struct {
	Session      domain.CounselingSession
	Rescheduled  bool
	Notified     bool
	Confirmation string
}

// Scheduler owns every write to counseling sessions.
type Scheduler struct {
	cfg      Config
	store    domain.SessionStore
	checker  *Checker
	notifier domain.Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a scheduler. notifier and m may be nil.
func New(cfg Config, store domain.SessionStore, notifier domain.Notifier, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	if len(cfg.Slots) == 0 {
		cfg.Slots = DefaultSlots
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		checker:  NewChecker(store),
		notifier: notifier,
		logger:   logger.Named("scheduler"),
		metrics:  m,
	}
}

// Book extracts the slot from req.Text and persists a new session there.
//
// A taken slot yields a *domain.SlotConflictError carrying the next open slot.
// Storage failures wrap domain.ErrStoreUnavailable and leave nothing written.
func (s *Scheduler) Book(ctx context.Context, req Request) (Booking, error) {
	slot, err := datetime.Extract(req.Text)
	if err != nil {
		s.metrics.Booking("unparsed")
		return Booking{}, err
	}

	ok, err := s.checker.Available(ctx, slot)
	if err != nil {
		s.metrics.Booking("store_error")
		return Booking{}, err
	}
	if !ok {
		return Booking{}, s.conflict(ctx, slot)
	}

	cs := newSession(req, slot)
	if err := cs.Validate(); err != nil {
		s.metrics.Booking("invalid")
		return Booking{}, err
	}
	if err := s.store.InsertSession(ctx, &cs); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			return Booking{}, s.conflict(ctx, slot)
		}
		s.metrics.Booking("store_error")
		return Booking{}, domain.Unavailable("book session", err)
	}

	s.logger.Info("Session booked",
		zap.Uint("employee_id", req.Employee.ID),
		zap.String("date", cs.Date),
		zap.String("time", cs.Time),
		zap.String("mode", string(cs.Mode)))
	s.metrics.Booking("booked")
	return s.confirm(ctx, req, cs, false), nil
}

// Reschedule moves the employee's most recent session to the slot in req.Text,
// keeping its identity. With no prior session it books a new one.
func (s *Scheduler) Reschedule(ctx context.Context, req Request) (Booking, error) {
	slot, err := datetime.Extract(req.Text)
	if err != nil {
		s.metrics.Booking("unparsed")
		return Booking{}, err
	}

	existing, err := s.store.LatestSession(ctx, req.Employee.ID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("No session to move, booking instead", zap.Uint("employee_id", req.Employee.ID))
		return s.Book(ctx, req)
	}
	if err != nil {
		s.metrics.Booking("store_error")
		return Booking{}, domain.Unavailable("load latest session", err)
	}

	holder, err := s.store.FindSessionBySlot(ctx, slot.Date, slot.Time)
	switch {
	case err == nil && holder.ID != existing.ID:
		return Booking{}, s.conflict(ctx, slot)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.metrics.Booking("store_error")
		return Booking{}, domain.Unavailable("check availability", err)
	}

	moved := *existing
	moved.Date, moved.Time = slot.Date, slot.Time
	if req.Mode.Valid() {
		moved.Mode = req.Mode
	}
	if req.Course != nil {
		id := req.Course.ID
		moved.CourseID = &id
	}
	if err := moved.Validate(); err != nil {
		s.metrics.Booking("invalid")
		return Booking{}, err
	}
	if err := s.store.UpdateSession(ctx, &moved); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			return Booking{}, s.conflict(ctx, slot)
		}
		s.metrics.Booking("store_error")
		return Booking{}, domain.Unavailable("reschedule session", err)
	}

	s.logger.Info("Session rescheduled",
		zap.Uint("session_id", moved.ID),
		zap.String("date", moved.Date),
		zap.String("time", moved.Time))
	s.metrics.Booking("rescheduled")
	return s.confirm(ctx, req, moved, true), nil
}

// Autoschedule books the first open offline slot, searching day by day from
// the anchor through the configured horizon.
func (s *Scheduler) Autoschedule(ctx context.Context, employee domain.Employee, course *domain.Course) (Booking, error) {
	req := Request{Employee: employee, Mode: domain.ModeOffline, Course: course}

	start := s.anchor()
	for day := 0; day < s.cfg.HorizonDays; day++ {
		date := start.AddDate(0, 0, day).Format(dateLayout)
		for _, clock := range s.cfg.Slots {
			if err := ctx.Err(); err != nil {
				return Booking{}, err
			}
			slot := domain.Slot{Date: date, Time: clock}
			ok, err := s.checker.Available(ctx, slot)
			if err != nil {
				s.metrics.Booking("store_error")
				return Booking{}, err
			}
			if !ok {
				continue
			}

			cs := newSession(req, slot)
			err = s.store.InsertSession(ctx, &cs)
			if errors.Is(err, domain.ErrSlotTaken) {
				// Lost the race for this slot; keep walking.
				continue
			}
			if err != nil {
				s.metrics.Booking("store_error")
				return Booking{}, domain.Unavailable("autoschedule session", err)
			}

			s.logger.Info("Session autoscheduled",
				zap.Uint("employee_id", employee.ID),
				zap.String("date", cs.Date),
				zap.String("time", cs.Time))
			s.metrics.Booking("autoscheduled")
			return s.confirm(ctx, req, cs, false), nil
		}
	}

	s.metrics.Booking("exhausted")
	return Booking{}, fmt.Errorf("%w within %d days of %s", domain.ErrNoSlotAvailable, s.cfg.HorizonDays, start.Format(dateLayout))
}

// NextOpen returns the first free slot on or after from, using the daily
// slots and horizon of the autoschedule search. It returns nil when none is free.
func (s *Scheduler) NextOpen(ctx context.Context, from string) (*domain.Slot, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		start = s.anchor()
	}
	for day := 0; day < s.cfg.HorizonDays; day++ {
		date := start.AddDate(0, 0, day).Format(dateLayout)
		for _, clock := range s.cfg.Slots {
			slot := domain.Slot{Date: date, Time: clock}
			ok, err := s.checker.Available(ctx, slot)
			if err != nil {
				return nil, err
			}
			if ok {
				return &slot, nil
			}
		}
	}
	return nil, nil
}

func (s *Scheduler) anchor() time.Time {
	var start time.Time
	if s.cfg.Anchor != "" {
		if t, err := time.Parse(dateLayout, s.cfg.Anchor); err == nil {
			start = t
		} else {
			s.logger.Warn("Ignoring unparseable autoschedule anchor", zap.String("anchor", s.cfg.Anchor))
		}
	}
	if start.IsZero() {
		now := s.cfg.Now()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	if start.Year() < domain.MinSessionYear {
		start = time.Date(domain.MinSessionYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return start
}

func (s *Scheduler) conflict(ctx context.Context, slot domain.Slot) error {
	s.metrics.Booking("conflict")
	suggestion, err := s.NextOpen(ctx, slot.Date)
	if err != nil {
		s.logger.Warn("Failed to look up an alternative slot", zap.Error(err))
	}
	return &domain.SlotConflictError{Requested: slot, Suggestion: suggestion}
}

func newSession(req Request, slot domain.Slot) domain.CounselingSession {
	cs := domain.CounselingSession{
		EmployeeID: req.Employee.ID,
		Date:       slot.Date,
		Time:       slot.Time,
		Mode:       req.Mode,
	}
	if !cs.Mode.Valid() {
		cs.Mode = domain.ModeOffline
	}
	if req.Course != nil {
		id := req.Course.ID
		cs.CourseID = &id
	}
	return cs
}
