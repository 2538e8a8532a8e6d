// Package memory is an in-process storage adapter. Check-and-insert of a slot
// runs under one mutex, so slot exclusivity holds for every goroutine sharing
// the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/room4-2/FrontDesk/domain"
)

// Store keeps every entity in memory.
type Store struct {
	mu sync.Mutex

	employees    []domain.Employee
	courses      []domain.Course
	sessions     []domain.CounselingSession
	interactions []domain.Interaction
	hrCommands   []domain.HRCommand

	nextID uint
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) CreateEmployee(_ context.Context, e *domain.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Code != "" {
		for _, existing := range s.employees {
			if existing.Code == e.Code {
				return fmt.Errorf("unique code %s already assigned", e.Code)
			}
		}
	}
	e.ID = s.id()
	e.CreatedAt = s.now()
	s.employees = append(s.employees, *e)
	return nil
}

func (s *Store) FindEmployeeByName(_ context.Context, name string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.employees {
		if e.Name == name {
			found := e
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) FindEmployeeByCode(_ context.Context, code string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.employees {
		if e.Code != "" && e.Code == code {
			found := e
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) UpdateEmployeeContact(_ context.Context, id uint, phone string, consent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.employees {
		if s.employees[i].ID == id {
			s.employees[i].Phone = phone
			s.employees[i].SMSConsent = consent
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) slotTakenLocked(date, clock string, except uint) bool {
	for _, cs := range s.sessions {
		if cs.Date == date && cs.Time == clock && cs.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) InsertSession(_ context.Context, cs *domain.CounselingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotTakenLocked(cs.Date, cs.Time, 0) {
		return domain.ErrSlotTaken
	}
	cs.ID = s.id()
	cs.CreatedAt = s.now()
	s.sessions = append(s.sessions, *cs)
	return nil
}

func (s *Store) UpdateSession(_ context.Context, cs *domain.CounselingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotTakenLocked(cs.Date, cs.Time, cs.ID) {
		return domain.ErrSlotTaken
	}
	for i := range s.sessions {
		if s.sessions[i].ID == cs.ID {
			cs.CreatedAt = s.now()
			s.sessions[i] = *cs
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) LatestSession(_ context.Context, employeeID uint) (*domain.CounselingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.CounselingSession
	for i := range s.sessions {
		cs := s.sessions[i]
		if cs.EmployeeID != employeeID {
			continue
		}
		if latest == nil || !cs.CreatedAt.Before(latest.CreatedAt) {
			found := cs
			latest = &found
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (s *Store) FindSessionBySlot(_ context.Context, date, clock string) (*domain.CounselingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cs := range s.sessions {
		if cs.Date == date && cs.Time == clock {
			found := cs
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) CountSessionsAt(_ context.Context, date, clock string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, cs := range s.sessions {
		if cs.Date == date && cs.Time == clock {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountSessions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sessions)), nil
}

func (s *Store) SeedCourses(_ context.Context, courses []domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.courses) > 0 {
		return nil
	}
	for _, c := range courses {
		if err := c.Validate(); err != nil {
			return err
		}
		c.ID = s.id()
		c.CreatedAt = s.now()
		s.courses = append(s.courses, c)
	}
	return nil
}

func (s *Store) FindCourse(_ context.Context, name string) (*domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.courseIndexLocked(name)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	found := s.courses[i]
	return &found, nil
}

func (s *Store) courseIndexLocked(name string) int {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return -1
	}
	for i, c := range s.courses {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			return i
		}
	}
	return -1
}

func (s *Store) ListCourses(_ context.Context) ([]domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Course, len(s.courses))
	copy(out, s.courses)
	return out, nil
}

func (s *Store) UpdateCourseField(_ context.Context, name string, field domain.CourseField, value any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 0, nil
	}
	var matches []int
	for i := range s.courses {
		if strings.Contains(strings.ToLower(s.courses[i].Name), needle) {
			matches = append(matches, i)
		}
	}
	switch {
	case len(matches) == 0:
		return 0, nil
	case len(matches) > 1:
		return 0, fmt.Errorf("%w: %q matches %d courses", domain.ErrAmbiguousName, name, len(matches))
	}

	c := &s.courses[matches[0]]
	switch field {
	case domain.FieldPrice:
		fee, ok := value.(float64)
		if !ok {
			return 0, fmt.Errorf("%w: price must be numeric", domain.ErrValidation)
		}
		c.Fee = fee
	case domain.FieldDescription:
		c.Description = fmt.Sprint(value)
	case domain.FieldContent:
		c.Content = fmt.Sprint(value)
	default:
		return 0, fmt.Errorf("%w: unknown field %q", domain.ErrValidation, field)
	}
	return 1, nil
}

func (s *Store) InsertInteraction(_ context.Context, in *domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = s.id()
	in.CreatedAt = s.now()
	s.interactions = append(s.interactions, *in)
	return nil
}

func (s *Store) RecentInteractions(_ context.Context, f domain.InteractionFilter, limit int) ([]domain.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[uint]bool)
	for _, e := range s.employees {
		switch {
		case f.Code != "":
			if e.Code == f.Code {
				ids[e.ID] = true
			}
		case f.Name != "":
			if strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.Name)) {
				ids[e.ID] = true
			}
		}
	}

	var out []domain.Interaction
	for _, in := range s.interactions {
		if ids[in.EmployeeID] {
			out = append(out, in)
		}
	}
	// Newest first; ids break ties between records from the same instant.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) InsertHRCommand(_ context.Context, c *domain.HRCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id()
	c.ExecutedAt = s.now()
	s.hrCommands = append(s.hrCommands, *c)
	return nil
}

func (s *Store) RecentHRCommands(_ context.Context, limit int) ([]domain.HRCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.HRCommand, 0, len(s.hrCommands))
	for i := len(s.hrCommands) - 1; i >= 0; i-- {
		out = append(out, s.hrCommands[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
