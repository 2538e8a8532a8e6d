// Package storetest holds the behavior every domain.Store adapter must show.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/FrontDesk/domain"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) domain.Store

// Run exercises a store adapter against the storage port contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Employees", func(t *testing.T) { testEmployees(t, newStore(t)) })
	t.Run("SlotExclusivity", func(t *testing.T) { testSlotExclusivity(t, newStore(t)) })
	t.Run("ConcurrentBooking", func(t *testing.T) { testConcurrentBooking(t, newStore(t)) })
	t.Run("UpdateSessionInPlace", func(t *testing.T) { testUpdateSession(t, newStore(t)) })
	t.Run("Courses", func(t *testing.T) { testCourses(t, newStore(t)) })
	t.Run("Audit", func(t *testing.T) { testAudit(t, newStore(t)) })
}

func testEmployees(t *testing.T, s domain.Store) {
	ctx := context.Background()

	e := &domain.Employee{Name: "Asha", Code: "ABC123", SMSConsent: true}
	require.NoError(t, s.CreateEmployee(ctx, e))
	require.NotZero(t, e.ID)

	byName, err := s.FindEmployeeByName(ctx, "Asha")
	require.NoError(t, err)
	assert.Equal(t, e.ID, byName.ID)

	byCode, err := s.FindEmployeeByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Asha", byCode.Name)

	_, err = s.FindEmployeeByCode(ctx, "ZZZ999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.FindEmployeeByName(ctx, "Nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.UpdateEmployeeContact(ctx, e.ID, "9876543210", false))
	updated, err := s.FindEmployeeByName(ctx, "Asha")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", updated.Phone)
	assert.False(t, updated.SMSConsent)

	dup := &domain.Employee{Name: "Ravi", Code: "ABC123"}
	assert.Error(t, s.CreateEmployee(ctx, dup))
}

func testSlotExclusivity(t *testing.T, s domain.Store) {
	ctx := context.Background()
	e := &domain.Employee{Name: "Asha", Code: "AAA111"}
	require.NoError(t, s.CreateEmployee(ctx, e))

	first := &domain.CounselingSession{EmployeeID: e.ID, Date: "2025-05-15", Time: "11:00", Mode: domain.ModeOffline}
	require.NoError(t, s.InsertSession(ctx, first))

	n, err := s.CountSessionsAt(ctx, "2025-05-15", "11:00")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	second := &domain.CounselingSession{EmployeeID: e.ID, Date: "2025-05-15", Time: "11:00", Mode: domain.ModeOnline}
	assert.ErrorIs(t, s.InsertSession(ctx, second), domain.ErrSlotTaken)

	other := &domain.CounselingSession{EmployeeID: e.ID, Date: "2025-05-15", Time: "14:00", Mode: domain.ModeOffline}
	require.NoError(t, s.InsertSession(ctx, other))

	found, err := s.FindSessionBySlot(ctx, "2025-05-15", "14:00")
	require.NoError(t, err)
	assert.Equal(t, other.ID, found.ID)

	total, err := s.CountSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	n, err = s.CountSessionsAt(ctx, "2025-05-16", "11:00")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testConcurrentBooking(t *testing.T, s domain.Store) {
	ctx := context.Background()
	const callers = 8

	ids := make([]uint, callers)
	for i := range ids {
		e := &domain.Employee{Name: fmt.Sprintf("caller-%d", i), Code: fmt.Sprintf("CC%04d", i)}
		require.NoError(t, s.CreateEmployee(ctx, e))
		ids[i] = e.ID
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		booked int
		taken  int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			err := s.InsertSession(ctx, &domain.CounselingSession{EmployeeID: id, Date: "2025-09-01", Time: "10:00", Mode: domain.ModeOffline})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case assert.ErrorIs(t, err, domain.ErrSlotTaken):
				taken++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, booked)
	assert.Equal(t, callers-1, taken)
}

func testUpdateSession(t *testing.T, s domain.Store) {
	ctx := context.Background()
	e := &domain.Employee{Name: "Asha", Code: "UPD001"}
	require.NoError(t, s.CreateEmployee(ctx, e))

	cs := &domain.CounselingSession{EmployeeID: e.ID, Date: "2025-05-15", Time: "11:00", Mode: domain.ModeOffline}
	require.NoError(t, s.InsertSession(ctx, cs))
	blocker := &domain.CounselingSession{EmployeeID: e.ID, Date: "2025-05-20", Time: "10:00", Mode: domain.ModeOffline}
	require.NoError(t, s.InsertSession(ctx, blocker))

	moved := *cs
	moved.Date, moved.Time, moved.Mode = "2025-05-16", "16:00", domain.ModeOnline
	require.NoError(t, s.UpdateSession(ctx, &moved))

	found, err := s.FindSessionBySlot(ctx, "2025-05-16", "16:00")
	require.NoError(t, err)
	assert.Equal(t, cs.ID, found.ID)
	assert.Equal(t, domain.ModeOnline, found.Mode)

	_, err = s.FindSessionBySlot(ctx, "2025-05-15", "11:00")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	total, err := s.CountSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	latest, err := s.LatestSession(ctx, e.ID)
	require.NoError(t, err)
	assert.Contains(t, []uint{cs.ID, blocker.ID}, latest.ID)

	// Keeping its own slot is not a conflict.
	require.NoError(t, s.UpdateSession(ctx, &moved))

	clash := moved
	clash.Date, clash.Time = "2025-05-20", "10:00"
	assert.ErrorIs(t, s.UpdateSession(ctx, &clash), domain.ErrSlotTaken)

	_, err = s.LatestSession(ctx, e.ID+1000)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testCourses(t *testing.T, s domain.Store) {
	ctx := context.Background()
	require.NoError(t, s.SeedCourses(ctx, domain.SeedCatalog()))
	// A second seed on a populated catalog is a no-op.
	require.NoError(t, s.SeedCourses(ctx, domain.SeedCatalog()))

	all, err := s.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	c, err := s.FindCourse(ctx, "python")
	require.NoError(t, err)
	assert.Equal(t, "Python Programming", c.Name)
	assert.Equal(t, 15000.0, c.Fee)

	_, err = s.FindCourse(ctx, "cobol")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := s.UpdateCourseField(ctx, "python", domain.FieldPrice, 16000.0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.UpdateCourseField(ctx, "java", domain.FieldDescription, "Spring and more")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	c, err = s.FindCourse(ctx, "python")
	require.NoError(t, err)
	assert.Equal(t, 16000.0, c.Fee)
	c, err = s.FindCourse(ctx, "java")
	require.NoError(t, err)
	assert.Equal(t, "Spring and more", c.Description)

	n, err = s.UpdateCourseField(ctx, "cobol", domain.FieldContent, "punch cards")
	require.NoError(t, err)
	assert.Zero(t, n)

	// "development" names both Java Development and Web Development.
	n, err = s.UpdateCourseField(ctx, "development", domain.FieldPrice, 30000.0)
	assert.ErrorIs(t, err, domain.ErrAmbiguousName)
	assert.Zero(t, n)
	c, err = s.FindCourse(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 13000.0, c.Fee)
	c, err = s.FindCourse(ctx, "java")
	require.NoError(t, err)
	assert.Equal(t, 18000.0, c.Fee)
}

func testAudit(t *testing.T, s domain.Store) {
	ctx := context.Background()
	asha := &domain.Employee{Name: "Asha Rao", Code: "AUD001"}
	ravi := &domain.Employee{Name: "Ravi", Code: "AUD002"}
	require.NoError(t, s.CreateEmployee(ctx, asha))
	require.NoError(t, s.CreateEmployee(ctx, ravi))

	for i := 0; i < 7; i++ {
		require.NoError(t, s.InsertInteraction(ctx, &domain.Interaction{
			EmployeeID: asha.ID, Query: fmt.Sprintf("q%d", i), Response: fmt.Sprintf("r%d", i),
		}))
	}
	require.NoError(t, s.InsertInteraction(ctx, &domain.Interaction{EmployeeID: ravi.ID, Query: "hello", Response: "hi"}))

	recent, err := s.RecentInteractions(ctx, domain.InteractionFilter{Name: "asha"}, 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "q6", recent[0].Query)
	assert.Equal(t, "q2", recent[4].Query)

	byCode, err := s.RecentInteractions(ctx, domain.InteractionFilter{Code: "AUD002"}, 5)
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, "hello", byCode[0].Query)

	none, err := s.RecentInteractions(ctx, domain.InteractionFilter{Name: "zed"}, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.InsertHRCommand(ctx, &domain.HRCommand{Text: "Generated status report", ExecutedBy: "Asha"}))
	require.NoError(t, s.InsertHRCommand(ctx, &domain.HRCommand{Text: "HR logout", ExecutedBy: "Asha"}))
	cmds, err := s.RecentHRCommands(ctx, 10)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "HR logout", cmds[0].Text)
}
