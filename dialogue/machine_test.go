package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/cache"
	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/hr"
	"github.com/room4-2/FrontDesk/intent"
	"github.com/room4-2/FrontDesk/scheduler"
	"github.com/room4-2/FrontDesk/store/memory"
)

type fakeDialogue struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeDialogue) SendTurn(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeCounselor struct {
	pitch string
	err   error
	calls int
}

func (f *fakeCounselor) Counsel(context.Context, string, domain.Course) (string, error) {
	f.calls++
	return f.pitch, f.err
}

// countingStore counts catalog reads so cache bypass can be observed.
type countingStore struct {
	*memory.Store
	finds int
}

func (s *countingStore) FindCourse(ctx context.Context, name string) (*domain.Course, error) {
	s.finds++
	return s.Store.FindCourse(ctx, name)
}

type fixture struct {
	store   *countingStore
	machine *Machine
}

func newFixture(t *testing.T, dialogue domain.Dialogue, counselor domain.Counselor) fixture {
	t.Helper()
	store := &countingStore{Store: memory.NewStore()}
	require.NoError(t, store.SeedCourses(context.Background(), domain.SeedCatalog()))

	logger := zap.NewNop()
	courses := cache.NewCourseCache(store, nil, time.Minute, logger, nil)
	sched := scheduler.New(scheduler.Config{Anchor: "2025-05-15", HorizonDays: 2}, store, nil, logger, nil)
	handler := hr.NewHandler(hr.Config{Secret: "opensesame"}, store, courses, logger, nil)

	m := NewMachine(Deps{
		Store:     store,
		Scheduler: sched,
		HR:        handler,
		Courses:   courses,
		Dialogue:  dialogue,
		Counselor: counselor,
		Org:       "Regex Software",
		HRContact: "+91-141-0000000",
		Logger:    logger,
		Now:       func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) },
	})
	return fixture{store: store, machine: m}
}

// identified registers Asha and returns an Idle context bound to her.
func (f fixture) identified(t *testing.T) Context {
	t.Helper()
	e := &domain.Employee{Name: "Asha", Code: "ABC123", Phone: "9876543210", SMSConsent: true}
	require.NoError(t, f.store.CreateEmployee(context.Background(), e))
	return Context{State: Idle}.bind(e)
}

func step(t *testing.T, m *Machine, c Context, text string) Turn {
	t.Helper()
	return m.Step(context.Background(), c, text)
}

func TestAdmissionToBooking(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "I want to take admission")
	assert.Equal(t, AwaitingChoice, turn.Next.State)
	assert.Equal(t, intent.Schedule, turn.Next.LastIntent)

	turn = step(t, f.machine, turn.Next, "python")
	assert.Equal(t, AwaitingMode, turn.Next.State)
	assert.Equal(t, "Python Programming", turn.Next.Course)

	turn = step(t, f.machine, turn.Next, "offline")
	assert.Equal(t, AwaitingScheduleInput, turn.Next.State)
	assert.Equal(t, domain.ModeOffline, turn.Next.Mode)

	turn = step(t, f.machine, turn.Next, "May 15 2025 at 11am")
	require.NoError(t, turn.Err)
	assert.Equal(t, Idle, turn.Next.State)
	assert.Contains(t, turn.Reply, "Python Programming")
	assert.Contains(t, turn.Reply, "2025-05-15 at 11:00")

	cs, err := f.store.FindSessionBySlot(context.Background(), "2025-05-15", "11:00")
	require.NoError(t, err)
	assert.Equal(t, c.EmployeeID, cs.EmployeeID)
	assert.Equal(t, domain.ModeOffline, cs.Mode)
}

func TestScheduleConflictSuggestsOpenSlot(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	require.NoError(t, f.store.InsertSession(context.Background(), &domain.CounselingSession{
		EmployeeID: 99, Date: "2025-05-15", Time: "10:00", Mode: domain.ModeOffline,
	}))

	c.State, c.Course, c.Mode, c.LastIntent = AwaitingScheduleInput, "Java Development", domain.ModeOffline, intent.Schedule
	turn := step(t, f.machine, c, "May 15, 2025 at 10 AM")

	assert.ErrorIs(t, turn.Err, domain.ErrSlotConflict)
	assert.Equal(t, AwaitingScheduleInput, turn.Next.State)
	assert.Contains(t, turn.Reply, "That time slot is taken. The next open slot is 2025-05-15 at 14:00.")
}

func TestScheduleInputNotUnderstood(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	c.State, c.Course = AwaitingScheduleInput, "Java Development"

	turn := step(t, f.machine, c, "whenever works")
	assert.ErrorIs(t, turn.Err, domain.ErrNoDateTime)
	assert.Equal(t, AwaitingScheduleInput, turn.Next.State)
	assert.Contains(t, turn.Reply, "I didn't catch the date and time")
}

func TestScheduleInputFromDialogue(t *testing.T) {
	d := &fakeDialogue{reply: "scheduled for 2025-05-20 at 15:30"}
	f := newFixture(t, d, nil)
	c := f.identified(t)
	c.State, c.Course, c.Mode, c.LastIntent = AwaitingScheduleInput, "Data Science", domain.ModeOffline, intent.Schedule

	turn := step(t, f.machine, c, "the twentieth in the afternoon")
	require.NoError(t, turn.Err)
	assert.Equal(t, Idle, turn.Next.State)
	require.Len(t, d.prompts, 1)
	assert.Contains(t, d.prompts[0], "the twentieth in the afternoon")

	_, err := f.store.FindSessionBySlot(context.Background(), "2025-05-20", "15:30")
	assert.NoError(t, err)
}

func TestRescheduleMovesLatestSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	ctx := context.Background()
	original := &domain.CounselingSession{EmployeeID: c.EmployeeID, Date: "2025-05-15", Time: "10:00", Mode: domain.ModeOffline}
	require.NoError(t, f.store.InsertSession(ctx, original))

	turn := step(t, f.machine, c, "I need to reschedule")
	assert.Equal(t, AwaitingMode, turn.Next.State)
	assert.Contains(t, turn.Reply, "rescheduled counseling session for your course")

	turn = step(t, f.machine, turn.Next, "online")
	assert.Equal(t, AwaitingScheduleInput, turn.Next.State)

	turn = step(t, f.machine, turn.Next, "May 18 2025 at 2 pm")
	require.NoError(t, turn.Err)
	assert.Contains(t, turn.Reply, "rescheduled for 2025-05-18 at 14:00")

	moved, err := f.store.LatestSession(ctx, c.EmployeeID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, moved.ID)
	assert.Equal(t, domain.ModeOnline, moved.Mode)
	n, err := f.store.CountSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOnlineCounseling(t *testing.T) {
	counselor := &fakeCounselor{pitch: "Python is a great first language."}
	f := newFixture(t, nil, counselor)
	c := f.identified(t)
	c.State, c.Course, c.LastIntent = AwaitingMode, "Python Programming", intent.Schedule

	turn := step(t, f.machine, c, "online please")
	require.NoError(t, turn.Err)
	assert.Equal(t, "Python is a great first language.", turn.Reply)
	assert.Equal(t, Idle, turn.Next.State)
	assert.Equal(t, 1, counselor.calls)
}

func TestOnlineCounselingFallsBackToAutoschedule(t *testing.T) {
	counselor := &fakeCounselor{err: errors.New("quota exceeded")}
	f := newFixture(t, nil, counselor)
	c := f.identified(t)
	c.State, c.Course, c.LastIntent = AwaitingMode, "Python Programming", intent.Schedule

	turn := step(t, f.machine, c, "online")
	require.NoError(t, turn.Err)
	assert.Contains(t, turn.Reply, "booked an offline one")
	assert.Contains(t, turn.Reply, "2025-05-15 at 10:00")
	assert.Equal(t, domain.ModeOffline, turn.Next.Mode)

	cs, err := f.store.FindSessionBySlot(context.Background(), "2025-05-15", "10:00")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOffline, cs.Mode)
}

func TestAutoscheduleExhausted(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	ctx := context.Background()
	for _, day := range []string{"2025-05-15", "2025-05-16"} {
		for _, clock := range scheduler.DefaultSlots {
			require.NoError(t, f.store.InsertSession(ctx, &domain.CounselingSession{EmployeeID: 50, Date: day, Time: clock, Mode: domain.ModeOffline}))
		}
	}
	c.State, c.Course = AwaitingMode, "Java Development"

	turn := step(t, f.machine, c, "online")
	assert.ErrorIs(t, turn.Err, domain.ErrNoSlotAvailable)
	assert.Contains(t, turn.Reply, "+91-141-0000000")
}

func TestCourseDetailsUsesCacheOnce(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "tell me the details of java")
	require.NoError(t, turn.Err)
	assert.Equal(t, AwaitingMode, turn.Next.State)
	assert.Equal(t, "Java Development", turn.Next.Course)
	assert.Contains(t, turn.Reply, "INR 18000.00")

	again := c
	step(t, f.machine, again, "java course details please")
	assert.Equal(t, 1, f.store.finds)
}

func TestOpenerSkippedWithCourseSelected(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "Schedule counseling.")
	assert.Equal(t, "Thanks, Asha! Do you have a course in mind, or would you like help choosing one?", turn.Reply)
	assert.Equal(t, AwaitingChoice, turn.Next.State)

	c.Course = "Data Science"
	turn = step(t, f.machine, c, "schedule counseling")
	assert.Equal(t, "Okay Asha, do you have a course in mind, or would you like help choosing one?", turn.Reply)
}

func TestJustScheduleOpenerAsksForTime(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "just schedule")
	assert.Equal(t, AwaitingScheduleInput, turn.Next.State)
	assert.Equal(t, domain.ModeOffline, turn.Next.Mode)
}

func TestHelpChoosingListsCatalog(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "can you help me choose")
	require.NoError(t, turn.Err)
	assert.Equal(t, AwaitingCourseSuggestion, turn.Next.State)
	for _, crs := range domain.SeedCatalog() {
		assert.Contains(t, turn.Reply, crs.Name)
	}

	turn = step(t, f.machine, turn.Next, "data science sounds good")
	assert.Equal(t, AwaitingMode, turn.Next.State)
	assert.Equal(t, "Data Science", turn.Next.Course)
}

func TestAvailableCourses(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "what courses are there")
	assert.Contains(t, turn.Reply, "Want details on any of these?")
	assert.Contains(t, turn.Reply, ", and ")
}

func TestHRCommandsFromConversation(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "status report")
	assert.ErrorIs(t, turn.Err, domain.ErrPrivilegeDenied)
	assert.False(t, turn.Next.HRAuthenticated)

	turn = step(t, f.machine, c, "hr login opensesame")
	require.NoError(t, turn.Err)
	assert.True(t, turn.Next.HRAuthenticated)
	assert.Equal(t, Idle, turn.Next.State)

	turn = step(t, f.machine, turn.Next, "status report")
	require.NoError(t, turn.Err)
	assert.Contains(t, turn.Reply, "Total counseling sessions: 0")

	turn = step(t, f.machine, turn.Next, "logout")
	assert.False(t, turn.Next.HRAuthenticated)
	assert.Contains(t, turn.Reply, "HR logout successful")
}

func TestGenericDialogue(t *testing.T) {
	d := &fakeDialogue{reply: "Our office is open from nine to six."}
	f := newFixture(t, d, nil)
	c := f.identified(t)
	c.Course = "Java Development"

	turn := step(t, f.machine, c, "when is your office open")
	require.NoError(t, turn.Err)
	assert.Equal(t, "Our office is open from nine to six. "+followUp, turn.Reply)
	require.Len(t, d.prompts, 1)
	assert.Contains(t, d.prompts[0], "Asha")
	assert.Contains(t, d.prompts[0], "Java Development")
}

func TestGenericDialogueBooksStatedSlot(t *testing.T) {
	d := &fakeDialogue{reply: "Great, you're scheduled for 2025-05-22 at 11:00."}
	f := newFixture(t, d, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "sure, thursday the twenty second around eleven works")
	require.NoError(t, turn.Err)
	_, err := f.store.FindSessionBySlot(context.Background(), "2025-05-22", "11:00")
	assert.NoError(t, err)
}

func TestRepeatedMissesDegrade(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)

	turn := step(t, f.machine, c, "mmm")
	assert.Equal(t, "Sorry, I didn't catch that. Could you say it again?", turn.Reply)
	turn = step(t, f.machine, turn.Next, "")
	assert.Equal(t, 2, turn.Next.Misses)
	turn = step(t, f.machine, turn.Next, "hmm")
	assert.Contains(t, turn.Reply, "I'm having trouble hearing you")
	assert.Equal(t, 0, turn.Next.Misses)
}

func TestStepLeavesInputUntouched(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	before := c

	turn := step(t, f.machine, c, "I want to book counseling for python")
	assert.Equal(t, before, c)
	assert.NotEqual(t, c.State, turn.Next.State)
}

func TestInteractionsPersisted(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	ctx := context.Background()

	step(t, f.machine, c, "what courses do you offer")
	step(t, f.machine, Context{State: Unidentified}, "new user")

	got, err := f.store.RecentInteractions(ctx, domain.InteractionFilter{Code: c.Code}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "what courses do you offer", got[0].Query)
}

func TestIdentification(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	c := Context{State: Unidentified}

	turn := step(t, f.machine, c, "new user")
	assert.Equal(t, AwaitingName, turn.Next.State)

	turn = step(t, f.machine, turn.Next, "My name is Ravi.")
	require.NoError(t, turn.Err)
	assert.Equal(t, AwaitingPhone, turn.Next.State)
	assert.Equal(t, "Ravi", turn.Next.Name)
	assert.Len(t, turn.Next.Code, 6)
	assert.Contains(t, turn.Reply, spell(turn.Next.Code))

	turn = step(t, f.machine, turn.Next, "98765 43210")
	require.NoError(t, turn.Err)
	assert.Equal(t, Idle, turn.Next.State)
	assert.Equal(t, "9876543210", turn.Next.Phone)

	stored, err := f.store.FindEmployeeByCode(ctx, turn.Next.Code)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", stored.Phone)

	// The code brings the same caller back.
	back := step(t, f.machine, Context{State: Unidentified}, spell(stored.Code))
	require.NoError(t, back.Err)
	assert.Equal(t, Idle, back.Next.State)
	assert.Equal(t, stored.ID, back.Next.EmployeeID)
	assert.Equal(t, "Welcome back, Ravi! How can I assist you today?", back.Reply)
}

func TestIdentificationRetries(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := Context{State: Unidentified}

	for i := 0; i < MaxAttempts-1; i++ {
		turn := step(t, f.machine, c, "umm")
		assert.Equal(t, Unidentified, turn.Next.State)
		c = turn.Next
	}
	turn := step(t, f.machine, c, "umm")
	assert.Equal(t, AwaitingName, turn.Next.State)
	assert.Equal(t, 0, turn.Next.Attempts)

	turn = step(t, f.machine, Context{State: Unidentified}, "ZZZ999")
	assert.ErrorIs(t, turn.Err, domain.ErrNotFound)
	assert.Equal(t, AwaitingName, turn.Next.State)
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"My name is Priya":  "Priya",
		"i'm Arjun.":        "Arjun",
		"this is Meera Rao": "Meera Rao",
		"Kiran":             "Kiran",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanName(in), in)
	}
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}

func TestReset(t *testing.T) {
	f := newFixture(t, nil, nil)
	c := f.identified(t)
	c.HRAuthenticated = true
	assert.Equal(t, Context{State: Unidentified}, f.machine.Reset(c))
}
