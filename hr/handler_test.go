package hr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/intent"
	"github.com/room4-2/FrontDesk/store/memory"
)

type countingPurger struct{ calls int }

func (p *countingPurger) Purge(context.Context) error {
	p.calls++
	return nil
}

type failingCounts struct {
	*memory.Store
}

func (failingCounts) CountSessions(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func newTestHandler(t *testing.T) (*Handler, *memory.Store, *countingPurger) {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.SeedCourses(context.Background(), domain.SeedCatalog()))
	purger := &countingPurger{}
	h := NewHandler(Config{Secret: "regex123", PriceFloor: 12000, InteractionLimit: 5}, store, purger, zap.NewNop(), nil)
	return h, store, purger
}

func run(h *Handler, s Session, transcript string) Result {
	return h.Handle(context.Background(), s, intent.Classify(transcript), transcript)
}

var loggedIn = Session{Authenticated: true, User: "Asha", EmployeeName: "Asha"}

func TestLogin(t *testing.T) {
	h, store, _ := newTestHandler(t)
	guest := Session{EmployeeName: "Asha"}

	res := run(h, guest, "hr login wrong phrase")
	assert.False(t, res.Authenticated)
	assert.ErrorIs(t, res.Err, domain.ErrPrivilegeDenied)
	assert.Equal(t, "Please say the correct HR password.", res.Reply)

	res = run(h, guest, "HR login Regex123")
	require.NoError(t, res.Err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "Asha", res.User)

	cmds, err := store.RecentHRCommands(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "HR login succeeded", cmds[0].Text)
	assert.Equal(t, "HR login failed", cmds[1].Text)
}

func TestPrivilegedCommandsNeedLogin(t *testing.T) {
	h, _, _ := newTestHandler(t)
	for _, text := range []string{"status report", "view interactions", "update course python price to 20000", "logout"} {
		t.Run(text, func(t *testing.T) {
			res := run(h, Session{EmployeeName: "Asha"}, text)
			assert.ErrorIs(t, res.Err, domain.ErrPrivilegeDenied)
			assert.False(t, res.Authenticated)
		})
	}
}

func TestLogoutClearsFlag(t *testing.T) {
	h, _, _ := newTestHandler(t)

	res := run(h, loggedIn, "logout")
	require.NoError(t, res.Err)
	assert.False(t, res.Authenticated)
	assert.Empty(t, res.User)

	res = run(h, Session{Authenticated: res.Authenticated, EmployeeName: "Asha"}, "status report")
	assert.ErrorIs(t, res.Err, domain.ErrPrivilegeDenied)
}

func TestUpdateCoursePrice(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr error
		want    float64
	}{
		{"above floor", "update course python price to 16000", nil, 16000},
		{"with separators", "update course python price to 16,500 INR", nil, 16500},
		{"at floor", "update course python price to 12000", domain.ErrValidation, 15000},
		{"below floor", "update course python price to 9000", domain.ErrValidation, 15000},
		{"not a number", "update course python price to cheap", domain.ErrValidation, 15000},
		{"nan", "update course python price to nan", domain.ErrValidation, 15000},
		{"inf", "update course python price to inf", domain.ErrValidation, 15000},
		{"infinity", "update course python price to Infinity", domain.ErrValidation, 15000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, purger := newTestHandler(t)
			res := run(h, loggedIn, tt.command)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
				assert.Zero(t, purger.calls)
			} else {
				require.NoError(t, res.Err)
				assert.Equal(t, "Updated price for python successfully. What else can I help you with?", res.Reply)
				assert.Equal(t, 1, purger.calls)
			}
			c, err := store.FindCourse(context.Background(), "python")
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Fee)
		})
	}
}

func TestUpdateCourseAmbiguousName(t *testing.T) {
	h, store, purger := newTestHandler(t)
	res := run(h, loggedIn, "update course a price to 20000")

	assert.ErrorIs(t, res.Err, domain.ErrValidation)
	assert.ErrorIs(t, res.Err, domain.ErrAmbiguousName)
	assert.Equal(t, "More than one course matches a. Please say the full course name. What else can I help you with?", res.Reply)
	assert.Zero(t, purger.calls)

	courses, err := store.ListCourses(context.Background())
	require.NoError(t, err)
	for i, c := range courses {
		assert.Equal(t, domain.SeedCatalog()[i].Fee, c.Fee, c.Name)
	}
}

func TestParsePriceRejectsNonFinite(t *testing.T) {
	for _, raw := range []string{"nan", "NaN", "inf", "-inf", "+Inf", "infinity"} {
		_, err := ParsePrice(raw)
		assert.ErrorIs(t, err, domain.ErrValidation, raw)
	}
	v, err := ParsePrice("16,000 INR")
	require.NoError(t, err)
	assert.Equal(t, 16000.0, v)
}

func TestUpdateCourseFloorMessage(t *testing.T) {
	h, _, _ := newTestHandler(t)
	res := run(h, loggedIn, "update course java price to 12000")
	assert.Equal(t, "Course price must be above 12,000 INR. What else can I help you with?", res.Reply)
}

func TestUpdateCourseTextFields(t *testing.T) {
	h, store, _ := newTestHandler(t)

	res := run(h, loggedIn, "update course data science description to Statistics, ML and Spark")
	require.NoError(t, res.Err)

	c, err := store.FindCourse(context.Background(), "data science")
	require.NoError(t, err)
	assert.Equal(t, "Statistics, ML and Spark", c.Description)
}

func TestUpdateCourseRejections(t *testing.T) {
	h, _, _ := newTestHandler(t)

	res := run(h, loggedIn, "update course cobol price to 20000")
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
	assert.Contains(t, res.Reply, "Course not found.")

	res = run(h, loggedIn, "update course python duration to 6 weeks")
	assert.ErrorIs(t, res.Err, domain.ErrValidation)
	assert.Contains(t, res.Reply, "Invalid field")

	res = run(h, loggedIn, "update course python")
	assert.ErrorIs(t, res.Err, domain.ErrValidation)
}

func TestRejectedCommandsAreAudited(t *testing.T) {
	h, store, _ := newTestHandler(t)
	run(h, loggedIn, "update course python price to 100")

	cmds, err := store.RecentHRCommands(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0].Text, "at or below floor")
	assert.Equal(t, "Asha", cmds[0].ExecutedBy)
}

func TestViewInteractions(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	ravi := &domain.Employee{Name: "Ravi Kumar", Code: "RAV123"}
	require.NoError(t, store.CreateEmployee(ctx, ravi))
	require.NoError(t, store.InsertInteraction(ctx, &domain.Interaction{EmployeeID: ravi.ID, Query: "list courses", Response: "We offer four."}))

	res := run(h, loggedIn, "view interactions for ravi")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Reply, "Here are recent interactions for name ravi:")
	assert.Contains(t, res.Reply, "Query: list courses, Response: We offer four., Time: ")

	res = run(h, loggedIn, "view interactions code rav123")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Reply, "for code RAV123")

	res = run(h, loggedIn, "view interactions")
	require.NoError(t, res.Err)
	assert.Equal(t, "No interactions found for name Asha.\nWhat else can I help you with?", res.Reply)
}

func TestStatusReport(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, store.InsertSession(ctx, &domain.CounselingSession{EmployeeID: 1, Date: "2025-05-15", Time: "10:00", Mode: domain.ModeOffline}))

	res := run(h, loggedIn, "status report")
	require.NoError(t, res.Err)
	assert.Equal(t, "Total counseling sessions: 1\nWhat else can I help you with?", res.Reply)

	cmds, err := store.RecentHRCommands(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Generated status report", cmds[0].Text)
}

func TestStatusReportStoreFailure(t *testing.T) {
	store := memory.NewStore()
	h := NewHandler(Config{Secret: "regex123"}, failingCounts{store}, nil, zap.NewNop(), nil)

	res := run(h, loggedIn, "status report")
	assert.ErrorIs(t, res.Err, domain.ErrStoreUnavailable)
	assert.True(t, res.Authenticated)
	assert.Contains(t, res.Reply, "couldn't reach the records")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12,000", formatAmount(12000))
	assert.Equal(t, "1,250,000", formatAmount(1250000))
	assert.Equal(t, "950", formatAmount(950))
}
