package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseValidate(t *testing.T) {
	assert.NoError(t, Course{Name: "Go", Fee: 1}.Validate())
	assert.ErrorIs(t, Course{Fee: 1}.Validate(), ErrValidation)
	assert.ErrorIs(t, Course{Name: "Go"}.Validate(), ErrValidation)
	assert.ErrorIs(t, Course{Name: "Go", Fee: -5}.Validate(), ErrValidation)
}

func TestSeedCatalogIsValid(t *testing.T) {
	catalog := SeedCatalog()
	require.Len(t, catalog, 4)
	for _, c := range catalog {
		assert.NoError(t, c.Validate(), c.Name)
	}
	assert.Equal(t, "INR 22000.00", catalog[2].FeeText())
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		session CounselingSession
		wantErr bool
	}{
		{"ok", CounselingSession{Date: "2025-05-15", Time: "11:00", Mode: ModeOffline}, false},
		{"online", CounselingSession{Date: "2026-01-02", Time: "09:30", Mode: ModeOnline}, false},
		{"before first year", CounselingSession{Date: "2024-12-31", Time: "11:00", Mode: ModeOffline}, true},
		{"bad date", CounselingSession{Date: "15/05/2025", Time: "11:00", Mode: ModeOffline}, true},
		{"bad time", CounselingSession{Date: "2025-05-15", Time: "11am", Mode: ModeOffline}, true},
		{"bad mode", CounselingSession{Date: "2025-05-15", Time: "11:00", Mode: "phone"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestModeLocation(t *testing.T) {
	assert.Equal(t, "online", ModeOnline.Location())
	assert.Equal(t, "at our office", ModeOffline.Location())
}

func TestCourseFieldColumn(t *testing.T) {
	assert.Equal(t, "fees", FieldPrice.Column())
	assert.Equal(t, "description", FieldDescription.Column())
}

func TestSlotConflictError(t *testing.T) {
	requested := Slot{Date: "2025-05-15", Time: "10:00"}
	err := error(&SlotConflictError{Requested: requested, Suggestion: &Slot{Date: "2025-05-15", Time: "14:00"}})

	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Equal(t, "slot 2025-05-15 at 10:00 is taken, 2025-05-15 at 14:00 is open", err.Error())

	var conflict *SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, requested, conflict.Requested)

	assert.Equal(t, "slot 2025-05-15 at 10:00 is taken", (&SlotConflictError{Requested: requested}).Error())
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("disk full")
	err := Unavailable("insert session", cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert session: store unavailable: disk full", err.Error())
}
