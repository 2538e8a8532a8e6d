// Package dialogue is the per-conversation state machine. A Context value holds
// everything one conversation knows; Machine.Step reduces (Context, transcript)
// to the next Context and the reply, never mutating its argument.
package dialogue

import (
	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/intent"
)

// State is the stage of the booking workflow.
type State string

const (
	// Unidentified: no employee bound; the caller was asked for a unique code.
	Unidentified  State = "unidentified"
	AwaitingName  State = "awaiting_name"
	AwaitingPhone State = "awaiting_phone"

	Idle                     State = "idle"
	AwaitingChoice           State = "awaiting_choice"
	AwaitingCourseSuggestion State = "awaiting_course_suggestion"
	AwaitingMode             State = "awaiting_mode"
	AwaitingScheduleInput    State = "awaiting_schedule_input"
)

// Identifying reports whether the caller is still being identified.
func (s State) Identifying() bool {
	return s == "" || s == Unidentified || s == AwaitingName || s == AwaitingPhone
}

// Context is the state of one conversation. The zero value is a fresh,
// unidentified caller.
type Context struct {
	EmployeeID uint
	Name       string
	Phone      string
	Consent    bool
	Code       string

	// Course is the canonical name of the selected course, if any.
	Course     string
	Mode       domain.Mode
	State      State
	LastIntent intent.Intent

	// HR access is a side flag, independent of State.
	HRAuthenticated bool
	HRUser          string

	// Attempts counts retries of the current identification prompt.
	Attempts int
	// Misses counts consecutive turns that could not be understood.
	Misses int
}

// Bound reports whether an employee is attached to the conversation.
func (c Context) Bound() bool {
	return c.EmployeeID != 0
}

func (c Context) employee() domain.Employee {
	return domain.Employee{
		ID:         c.EmployeeID,
		Name:       c.Name,
		Phone:      c.Phone,
		SMSConsent: c.Consent,
		Code:       c.Code,
	}
}

func (c Context) mode() domain.Mode {
	if c.Mode.Valid() {
		return c.Mode
	}
	return domain.ModeOffline
}

func (c Context) bind(e *domain.Employee) Context {
	c.EmployeeID = e.ID
	c.Name = e.Name
	c.Phone = e.Phone
	c.Consent = e.SMSConsent
	c.Code = e.Code
	c.Attempts = 0
	return c
}

// Turn is the outcome of one step.
type Turn struct {
	Next   Context
	Reply  string
	Intent intent.Intent
	// Err is the error the turn recovered from, kept for logging. The reply
	// already tells the caller what happened.
	Err error
}
