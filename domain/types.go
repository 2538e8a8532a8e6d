package domain

import (
	"fmt"
	"strconv"
	"time"
)

// MinSessionYear is the earliest year a counseling session may be booked in.
const MinSessionYear = 2025

// Mode is how a counseling session is held.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// Location returns the phrase used when reading a session back to a caller.
func (m Mode) Location() string {
	if m == ModeOnline {
		return "online"
	}
	return "at our office"
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}

// Employee is a caller known to the front desk.
type Employee struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:255;not null;index"`
	Phone      string `gorm:"column:phone_number;size:20"`
	SMSConsent bool   `gorm:"column:sms_consent;default:true"`
	Code       string `gorm:"column:unique_code;size:6;uniqueIndex"`
	CreatedAt  time.Time
}

func (Employee) TableName() string { return "employees" }

// Course is a catalog entry the front desk can counsel on.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:course_name;size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Duration    string    `gorm:"size:50" json:"duration"`
	Fee         float64   `gorm:"column:fees;not null" json:"fee"`
	Content     string    `gorm:"type:text" json:"content"`
	CreatedAt   time.Time `json:"-"`
}

func (Course) TableName() string { return "courses" }

// Validate checks the invariants a stored course must satisfy.
func (c Course) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: course name is empty", ErrValidation)
	}
	if c.Fee <= 0 {
		return fmt.Errorf("%w: fee for %s must be positive", ErrValidation, c.Name)
	}
	return nil
}

// FeeText formats the fee the way it is read to callers.
func (c Course) FeeText() string {
	return "INR " + strconv.FormatFloat(c.Fee, 'f', 2, 64)
}

// CourseField names a course attribute HR may update.
type CourseField string

const (
	FieldPrice       CourseField = "price"
	FieldDescription CourseField = "description"
	FieldContent     CourseField = "content"
)

// Column returns the storage column backing the field.
func (f CourseField) Column() string {
	if f == FieldPrice {
		return "fees"
	}
	return string(f)
}

// CounselingSession is a booked slot. No two sessions share a (Date, Time) pair.
type CounselingSession struct {
	ID         uint      `gorm:"primaryKey"`
	EmployeeID uint      `gorm:"not null;index:idx_employee_id_created_at,priority:1"`
	CourseID   *uint     `gorm:"index"`
	Date       string    `gorm:"column:session_date;size:10;not null;uniqueIndex:idx_slot,priority:1"`
	Time       string    `gorm:"column:session_time;size:5;not null;uniqueIndex:idx_slot,priority:2"`
	Mode       Mode      `gorm:"size:10;not null;default:offline"`
	CreatedAt  time.Time `gorm:"index:idx_employee_id_created_at,priority:2"`
}

func (CounselingSession) TableName() string { return "counseling_sessions" }

// Validate checks the date, time and mode before the session is persisted.
func (s CounselingSession) Validate() error {
	d, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return fmt.Errorf("%w: bad session date %q", ErrValidation, s.Date)
	}
	if d.Year() < MinSessionYear {
		return fmt.Errorf("%w: session year %d is before %d", ErrValidation, d.Year(), MinSessionYear)
	}
	if _, err := time.Parse("15:04", s.Time); err != nil {
		return fmt.Errorf("%w: bad session time %q", ErrValidation, s.Time)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, s.Mode)
	}
	return nil
}

// Interaction is one audited conversation turn.
type Interaction struct {
	ID         uint   `gorm:"primaryKey"`
	EmployeeID uint   `gorm:"not null;index"`
	Query      string `gorm:"column:employee_query;type:text;not null"`
	Response   string `gorm:"column:ai_response;type:text;not null"`
	CreatedAt  time.Time
}

func (Interaction) TableName() string { return "employee_interactions" }

// HRCommand is one audited privileged action.
type HRCommand struct {
	ID         uint      `gorm:"primaryKey"`
	Text       string    `gorm:"column:command_text;type:text;not null"`
	ExecutedBy string    `gorm:"size:255;not null"`
	ExecutedAt time.Time `gorm:"autoCreateTime"`
}

func (HRCommand) TableName() string { return "hr_commands" }

// InteractionFilter selects whose interactions to read back. Code wins over Name.
type InteractionFilter struct {
	Code string
	Name string
}

// Notification is an outbound message to an employee.
type Notification struct {
	EmployeeName string
	Phone        string
	Consent      bool
	Body         string
}
