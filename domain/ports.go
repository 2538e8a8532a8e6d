package domain

import "context"

// EmployeeStore persists callers.
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	FindEmployeeByName(ctx context.Context, name string) (*Employee, error)
	FindEmployeeByCode(ctx context.Context, code string) (*Employee, error)
	UpdateEmployeeContact(ctx context.Context, id uint, phone string, consent bool) error
}

// SessionStore persists counseling sessions. InsertSession and UpdateSession must
// reject a (date, time) pair that is already booked with ErrSlotTaken, atomically.
type SessionStore interface {
	InsertSession(ctx context.Context, s *CounselingSession) error
	UpdateSession(ctx context.Context, s *CounselingSession) error
	LatestSession(ctx context.Context, employeeID uint) (*CounselingSession, error)
	FindSessionBySlot(ctx context.Context, date, time string) (*CounselingSession, error)
	CountSessionsAt(ctx context.Context, date, time string) (int64, error)
	CountSessions(ctx context.Context) (int64, error)
}

// CourseStore reads and edits the catalog. FindCourse matches by case-insensitive
// substring of the course name. UpdateCourseField edits the single course the
// name matches, and returns ErrAmbiguousName without changes when it matches
// more than one.
type CourseStore interface {
	SeedCourses(ctx context.Context, courses []Course) error
	FindCourse(ctx context.Context, name string) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	UpdateCourseField(ctx context.Context, name string, field CourseField, value any) (int64, error)
}

// AuditStore is the append-only record of turns and privileged commands.
type AuditStore interface {
	InsertInteraction(ctx context.Context, i *Interaction) error
	RecentInteractions(ctx context.Context, f InteractionFilter, limit int) ([]Interaction, error)
	InsertHRCommand(ctx context.Context, c *HRCommand) error
	RecentHRCommands(ctx context.Context, limit int) ([]HRCommand, error)
}

// Store is the storage port the core depends on. Adapters are chosen once at startup.
type Store interface {
	EmployeeStore
	SessionStore
	CourseStore
	AuditStore
	Close() error
}

// Notifier delivers a message to an employee and reports whether it was delivered.
type Notifier interface {
	Send(ctx context.Context, n Notification) bool
}

// Dialogue is the generic generative-dialogue collaborator.
type Dialogue interface {
	SendTurn(ctx context.Context, prompt string) (string, error)
}

// Counselor runs an online counseling pitch for one course.
type Counselor interface {
	Counsel(ctx context.Context, employeeName string, course Course) (string, error)
}
