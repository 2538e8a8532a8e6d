// Package sqlstore is the relational storage adapter, backed by gorm over a
// pure-Go SQLite driver. The unique idx_slot index on counseling_sessions is
// what keeps two callers out of the same slot.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/room4-2/FrontDesk/domain"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store implements domain.Store on gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to the database at path, configures it and migrates the schema.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	// SQLite takes one writer at a time, and every :memory: connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	if path != MemoryPath {
		if err := configure(db); err != nil {
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	if err := db.AutoMigrate(
		&domain.Employee{},
		&domain.Course{},
		&domain.CounselingSession{},
		&domain.Interaction{},
		&domain.HRCommand{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

func configure(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("exec %s: %w", pragma, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *Store) FindEmployeeByName(ctx context.Context, name string) (*domain.Employee, error) {
	var e domain.Employee
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) FindEmployeeByCode(ctx context.Context, code string) (*domain.Employee, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	var e domain.Employee
	if err := s.db.WithContext(ctx).Where("unique_code = ?", code).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) UpdateEmployeeContact(ctx context.Context, id uint, phone string, consent bool) error {
	res := s.db.WithContext(ctx).Model(&domain.Employee{}).Where("id = ?", id).
		Updates(map[string]any{"phone_number": phone, "sms_consent": consent})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InsertSession checks the slot and inserts in one transaction. A racing writer
// that slips past the count still trips the unique index.
func (s *Store) InsertSession(ctx context.Context, cs *domain.CounselingSession) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.CounselingSession{}).
			Where("session_date = ? AND session_time = ?", cs.Date, cs.Time).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrSlotTaken
		}
		return tx.Create(cs).Error
	})
	if isUniqueViolation(err) {
		return domain.ErrSlotTaken
	}
	return err
}

func (s *Store) UpdateSession(ctx context.Context, cs *domain.CounselingSession) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.CounselingSession{}).
			Where("session_date = ? AND session_time = ? AND id <> ?", cs.Date, cs.Time, cs.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrSlotTaken
		}
		cs.CreatedAt = time.Now()
		res := tx.Model(&domain.CounselingSession{}).Where("id = ?", cs.ID).Updates(map[string]any{
			"session_date": cs.Date,
			"session_time": cs.Time,
			"mode":         cs.Mode,
			"course_id":    cs.CourseID,
			"created_at":   cs.CreatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if isUniqueViolation(err) {
		return domain.ErrSlotTaken
	}
	return err
}

func (s *Store) LatestSession(ctx context.Context, employeeID uint) (*domain.CounselingSession, error) {
	var cs domain.CounselingSession
	err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).
		Order("created_at DESC, id DESC").First(&cs).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cs, nil
}

func (s *Store) FindSessionBySlot(ctx context.Context, date, clock string) (*domain.CounselingSession, error) {
	var cs domain.CounselingSession
	err := s.db.WithContext(ctx).Where("session_date = ? AND session_time = ?", date, clock).First(&cs).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cs, nil
}

func (s *Store) CountSessionsAt(ctx context.Context, date, clock string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.CounselingSession{}).
		Where("session_date = ? AND session_time = ?", date, clock).Count(&n).Error
	return n, err
}

func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.CounselingSession{}).Count(&n).Error
	return n, err
}

// SeedCourses inserts the catalog only when the courses table is empty.
func (s *Store) SeedCourses(ctx context.Context, courses []domain.Course) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Course{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 || len(courses) == 0 {
			return nil
		}
		rows := make([]domain.Course, len(courses))
		for i, c := range courses {
			if err := c.Validate(); err != nil {
				return err
			}
			c.ID = 0
			rows[i] = c
		}
		return tx.Create(&rows).Error
	})
}

func nameLike(name string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}
	return "%" + needle + "%", true
}

func (s *Store) FindCourse(ctx context.Context, name string) (*domain.Course, error) {
	pattern, ok := nameLike(name)
	if !ok {
		return nil, domain.ErrNotFound
	}
	var c domain.Course
	err := s.db.WithContext(ctx).Where("LOWER(course_name) LIKE ?", pattern).Order("id").First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) ListCourses(ctx context.Context) ([]domain.Course, error) {
	var out []domain.Course
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (s *Store) UpdateCourseField(ctx context.Context, name string, field domain.CourseField, value any) (int64, error) {
	switch field {
	case domain.FieldPrice:
		if _, ok := value.(float64); !ok {
			return 0, fmt.Errorf("%w: price must be numeric", domain.ErrValidation)
		}
	case domain.FieldDescription, domain.FieldContent:
		value = fmt.Sprint(value)
	default:
		return 0, fmt.Errorf("%w: unknown field %q", domain.ErrValidation, field)
	}

	pattern, ok := nameLike(name)
	if !ok {
		return 0, nil
	}
	var rows int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&domain.Course{}).Where("LOWER(course_name) LIKE ?", pattern).Pluck("id", &ids).Error; err != nil {
			return err
		}
		switch {
		case len(ids) == 0:
			return nil
		case len(ids) > 1:
			return fmt.Errorf("%w: %q matches %d courses", domain.ErrAmbiguousName, name, len(ids))
		}
		res := tx.Model(&domain.Course{}).Where("id = ?", ids[0]).Update(field.Column(), value)
		rows = res.RowsAffected
		return res.Error
	})
	return rows, err
}

func (s *Store) InsertInteraction(ctx context.Context, in *domain.Interaction) error {
	return s.db.WithContext(ctx).Create(in).Error
}

func (s *Store) RecentInteractions(ctx context.Context, f domain.InteractionFilter, limit int) ([]domain.Interaction, error) {
	q := s.db.WithContext(ctx).Model(&domain.Interaction{}).
		Joins("JOIN employees ON employees.id = employee_interactions.employee_id")
	switch {
	case f.Code != "":
		q = q.Where("employees.unique_code = ?", f.Code)
	case f.Name != "":
		q = q.Where("LOWER(employees.name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
	default:
		return nil, nil
	}
	q = q.Order("employee_interactions.created_at DESC, employee_interactions.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []domain.Interaction
	err := q.Select("employee_interactions.*").Find(&out).Error
	return out, err
}

func (s *Store) InsertHRCommand(ctx context.Context, c *domain.HRCommand) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) RecentHRCommands(ctx context.Context, limit int) ([]domain.HRCommand, error) {
	q := s.db.WithContext(ctx).Order("executed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.HRCommand
	err := q.Find(&out).Error
	return out, err
}
