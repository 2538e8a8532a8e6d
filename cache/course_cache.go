package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/metrics"
)

// DefaultTTL is how long a course lookup stays fresh.
const DefaultTTL = 5 * time.Minute

// Backend stores cached courses. Implementations expire entries after ttl.
type Backend interface {
	Get(ctx context.Context, key string) (domain.Course, bool, error)
	Set(ctx context.Context, key string, c domain.Course, ttl time.Duration) error
	Purge(ctx context.Context) error
}

// CourseCache memoizes FindCourse. Misses and expired entries read through to
// the store; lookups that find nothing are not cached.
type CourseCache struct {
	store   domain.CourseStore
	backend Backend
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCourseCache wraps store. A nil backend selects an in-process one.
func NewCourseCache(store domain.CourseStore, backend Backend, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *CourseCache {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseCache{store: store, backend: backend, ttl: ttl, logger: logger.Named("course_cache"), metrics: m}
}

// Course returns the stored course whose name contains name.
func (c *CourseCache) Course(ctx context.Context, name string) (*domain.Course, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	cached, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Course cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		c.metrics.CacheLookup(true)
		return &cached, nil
	}
	c.metrics.CacheLookup(false)

	course, err := c.store.FindCourse(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.backend.Set(ctx, key, *course, c.ttl); err != nil {
		c.logger.Warn("Course cache write failed", zap.String("key", key), zap.Error(err))
	}
	return course, nil
}

// Purge drops every cached course.
func (c *CourseCache) Purge(ctx context.Context) error {
	return c.backend.Purge(ctx)
}
