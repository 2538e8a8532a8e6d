package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/intent"
	"github.com/room4-2/FrontDesk/store/memory"
)

// countingStore counts FindCourse calls that reach storage.
type countingStore struct {
	domain.CourseStore
	finds int
}

func (s *countingStore) FindCourse(ctx context.Context, name string) (*domain.Course, error) {
	s.finds++
	return s.CourseStore.FindCourse(ctx, name)
}

func seededStore(t *testing.T) *countingStore {
	t.Helper()
	m := memory.NewStore()
	require.NoError(t, m.SeedCourses(context.Background(), domain.SeedCatalog()))
	return &countingStore{CourseStore: m}
}

func TestLookupOpener(t *testing.T) {
	o, ok := LookupOpener("  Schedule Counseling ")
	require.True(t, ok)
	assert.Equal(t, intent.Schedule, o.Intent)
	assert.Equal(t, "Thanks, Asha! Do you have a course in mind, or would you like help choosing one?", o.Render("Asha"))

	o, ok = LookupOpener("just schedule.")
	require.True(t, ok)
	assert.True(t, o.BookNow)

	_, ok = LookupOpener("schedule counseling for python")
	assert.False(t, ok)
}

func TestCourseCacheReadsThroughOnce(t *testing.T) {
	store := seededStore(t)
	c := NewCourseCache(store, nil, time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		course, err := c.Course(ctx, "Python")
		require.NoError(t, err)
		assert.Equal(t, "Python Programming", course.Name)
	}
	assert.Equal(t, 1, store.finds)

	_, err := c.Course(ctx, "cobol")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.Course(ctx, "cobol")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 3, store.finds)
}

func TestMemoryBackendExpires(t *testing.T) {
	store := seededStore(t)
	backend := NewMemoryBackend()
	now := time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	c := NewCourseCache(store, backend, 5*time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := c.Course(ctx, "java")
	require.NoError(t, err)

	now = now.Add(4 * time.Minute)
	_, err = c.Course(ctx, "java")
	require.NoError(t, err)
	assert.Equal(t, 1, store.finds)

	now = now.Add(time.Minute)
	_, err = c.Course(ctx, "java")
	require.NoError(t, err)
	assert.Equal(t, 2, store.finds)
}

func TestPurgeForcesReload(t *testing.T) {
	store := seededStore(t)
	c := NewCourseCache(store, nil, time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := c.Course(ctx, "python")
	require.NoError(t, err)
	_, err = store.UpdateCourseField(ctx, "python", domain.FieldPrice, 17000.0)
	require.NoError(t, err)
	require.NoError(t, c.Purge(ctx))

	course, err := c.Course(ctx, "python")
	require.NoError(t, err)
	assert.Equal(t, 17000.0, course.Fee)
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := seededStore(t)
	c := NewCourseCache(store, NewRedisBackend(client), 5*time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	course, err := c.Course(ctx, "data science")
	require.NoError(t, err)
	assert.Equal(t, "Data Science", course.Name)
	assert.True(t, mr.Exists("course:data science"))

	cached, err := c.Course(ctx, "data science")
	require.NoError(t, err)
	assert.Equal(t, course.Fee, cached.Fee)
	assert.Equal(t, course.Description, cached.Description)
	assert.Equal(t, 1, store.finds)

	mr.FastForward(6 * time.Minute)
	_, err = c.Course(ctx, "data science")
	require.NoError(t, err)
	assert.Equal(t, 2, store.finds)

	require.NoError(t, c.Purge(ctx))
	assert.False(t, mr.Exists("course:data science"))
}

func TestRedisOutageFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	store := seededStore(t)
	c := NewCourseCache(store, NewRedisBackend(client), time.Minute, zap.NewNop(), nil)

	course, err := c.Course(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "Web Development", course.Name)
}
