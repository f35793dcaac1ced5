package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

type scheduleStoreStub struct {
	teacherCalls int
	studentCalls int
	dayCalls     int
	views        []models.LectureView
}

func (s *scheduleStoreStub) ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.LectureView, error) {
	s.teacherCalls++
	return s.views, nil
}

func (s *scheduleStoreStub) ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.LectureView, error) {
	s.studentCalls++
	return s.views, nil
}

func (s *scheduleStoreStub) ListOnDate(ctx context.Context, day time.Time) ([]models.LectureView, error) {
	s.dayCalls++
	return s.views, nil
}

func (s *scheduleStoreStub) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: "math", Name: "Mathematics"}}, nil
}

func (s *scheduleStoreStub) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	return []models.TimeSlot{{ID: "slot-1"}}, nil
}

type scheduleCacheStub struct {
	entries map[string][]byte
}

func newScheduleCacheStub() *scheduleCacheStub {
	return &scheduleCacheStub{entries: make(map[string][]byte)}
}

func (c *scheduleCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *scheduleCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *scheduleCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.entries = make(map[string][]byte)
	return nil
}

func TestScheduleServiceCachesPerActor(t *testing.T) {
	store := &scheduleStoreStub{views: []models.LectureView{{Lecture: models.Lecture{ID: "lecture-1"}, SubjectName: "Mathematics"}}}
	cache := newScheduleCacheStub()
	svc := NewScheduleService(store, cache, time.Minute, nil)

	first, err := svc.ForActor(context.Background(), ScheduleRange{}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, store.teacherCalls)

	second, err := svc.ForActor(context.Background(), ScheduleRange{}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, store.teacherCalls)

	// a different actor misses the cache
	_, err = svc.ForActor(context.Background(), ScheduleRange{}, studentClaims("student-1"))
	require.NoError(t, err)
	require.Equal(t, 1, store.studentCalls)
}

func TestScheduleServiceInvalidateDropsCache(t *testing.T) {
	store := &scheduleStoreStub{views: []models.LectureView{{Lecture: models.Lecture{ID: "lecture-1"}}}}
	cache := newScheduleCacheStub()
	svc := NewScheduleService(store, cache, time.Minute, nil)

	_, err := svc.ForActor(context.Background(), ScheduleRange{}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	svc.Invalidate(context.Background())
	require.Empty(t, cache.entries)

	_, err = svc.ForActor(context.Background(), ScheduleRange{}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.Equal(t, 2, store.teacherCalls)
}

func TestScheduleServiceAdminSeesDay(t *testing.T) {
	store := &scheduleStoreStub{views: []models.LectureView{{Lecture: models.Lecture{ID: "lecture-1"}}}}
	svc := NewScheduleService(store, nil, time.Minute, nil)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	_, err := svc.ForActor(context.Background(), ScheduleRange{From: day}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, 1, store.dayCalls)
}
