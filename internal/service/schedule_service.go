package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

type scheduleLectureStore interface {
	ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.LectureView, error)
	ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.LectureView, error)
	ListOnDate(ctx context.Context, day time.Time) ([]models.LectureView, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ScheduleRange bounds a schedule listing to a date window.
type ScheduleRange struct {
	From time.Time
	To   time.Time
}

// ScheduleService serves the lecture timetable with a short-lived cache in
// front of the store. The cache is invalidated whenever a replacement
// approval moves a lecture between teachers.
type ScheduleService struct {
	lectures scheduleLectureStore
	cache    scheduleCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(lectures scheduleLectureStore, cache scheduleCache, ttl time.Duration, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScheduleService{lectures: lectures, cache: cache, ttl: ttl, logger: logger}
}

// ForActor returns the schedule window scoped to the caller: teachers and
// students see their own lectures, HODs and admins see the full timetable
// for the first day of the window.
func (s *ScheduleService) ForActor(ctx context.Context, rng ScheduleRange, actor *models.JWTClaims) ([]models.LectureView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if rng.From.IsZero() {
		rng.From = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if !rng.To.After(rng.From) {
		rng.To = rng.From.AddDate(0, 0, 7)
	}

	key := fmt.Sprintf("schedule:%s:%s:%s:%s", actor.Role, actor.UserID,
		rng.From.Format("2006-01-02"), rng.To.Format("2006-01-02"))

	var cached []models.LectureView
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.Error(err))
		}
	}

	var (
		views []models.LectureView
		err   error
	)
	switch actor.Role {
	case models.RoleTeacher:
		views, err = s.lectures.ListForTeacher(ctx, actor.UserID, rng.From, rng.To)
	case models.RoleStudent:
		views, err = s.lectures.ListForStudent(ctx, actor.UserID, rng.From, rng.To)
	case models.RoleAdmin, models.RoleHOD:
		views, err = s.lectures.ListOnDate(ctx, rng.From)
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, views, s.ttl); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

// Subjects returns the subject catalogue.
func (s *ScheduleService) Subjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.lectures.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// TimeSlots returns the period catalogue.
func (s *ScheduleService) TimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.lectures.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// Invalidate drops every cached schedule window. Called after a lecture
// changes hands.
func (s *ScheduleService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "schedule:*"); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.Error(err))
	}
}
