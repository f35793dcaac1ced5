package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acadflow/acadflow-api/internal/models"
)

// LectureRepository reads the timetable and applies teacher reassignments.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs the repository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

const lectureViewColumns = `l.id, l.subject_id, l.time_slot_id, l.teacher_id, l.student_id, l.date, l.week_day, l.room,
	s.name AS subject_name, ts.label AS slot_label, u.full_name AS teacher_name`

const lectureViewJoins = `FROM lectures l
	JOIN subjects s ON s.id = l.subject_id
	JOIN time_slots ts ON ts.id = l.time_slot_id
	JOIN users u ON u.id = l.teacher_id`

// GetByID fetches a lecture by identifier.
func (r *LectureRepository) GetByID(ctx context.Context, id string) (*models.Lecture, error) {
	const query = `SELECT id, subject_id, time_slot_id, teacher_id, student_id, date, week_day, room FROM lectures WHERE id = $1`
	var lecture models.Lecture
	if err := r.db.GetContext(ctx, &lecture, query, id); err != nil {
		return nil, err
	}
	return &lecture, nil
}

// GetView fetches a lecture with its display fields.
func (r *LectureRepository) GetView(ctx context.Context, id string) (*models.LectureView, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE l.id = $1`, lectureViewColumns, lectureViewJoins)
	var view models.LectureView
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListForTeacher returns the teacher's lectures in the date range, ordered
// by date and slot start.
func (r *LectureRepository) ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.LectureView, error) {
	query := fmt.Sprintf(`SELECT %s %s
	WHERE l.teacher_id = $1 AND l.date >= $2 AND l.date < $3
	ORDER BY l.date ASC, ts.start_time ASC`, lectureViewColumns, lectureViewJoins)
	var views []models.LectureView
	if err := r.db.SelectContext(ctx, &views, query, teacherID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list teacher lectures: %w", err)
	}
	return views, nil
}

// ListForStudent returns the student's lectures in the date range.
func (r *LectureRepository) ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]models.LectureView, error) {
	query := fmt.Sprintf(`SELECT %s %s
	WHERE l.student_id = $1 AND l.date >= $2 AND l.date < $3
	ORDER BY l.date ASC, ts.start_time ASC`, lectureViewColumns, lectureViewJoins)
	var views []models.LectureView
	if err := r.db.SelectContext(ctx, &views, query, studentID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list student lectures: %w", err)
	}
	return views, nil
}

// ListOnDate returns every lecture scheduled on the given day.
func (r *LectureRepository) ListOnDate(ctx context.Context, day time.Time) ([]models.LectureView, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE l.date = $1 ORDER BY ts.start_time ASC`, lectureViewColumns, lectureViewJoins)
	var views []models.LectureView
	if err := r.db.SelectContext(ctx, &views, query, day.UTC().Truncate(24*time.Hour)); err != nil {
		return nil, fmt.Errorf("list lectures on date: %w", err)
	}
	return views, nil
}

// ListSubjects returns the subject catalogue ordered by code.
func (r *LectureRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, code FROM subjects ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListTimeSlots returns the period catalogue ordered by start time.
func (r *LectureRepository) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, start_time, end_time, label FROM time_slots ORDER BY start_time ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// UpdateTeacher reassigns a lecture to another teacher. Returns
// sql.ErrNoRows when the lecture does not exist.
func (r *LectureRepository) UpdateTeacher(ctx context.Context, lectureID, teacherID string) error {
	const query = `UPDATE lectures SET teacher_id = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, lectureID, teacherID)
	if err != nil {
		return fmt.Errorf("reassign lecture: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reassign lecture result: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
