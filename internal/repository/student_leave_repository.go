package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/mailer"
)

// StudentLeaveRepository persists student daily leave requests and their
// supporting documents.
type StudentLeaveRepository struct {
	db *sqlx.DB
}

// NewStudentLeaveRepository constructs the repository.
func NewStudentLeaveRepository(db *sqlx.DB) *StudentLeaveRepository {
	return &StudentLeaveRepository{db: db}
}

const studentLeaveColumns = `id, student_id, reason, leave_date, status, application_id, created_at, updated_at`

// pgUniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

// Create inserts a daily leave request. The store enforces one request per
// student per calendar day; a second insert for the same day returns
// ErrDuplicateDailyLeave regardless of which writer got there first.
func (r *StudentLeaveRepository) Create(ctx context.Context, req *models.StudentLeaveRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.StudentLeaveStatusPending
	}
	req.LeaveDate = req.LeaveDate.UTC().Truncate(24 * time.Hour)
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO student_leave_requests (id, student_id, reason, leave_date, status, application_id, created_at, updated_at)
	VALUES (:id, :student_id, :reason, :leave_date, :status, :application_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return appErrors.ErrDuplicateDailyLeave
		}
		return fmt.Errorf("create student leave: %w", err)
	}
	return nil
}

// GetByID fetches a student leave request by identifier.
func (r *StudentLeaveRepository) GetByID(ctx context.Context, id string) (*models.StudentLeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_leave_requests WHERE id = $1`, studentLeaveColumns)
	var req models.StudentLeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// HasLeaveOn reports whether the student already has a request for the day.
func (r *StudentLeaveRepository) HasLeaveOn(ctx context.Context, studentID string, day time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM student_leave_requests WHERE student_id = $1 AND leave_date = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, day.UTC().Truncate(24*time.Hour)); err != nil {
		return false, fmt.Errorf("check daily leave: %w", err)
	}
	return exists, nil
}

// List returns student leave requests matching the filter (latest first).
func (r *StudentLeaveRepository) List(ctx context.Context, filter models.StudentLeaveFilter) ([]models.StudentLeaveRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM student_leave_requests`, studentLeaveColumns))

	conditions := make([]string, 0, 2)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.StudentLeaveRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list student leaves: %w", err)
	}
	return requests, nil
}

// Approve moves a PENDING request to APPROVED and notifies the student.
// Returns sql.ErrNoRows when the request is absent or already decided.
func (r *StudentLeaveRepository) Approve(ctx context.Context, requestID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student leave approval: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var studentID string
	const approveQuery = `UPDATE student_leave_requests SET status = $2, updated_at = $3
	WHERE id = $1 AND status = $4 RETURNING student_id`
	if err = tx.GetContext(ctx, &studentID, approveQuery, requestID,
		models.StudentLeaveStatusApproved, time.Now().UTC(), models.StudentLeaveStatusPending); err != nil {
		return err
	}

	var studentEmail string
	if err = tx.GetContext(ctx, &studentEmail, `SELECT email FROM users WHERE id = $1`, studentID); err != nil {
		return fmt.Errorf("load student: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"request_id": requestID})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindLeaveApproved),
		Recipient: studentEmail,
		Payload:   payload,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student leave approval: %w", err)
	}
	return nil
}

// Reject denies a PENDING request. A first rejection leaves the row in
// DENIED so the student can resubmit with a document; rejecting a request
// that already carries a document moves it to the terminal DENIED_FINAL
// state. The row is retained either way.
func (r *StudentLeaveRepository) Reject(ctx context.Context, requestID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student leave rejection: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.StudentLeaveRequest
	selectQuery := fmt.Sprintf(`SELECT %s FROM student_leave_requests WHERE id = $1 FOR UPDATE`, studentLeaveColumns)
	if err = tx.GetContext(ctx, &req, selectQuery, requestID); err != nil {
		return err
	}
	if req.Status != models.StudentLeaveStatusPending {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request has already been decided")
		return err
	}

	next := models.StudentLeaveStatusDenied
	if req.ApplicationID != nil {
		next = models.StudentLeaveStatusDeniedFinal
	}
	const rejectQuery = `UPDATE student_leave_requests SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, rejectQuery, requestID, next, time.Now().UTC()); err != nil {
		return fmt.Errorf("reject student leave: %w", err)
	}

	var studentEmail string
	if err = tx.GetContext(ctx, &studentEmail, `SELECT email FROM users WHERE id = $1`, req.StudentID); err != nil {
		return fmt.Errorf("load student: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"request_id": requestID, "final": fmt.Sprintf("%t", next == models.StudentLeaveStatusDeniedFinal)})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindLeaveDenied),
		Recipient: studentEmail,
		Payload:   payload,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student leave rejection: %w", err)
	}
	return nil
}

// Resubmit attaches the uploaded document to a DENIED request and returns it
// to PENDING in one transaction. Only a DENIED request without a prior
// document may re-enter review; DENIED_FINAL returns ErrLeaveFinalized.
func (r *StudentLeaveRepository) Resubmit(ctx context.Context, requestID, reason, objectKey string) (appID string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin leave resubmission: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.StudentLeaveRequest
	selectQuery := fmt.Sprintf(`SELECT %s FROM student_leave_requests WHERE id = $1 FOR UPDATE`, studentLeaveColumns)
	if err = tx.GetContext(ctx, &req, selectQuery, requestID); err != nil {
		return "", err
	}
	if req.Status == models.StudentLeaveStatusDeniedFinal {
		err = appErrors.ErrLeaveFinalized
		return "", err
	}
	if !req.Resubmittable() {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request cannot be resubmitted")
		return "", err
	}

	now := time.Now().UTC()
	appID = uuid.NewString()
	const insertApplication = `INSERT INTO application_leaves (id, applicant_id, student_leave_id, object_key, created_at)
	VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertApplication, appID, req.StudentID, requestID, objectKey, now); err != nil {
		return "", fmt.Errorf("attach leave document: %w", err)
	}

	const updateLeave = `UPDATE student_leave_requests SET reason = $2, status = $3, application_id = $4, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateLeave, requestID, reason, models.StudentLeaveStatusPending, appID, now); err != nil {
		return "", fmt.Errorf("resubmit student leave: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit leave resubmission: %w", err)
	}
	return appID, nil
}

// GetApplication fetches a supporting document record by identifier.
func (r *StudentLeaveRepository) GetApplication(ctx context.Context, id string) (*models.ApplicationLeave, error) {
	const query = `SELECT id, applicant_id, student_leave_id, object_key, created_at FROM application_leaves WHERE id = $1`
	var app models.ApplicationLeave
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave application: %w", err)
	}
	return &app, nil
}
