package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/mailer"
)

// LeaveRepository persists teacher leave requests and runs the approval
// transactions against lectures and replacement offers.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

const leaveColumns = `id, lecture_id, requester_id, reason, status, approver_id, created_at, updated_at`

// Create inserts a new leave request in PENDING state.
func (r *LeaveRepository) Create(ctx context.Context, req *models.LeaveRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.LeaveStatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO leave_requests (id, lecture_id, requester_id, reason, status, approver_id, created_at, updated_at)
	VALUES (:id, :lecture_id, :requester_id, :reason, :status, :approver_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// GetByID fetches a leave request by identifier.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1`, leaveColumns)
	var req models.LeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns leave requests matching the filter (latest first).
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM leave_requests`, leaveColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.LectureID != "" {
		args = append(args, filter.LectureID)
		conditions = append(conditions, fmt.Sprintf("lecture_id = $%d", len(args)))
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

	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	return requests, nil
}

// MarkHODReviewed stamps the HOD approver and moves PENDING to HOD_REVIEWED.
// Returns sql.ErrNoRows when the request is not pending.
func (r *LeaveRepository) MarkHODReviewed(ctx context.Context, requestID, approverID string) error {
	const query = `UPDATE leave_requests SET status = $2, approver_id = $3, updated_at = $4
	WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, requestID,
		models.LeaveStatusHODReviewed, approverID, time.Now().UTC(), models.LeaveStatusPending)
	if err != nil {
		return fmt.Errorf("mark leave reviewed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApproveFinalResult reports the outcome of the admin approval transaction.
type ApproveFinalResult struct {
	LectureID    string
	NewTeacherID string
}

// ApproveFinal runs the admin approval as one transaction: the request moves
// to APPROVED, the lecture's teacher becomes the accepter of the first
// replacement offer, and a LEAVE_APPROVED outbox row addressed to that
// teacher is written. Fails with ErrNoCandidateOffer when no offer exists.
func (r *LeaveRepository) ApproveFinal(ctx context.Context, requestID, approverID string) (result *ApproveFinalResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin leave approval: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.LeaveRequest
	selectReq := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1 FOR UPDATE`, leaveColumns)
	if err = tx.GetContext(ctx, &req, selectReq, requestID); err != nil {
		return nil, err
	}
	if req.Status != models.LeaveStatusHODReviewed {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request has not been reviewed by the HOD")
		return nil, err
	}

	now := time.Now().UTC()
	const updateReq = `UPDATE leave_requests SET status = $2, approver_id = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateReq, requestID, models.LeaveStatusApproved, approverID, now); err != nil {
		return nil, fmt.Errorf("approve leave request: %w", err)
	}

	var offer struct {
		AccepterID string `db:"accepter_id"`
	}
	const selectOffer = `SELECT accepter_id FROM replacement_offers
	WHERE lecture_id = $1 ORDER BY created_at ASC LIMIT 1`
	if err = tx.GetContext(ctx, &offer, selectOffer, req.LectureID); err != nil {
		if err == sql.ErrNoRows {
			err = appErrors.ErrNoCandidateOffer
		}
		return nil, err
	}

	const updateLecture = `UPDATE lectures SET teacher_id = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateLecture, req.LectureID, offer.AccepterID); err != nil {
		return nil, fmt.Errorf("reassign lecture teacher: %w", err)
	}

	var teacherEmail string
	if err = tx.GetContext(ctx, &teacherEmail, `SELECT email FROM users WHERE id = $1`, offer.AccepterID); err != nil {
		return nil, fmt.Errorf("load replacement teacher: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"leave_request_id": requestID, "lecture_id": req.LectureID})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindLeaveApproved),
		Recipient: teacherEmail,
		Payload:   payload,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit leave approval: %w", err)
	}
	return &ApproveFinalResult{LectureID: req.LectureID, NewTeacherID: offer.AccepterID}, nil
}

// Reject denies the leave request and force-declines every replacement offer
// on its lecture in the same transaction. The requester is notified through
// the outbox.
func (r *LeaveRepository) Reject(ctx context.Context, requestID, approverID, reason string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin leave rejection: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.LeaveRequest
	selectReq := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1 FOR UPDATE`, leaveColumns)
	if err = tx.GetContext(ctx, &req, selectReq, requestID); err != nil {
		return err
	}

	now := time.Now().UTC()
	const updateReq = `UPDATE leave_requests SET status = $2, approver_id = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateReq, requestID, models.LeaveStatusDenied, approverID, now); err != nil {
		return fmt.Errorf("deny leave request: %w", err)
	}

	if reason == "" {
		reason = "N/A"
	}
	message := fmt.Sprintf("Leave request was denied. Reason: %s", reason)
	const declineOffers = `UPDATE replacement_offers SET status = $2, message = $3, updated_at = $4 WHERE lecture_id = $1`
	if _, err = tx.ExecContext(ctx, declineOffers, req.LectureID, models.OfferStatusDeclined, message, now); err != nil {
		return fmt.Errorf("decline replacement offers: %w", err)
	}

	var requesterEmail string
	if err = tx.GetContext(ctx, &requesterEmail, `SELECT email FROM users WHERE id = $1`, req.RequesterID); err != nil {
		return fmt.Errorf("load requester: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"leave_request_id": requestID})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindLeaveDenied),
		Recipient: requesterEmail,
		Payload:   payload,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit leave rejection: %w", err)
	}
	return nil
}

// LeaveHistory returns denormalised leave rows for export.
func (r *LeaveRepository) LeaveHistory(ctx context.Context) ([]models.LeaveHistoryRow, error) {
	const query = `
SELECT
	lr.id,
	u.full_name AS requester_name,
	s.name AS subject_name,
	l.date AS lecture_date,
	lr.status,
	a.full_name AS approver_name,
	lr.created_at
FROM leave_requests lr
JOIN users u ON u.id = lr.requester_id
JOIN lectures l ON l.id = lr.lecture_id
JOIN subjects s ON s.id = l.subject_id
LEFT JOIN users a ON a.id = lr.approver_id
ORDER BY lr.created_at DESC`
	var rows []models.LeaveHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list leave history: %w", err)
	}
	return rows, nil
}
