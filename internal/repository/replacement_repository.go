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

// ReplacementRepository persists replacement offers and runs the swap and
// acceptance transactions.
type ReplacementRepository struct {
	db *sqlx.DB
}

// NewReplacementRepository constructs the repository.
func NewReplacementRepository(db *sqlx.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

const offerColumns = `id, leave_request_id, lecture_id, offerer_id, accepter_id, replace_lecture_id, status, approver_id, message, created_at, updated_at`

// Create inserts a new offer in PENDING state.
func (r *ReplacementRepository) Create(ctx context.Context, offer *models.ReplacementOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if offer.Status == "" {
		offer.Status = models.OfferStatusPending
	}
	now := time.Now().UTC()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	offer.UpdatedAt = now
	const query = `INSERT INTO replacement_offers (id, leave_request_id, lecture_id, offerer_id, accepter_id, replace_lecture_id, status, approver_id, message, created_at, updated_at)
	VALUES (:id, :leave_request_id, :lecture_id, :offerer_id, :accepter_id, :replace_lecture_id, :status, :approver_id, :message, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offer); err != nil {
		return fmt.Errorf("create replacement offer: %w", err)
	}
	return nil
}

// GetByID fetches an offer by identifier.
func (r *ReplacementRepository) GetByID(ctx context.Context, id string) (*models.ReplacementOffer, error) {
	query := fmt.Sprintf(`SELECT %s FROM replacement_offers WHERE id = $1`, offerColumns)
	var offer models.ReplacementOffer
	if err := r.db.GetContext(ctx, &offer, query, id); err != nil {
		return nil, err
	}
	return &offer, nil
}

// List returns offers matching the filter (latest first).
func (r *ReplacementRepository) List(ctx context.Context, filter models.OfferFilter) ([]models.ReplacementOffer, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM replacement_offers`, offerColumns))

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.LectureID != "" {
		args = append(args, filter.LectureID)
		conditions = append(conditions, fmt.Sprintf("lecture_id = $%d", len(args)))
	}
	if filter.OffererID != "" {
		args = append(args, filter.OffererID)
		conditions = append(conditions, fmt.Sprintf("offerer_id = $%d", len(args)))
	}
	if filter.AccepterID != "" {
		args = append(args, filter.AccepterID)
		conditions = append(conditions, fmt.Sprintf("accepter_id = $%d", len(args)))
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

	var offers []models.ReplacementOffer
	if err := r.db.SelectContext(ctx, &offers, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list replacement offers: %w", err)
	}
	return offers, nil
}

// Approve finalises an accepted offer in one transaction: the covered
// lecture's teacher becomes the accepter and the offerer's own lecture is
// handed back to the offerer. An offer without a swap-back lecture cannot be
// approved. The offerer is notified through the outbox.
func (r *ReplacementRepository) Approve(ctx context.Context, offerID, approverID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replacement approval: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var offer models.ReplacementOffer
	selectOffer := fmt.Sprintf(`SELECT %s FROM replacement_offers WHERE id = $1 FOR UPDATE`, offerColumns)
	if err = tx.GetContext(ctx, &offer, selectOffer, offerID); err != nil {
		return err
	}
	if offer.Status != models.OfferStatusAccepted {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "offer has not been accepted by the peer")
		return err
	}
	if offer.ReplaceLectureID == nil {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "offer has no swap-back lecture")
		return err
	}

	now := time.Now().UTC()
	const stampApprover = `UPDATE replacement_offers SET approver_id = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, stampApprover, offerID, approverID, now); err != nil {
		return fmt.Errorf("stamp offer approver: %w", err)
	}

	const updateLecture = `UPDATE lectures SET teacher_id = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateLecture, offer.LectureID, offer.AccepterID); err != nil {
		return fmt.Errorf("reassign covered lecture: %w", err)
	}
	if _, err = tx.ExecContext(ctx, updateLecture, *offer.ReplaceLectureID, offer.OffererID); err != nil {
		return fmt.Errorf("restore offerer lecture: %w", err)
	}

	var offererEmail string
	if err = tx.GetContext(ctx, &offererEmail, `SELECT email FROM users WHERE id = $1`, offer.OffererID); err != nil {
		return fmt.Errorf("load offerer: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"offer_id": offerID, "outcome": "APPROVED"})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindReplacementResult),
		Recipient: offererEmail,
		Payload:   payload,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replacement approval: %w", err)
	}
	return nil
}

// Decline records an admin decline: approver cleared, status DECLINED, and
// the offerer notified through the outbox.
func (r *ReplacementRepository) Decline(ctx context.Context, offerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replacement decline: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var offer struct {
		OffererID string `db:"offerer_id"`
	}
	if err = tx.GetContext(ctx, &offer, `SELECT offerer_id FROM replacement_offers WHERE id = $1 FOR UPDATE`, offerID); err != nil {
		return err
	}

	const updateOffer = `UPDATE replacement_offers SET approver_id = NULL, status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateOffer, offerID, models.OfferStatusDeclined, time.Now().UTC()); err != nil {
		return fmt.Errorf("decline replacement offer: %w", err)
	}

	var offererEmail string
	if err = tx.GetContext(ctx, &offererEmail, `SELECT email FROM users WHERE id = $1`, offer.OffererID); err != nil {
		return fmt.Errorf("load offerer: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"offer_id": offerID, "outcome": "DECLINED"})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindReplacementResult),
		Recipient: offererEmail,
		Payload:   payload,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replacement decline: %w", err)
	}
	return nil
}

// Accept runs the peer acceptance transaction. The status update is
// conditional on the offer still being PENDING, so the first writer wins;
// sibling offers for the same lecture are removed in the same transaction.
// Returns sql.ErrNoRows when the offer was already decided.
func (r *ReplacementRepository) Accept(ctx context.Context, offerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin offer acceptance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lectureID string
	const acceptQuery = `UPDATE replacement_offers SET status = $2, updated_at = $3
	WHERE id = $1 AND status = $4 RETURNING lecture_id`
	if err = tx.GetContext(ctx, &lectureID, acceptQuery, offerID,
		models.OfferStatusAccepted, time.Now().UTC(), models.OfferStatusPending); err != nil {
		return err
	}

	const deleteSiblings = `DELETE FROM replacement_offers WHERE lecture_id = $1 AND id <> $2`
	if _, err = tx.ExecContext(ctx, deleteSiblings, lectureID, offerID); err != nil {
		return fmt.Errorf("remove sibling offers: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit offer acceptance: %w", err)
	}
	return nil
}

// DeclineByPeer records the peer turning an offer down and notifies the
// offerer through the outbox.
func (r *ReplacementRepository) DeclineByPeer(ctx context.Context, offerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin peer decline: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var offererID string
	const declineQuery = `UPDATE replacement_offers SET status = $2, updated_at = $3
	WHERE id = $1 AND status = $4 RETURNING offerer_id`
	if err = tx.GetContext(ctx, &offererID, declineQuery, offerID,
		models.OfferStatusDeclined, time.Now().UTC(), models.OfferStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("decline offer: %w", err)
	}

	var offererEmail string
	if err = tx.GetContext(ctx, &offererEmail, `SELECT email FROM users WHERE id = $1`, offererID); err != nil {
		return fmt.Errorf("load offerer: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{"offer_id": offerID, "outcome": "DECLINED"})
	if err = enqueueNotification(ctx, tx, &models.Notification{
		Kind:      string(mailer.KindReplacementResult),
		Recipient: offererEmail,
		Payload:   payload,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit peer decline: %w", err)
	}
	return nil
}

// CountAcceptedForLecture reports how many offers on the lecture are
// ACCEPTED. Used by consistency checks and tests.
func (r *ReplacementRepository) CountAcceptedForLecture(ctx context.Context, lectureID string) (int, error) {
	const query = `SELECT COUNT(*) FROM replacement_offers WHERE lecture_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, lectureID, models.OfferStatusAccepted); err != nil {
		return 0, fmt.Errorf("count accepted offers: %w", err)
	}
	return count, nil
}
