package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// MySQLEnvelopeRepository handles envelope persistence for MySQL
type MySQLEnvelopeRepository struct {
	db *sql.DB
}

// NewMySQLEnvelopeRepository creates a new MySQLEnvelopeRepository
func NewMySQLEnvelopeRepository(db *sql.DB) *MySQLEnvelopeRepository {
	return &MySQLEnvelopeRepository{db: db}
}

// Create inserts a new envelope
func (r *MySQLEnvelopeRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO envelopes (` + envelopeColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		envelope.ID,
		envelope.Slug,
		envelope.OwnerID,
		envelope.Title,
		string(envelope.Status),
		envelope.DocumentKey,
		envelope.DocumentHash,
		envelope.FinalDocumentKey,
		envelope.FinalDocumentHash,
		envelope.AuditTrailKey,
		envelope.ReminderEnabled,
		string(envelope.ReminderInterval),
		envelope.LastReminderAt,
		envelope.ExpiresAt,
		envelope.CompletedAt,
		envelope.CreatedAt,
		envelope.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "envelope slug already exists")
		}
		return apperrors.Wrap(err, "failed to create envelope")
	}
	return nil
}

// GetByID retrieves an envelope by ID
func (r *MySQLEnvelopeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = ?`

	return scanEnvelope(querier.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves an envelope by its shareable slug
func (r *MySQLEnvelopeRepository) GetBySlug(ctx context.Context, slug string) (*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE slug = ?`

	return scanEnvelope(querier.QueryRowContext(ctx, query, slug))
}

// Update persists all mutable envelope columns
func (r *MySQLEnvelopeRepository) Update(ctx context.Context, envelope *domain.Envelope) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE envelopes SET title = ?, status = ?,
			  final_document_key = ?, final_document_hash = ?, audit_trail_key = ?,
			  reminder_enabled = ?, reminder_interval = ?, last_reminder_at = ?,
			  expires_at = ?, completed_at = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		envelope.Title,
		string(envelope.Status),
		envelope.FinalDocumentKey,
		envelope.FinalDocumentHash,
		envelope.AuditTrailKey,
		envelope.ReminderEnabled,
		string(envelope.ReminderInterval),
		envelope.LastReminderAt,
		envelope.ExpiresAt,
		envelope.CompletedAt,
		envelope.UpdatedAt,
		envelope.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update envelope")
	}
	return requireOneRow(result, domain.ErrEnvelopeNotFound)
}

// UpdateStatusIfPending transitions the envelope out of pending with a
// conditional update. Returns true only for the caller that won the
// transition; subsequent callers get false with no error.
func (r *MySQLEnvelopeRepository) UpdateStatusIfPending(
	ctx context.Context,
	id uuid.UUID,
	status domain.EnvelopeStatus,
	completedAt *time.Time,
	updatedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE envelopes SET status = ?, completed_at = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx, query, string(status), completedAt, updatedAt, id, string(domain.EnvelopeStatusPending),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update envelope status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return rows == 1, nil
}

// UpdateLastReminder records the completion of a reminder round
func (r *MySQLEnvelopeRepository) UpdateLastReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE envelopes SET last_reminder_at = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, at, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update last reminder timestamp")
	}
	return requireOneRow(result, domain.ErrEnvelopeNotFound)
}

// ListByOwner retrieves an owner's envelopes ordered by creation descending with pagination
func (r *MySQLEnvelopeRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes
			  WHERE owner_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list envelopes by owner")
	}
	return collectEnvelopes(rows)
}

// ListPendingReminderEnabled retrieves every pending envelope with reminders
// enabled. The reminder sweep filters due-ness in memory.
func (r *MySQLEnvelopeRepository) ListPendingReminderEnabled(ctx context.Context) ([]*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes
			  WHERE status = ? AND reminder_enabled = TRUE ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, string(domain.EnvelopeStatusPending))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list reminder-enabled envelopes")
	}
	return collectEnvelopes(rows)
}

// ListPendingExpired retrieves pending envelopes whose deadline has passed
func (r *MySQLEnvelopeRepository) ListPendingExpired(ctx context.Context, now time.Time) ([]*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes
			  WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ? ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, string(domain.EnvelopeStatusPending), now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired envelopes")
	}
	return collectEnvelopes(rows)
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "error 1062")
}
