// Package repository provides data persistence implementations for envelopes,
// signers and fields.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"

	apperrors "github.com/allisson/signflow/internal/errors"
)

const envelopeColumns = `id, slug, owner_id, title, status, document_key, document_hash,
	final_document_key, final_document_hash, audit_trail_key,
	reminder_enabled, reminder_interval, last_reminder_at, expires_at, completed_at,
	created_at, updated_at`

// PostgreSQLEnvelopeRepository handles envelope persistence for PostgreSQL
type PostgreSQLEnvelopeRepository struct {
	db *sql.DB
}

// NewPostgreSQLEnvelopeRepository creates a new PostgreSQLEnvelopeRepository
func NewPostgreSQLEnvelopeRepository(db *sql.DB) *PostgreSQLEnvelopeRepository {
	return &PostgreSQLEnvelopeRepository{db: db}
}

// Create inserts a new envelope
func (r *PostgreSQLEnvelopeRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO envelopes (` + envelopeColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

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
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "envelope slug already exists")
		}
		return apperrors.Wrap(err, "failed to create envelope")
	}
	return nil
}

// GetByID retrieves an envelope by ID
func (r *PostgreSQLEnvelopeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1`

	return scanEnvelope(querier.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves an envelope by its shareable slug
func (r *PostgreSQLEnvelopeRepository) GetBySlug(ctx context.Context, slug string) (*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE slug = $1`

	return scanEnvelope(querier.QueryRowContext(ctx, query, slug))
}

// Update persists all mutable envelope columns
func (r *PostgreSQLEnvelopeRepository) Update(ctx context.Context, envelope *domain.Envelope) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE envelopes SET title = $1, status = $2,
			  final_document_key = $3, final_document_hash = $4, audit_trail_key = $5,
			  reminder_enabled = $6, reminder_interval = $7, last_reminder_at = $8,
			  expires_at = $9, completed_at = $10, updated_at = $11
			  WHERE id = $12`

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
func (r *PostgreSQLEnvelopeRepository) UpdateStatusIfPending(
	ctx context.Context,
	id uuid.UUID,
	status domain.EnvelopeStatus,
	completedAt *time.Time,
	updatedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE envelopes SET status = $1, completed_at = $2, updated_at = $3
			  WHERE id = $4 AND status = $5`

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
func (r *PostgreSQLEnvelopeRepository) UpdateLastReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE envelopes SET last_reminder_at = $1, updated_at = $2 WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, at, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update last reminder timestamp")
	}
	return requireOneRow(result, domain.ErrEnvelopeNotFound)
}

// ListByOwner retrieves an owner's envelopes ordered by creation descending with pagination
func (r *PostgreSQLEnvelopeRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes
			  WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list envelopes by owner")
	}
	return collectEnvelopes(rows)
}

// ListPendingReminderEnabled retrieves every pending envelope with reminders
// enabled. The reminder sweep filters due-ness in memory.
func (r *PostgreSQLEnvelopeRepository) ListPendingReminderEnabled(ctx context.Context) ([]*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes
			  WHERE status = $1 AND reminder_enabled = TRUE ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, string(domain.EnvelopeStatusPending))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list reminder-enabled envelopes")
	}
	return collectEnvelopes(rows)
}

// ListPendingExpired retrieves pending envelopes whose deadline has passed
func (r *PostgreSQLEnvelopeRepository) ListPendingExpired(ctx context.Context, now time.Time) ([]*domain.Envelope, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + envelopeColumns + ` FROM envelopes
			  WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2 ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, string(domain.EnvelopeStatusPending), now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired envelopes")
	}
	return collectEnvelopes(rows)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelopeInto(scanner rowScanner, envelope *domain.Envelope) error {
	var status, interval string

	err := scanner.Scan(
		&envelope.ID,
		&envelope.Slug,
		&envelope.OwnerID,
		&envelope.Title,
		&status,
		&envelope.DocumentKey,
		&envelope.DocumentHash,
		&envelope.FinalDocumentKey,
		&envelope.FinalDocumentHash,
		&envelope.AuditTrailKey,
		&envelope.ReminderEnabled,
		&interval,
		&envelope.LastReminderAt,
		&envelope.ExpiresAt,
		&envelope.CompletedAt,
		&envelope.CreatedAt,
		&envelope.UpdatedAt,
	)
	if err != nil {
		return err
	}

	envelope.Status = domain.EnvelopeStatus(status)
	envelope.ReminderInterval = domain.ReminderInterval(interval)
	return nil
}

func scanEnvelope(row rowScanner) (*domain.Envelope, error) {
	var envelope domain.Envelope
	if err := scanEnvelopeInto(row, &envelope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEnvelopeNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get envelope")
	}
	return &envelope, nil
}

func collectEnvelopes(rows *sql.Rows) ([]*domain.Envelope, error) {
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	envelopes := make([]*domain.Envelope, 0)
	for rows.Next() {
		var envelope domain.Envelope
		if err := scanEnvelopeInto(rows, &envelope); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan envelope")
		}
		envelopes = append(envelopes, &envelope)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate envelopes")
	}
	return envelopes, nil
}

// requireOneRow maps a zero-row UPDATE to the given not-found error.
func requireOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
