package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// MySQLFieldRepository handles field persistence for MySQL
type MySQLFieldRepository struct {
	db *sql.DB
}

// NewMySQLFieldRepository creates a new MySQLFieldRepository
func NewMySQLFieldRepository(db *sql.DB) *MySQLFieldRepository {
	return &MySQLFieldRepository{db: db}
}

// ReplaceForEnvelope atomically swaps the envelope's field layout: existing
// fields are deleted and the given set inserted. Callers run this inside a
// transaction via database.TxManager.
func (r *MySQLFieldRepository) ReplaceForEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
	fields []*domain.Field,
) error {
	querier := database.GetTx(ctx, r.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM fields WHERE envelope_id = ?`, envelopeID); err != nil {
		return apperrors.Wrap(err, "failed to delete fields")
	}

	query := `INSERT INTO fields (` + fieldColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, field := range fields {
		_, err := querier.ExecContext(
			ctx,
			query,
			field.ID,
			field.EnvelopeID,
			field.SignerID,
			string(field.Type),
			field.Page,
			field.X,
			field.Y,
			field.Width,
			field.Height,
			field.Required,
			field.Label,
			field.Placeholder,
			field.Value,
			field.FilledAt,
			field.CreatedAt,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to insert field")
		}
	}
	return nil
}

// GetByID retrieves a field by ID
func (r *MySQLFieldRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Field, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fieldColumns + ` FROM fields WHERE id = ?`

	var field domain.Field
	if err := scanFieldInto(querier.QueryRowContext(ctx, query, id), &field); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "field not found")
		}
		return nil, apperrors.Wrap(err, "failed to get field")
	}
	return &field, nil
}

// ListByEnvelope retrieves an envelope's fields ordered by page and position
func (r *MySQLFieldRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Field, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fieldColumns + ` FROM fields WHERE envelope_id = ? ORDER BY page, y, x`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list fields")
	}
	return collectFields(rows)
}

// ListBySigner retrieves the fields assigned to one signer
func (r *MySQLFieldRepository) ListBySigner(ctx context.Context, signerID uuid.UUID) ([]*domain.Field, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fieldColumns + ` FROM fields WHERE signer_id = ? ORDER BY page, y, x`

	rows, err := querier.QueryContext(ctx, query, signerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list fields by signer")
	}
	return collectFields(rows)
}

// SetValue writes a field's filled value and timestamp
func (r *MySQLFieldRepository) SetValue(ctx context.Context, id uuid.UUID, value string, filledAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE fields SET value = ?, filled_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, value, filledAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set field value")
	}
	return requireOneRow(result, apperrors.Wrap(apperrors.ErrNotFound, "field not found"))
}
