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

const fieldColumns = `id, envelope_id, signer_id, type, page, x, y, width, height,
	required, label, placeholder, value, filled_at, created_at`

// PostgreSQLFieldRepository handles field persistence for PostgreSQL
type PostgreSQLFieldRepository struct {
	db *sql.DB
}

// NewPostgreSQLFieldRepository creates a new PostgreSQLFieldRepository
func NewPostgreSQLFieldRepository(db *sql.DB) *PostgreSQLFieldRepository {
	return &PostgreSQLFieldRepository{db: db}
}

// ReplaceForEnvelope atomically swaps the envelope's field layout: existing
// fields are deleted and the given set inserted. Callers run this inside a
// transaction via database.TxManager.
func (r *PostgreSQLFieldRepository) ReplaceForEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
	fields []*domain.Field,
) error {
	querier := database.GetTx(ctx, r.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM fields WHERE envelope_id = $1`, envelopeID); err != nil {
		return apperrors.Wrap(err, "failed to delete fields")
	}

	query := `INSERT INTO fields (` + fieldColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

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
func (r *PostgreSQLFieldRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Field, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fieldColumns + ` FROM fields WHERE id = $1`

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
func (r *PostgreSQLFieldRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Field, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fieldColumns + ` FROM fields WHERE envelope_id = $1 ORDER BY page, y, x`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list fields")
	}
	return collectFields(rows)
}

// ListBySigner retrieves the fields assigned to one signer
func (r *PostgreSQLFieldRepository) ListBySigner(ctx context.Context, signerID uuid.UUID) ([]*domain.Field, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fieldColumns + ` FROM fields WHERE signer_id = $1 ORDER BY page, y, x`

	rows, err := querier.QueryContext(ctx, query, signerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list fields by signer")
	}
	return collectFields(rows)
}

// SetValue writes a field's filled value and timestamp
func (r *PostgreSQLFieldRepository) SetValue(ctx context.Context, id uuid.UUID, value string, filledAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE fields SET value = $1, filled_at = $2 WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, value, filledAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set field value")
	}
	return requireOneRow(result, apperrors.Wrap(apperrors.ErrNotFound, "field not found"))
}

func scanFieldInto(scanner rowScanner, field *domain.Field) error {
	var fieldType string

	err := scanner.Scan(
		&field.ID,
		&field.EnvelopeID,
		&field.SignerID,
		&fieldType,
		&field.Page,
		&field.X,
		&field.Y,
		&field.Width,
		&field.Height,
		&field.Required,
		&field.Label,
		&field.Placeholder,
		&field.Value,
		&field.FilledAt,
		&field.CreatedAt,
	)
	if err != nil {
		return err
	}

	field.Type = domain.FieldType(fieldType)
	return nil
}

func collectFields(rows *sql.Rows) ([]*domain.Field, error) {
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	fields := make([]*domain.Field, 0)
	for rows.Next() {
		var field domain.Field
		if err := scanFieldInto(rows, &field); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan field")
		}
		fields = append(fields, &field)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate fields")
	}
	return fields, nil
}
