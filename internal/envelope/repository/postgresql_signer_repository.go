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

const signerColumns = `id, envelope_id, email, name, sign_order, color, token, status,
	signed_at, declined_at, decline_reason, ip_address, user_agent,
	phone_2fa_enabled, phone_2fa_number, two_fa_code_hash, two_fa_code_expires_at,
	created_at, updated_at`

// PostgreSQLSignerRepository handles signer persistence for PostgreSQL
type PostgreSQLSignerRepository struct {
	db *sql.DB
}

// NewPostgreSQLSignerRepository creates a new PostgreSQLSignerRepository
func NewPostgreSQLSignerRepository(db *sql.DB) *PostgreSQLSignerRepository {
	return &PostgreSQLSignerRepository{db: db}
}

// Create inserts a new signer
func (r *PostgreSQLSignerRepository) Create(ctx context.Context, signer *domain.Signer) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO signers (` + signerColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := querier.ExecContext(
		ctx,
		query,
		signer.ID,
		signer.EnvelopeID,
		signer.Email,
		signer.Name,
		signer.Order,
		signer.Color,
		signer.Token,
		string(signer.Status),
		signer.SignedAt,
		signer.DeclinedAt,
		signer.DeclineReason,
		signer.IPAddress,
		signer.UserAgent,
		signer.Phone2FAEnabled,
		signer.Phone2FANumber,
		signer.TwoFACodeHash,
		signer.TwoFACodeExpiresAt,
		signer.CreatedAt,
		signer.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrDuplicateSigner
		}
		return apperrors.Wrap(err, "failed to create signer")
	}
	return nil
}

// GetByID retrieves a signer by ID
func (r *PostgreSQLSignerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Signer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + signerColumns + ` FROM signers WHERE id = $1`

	return scanSigner(querier.QueryRowContext(ctx, query, id))
}

// GetByToken retrieves a signer by its capability token
func (r *PostgreSQLSignerRepository) GetByToken(ctx context.Context, token string) (*domain.Signer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + signerColumns + ` FROM signers WHERE token = $1`

	return scanSigner(querier.QueryRowContext(ctx, query, token))
}

// ListByEnvelope retrieves an envelope's signers ordered by their order index
func (r *PostgreSQLSignerRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Signer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + signerColumns + ` FROM signers WHERE envelope_id = $1 ORDER BY sign_order, created_at`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signers")
	}
	return collectSigners(rows)
}

// Update persists all mutable signer columns
func (r *PostgreSQLSignerRepository) Update(ctx context.Context, signer *domain.Signer) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE signers SET email = $1, name = $2, sign_order = $3, color = $4, status = $5,
			  signed_at = $6, declined_at = $7, decline_reason = $8, ip_address = $9, user_agent = $10,
			  phone_2fa_enabled = $11, phone_2fa_number = $12, two_fa_code_hash = $13,
			  two_fa_code_expires_at = $14, updated_at = $15
			  WHERE id = $16`

	result, err := querier.ExecContext(
		ctx,
		query,
		signer.Email,
		signer.Name,
		signer.Order,
		signer.Color,
		string(signer.Status),
		signer.SignedAt,
		signer.DeclinedAt,
		signer.DeclineReason,
		signer.IPAddress,
		signer.UserAgent,
		signer.Phone2FAEnabled,
		signer.Phone2FANumber,
		signer.TwoFACodeHash,
		signer.TwoFACodeExpiresAt,
		signer.UpdatedAt,
		signer.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update signer")
	}
	return requireOneRow(result, domain.ErrSignerNotFound)
}

// DeleteByEnvelope removes every signer of an envelope
func (r *PostgreSQLSignerRepository) DeleteByEnvelope(ctx context.Context, envelopeID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM signers WHERE envelope_id = $1`, envelopeID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete signers")
	}
	return nil
}

// MarkAllSent transitions every still-pending signer of an envelope to sent
func (r *PostgreSQLSignerRepository) MarkAllSent(ctx context.Context, envelopeID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE signers SET status = $1, updated_at = $2 WHERE envelope_id = $3 AND status = $4`

	_, err := querier.ExecContext(
		ctx, query, string(domain.SignerStatusSent), at, envelopeID, string(domain.SignerStatusPending),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark signers sent")
	}
	return nil
}

func scanSignerInto(scanner rowScanner, signer *domain.Signer) error {
	var status string

	err := scanner.Scan(
		&signer.ID,
		&signer.EnvelopeID,
		&signer.Email,
		&signer.Name,
		&signer.Order,
		&signer.Color,
		&signer.Token,
		&status,
		&signer.SignedAt,
		&signer.DeclinedAt,
		&signer.DeclineReason,
		&signer.IPAddress,
		&signer.UserAgent,
		&signer.Phone2FAEnabled,
		&signer.Phone2FANumber,
		&signer.TwoFACodeHash,
		&signer.TwoFACodeExpiresAt,
		&signer.CreatedAt,
		&signer.UpdatedAt,
	)
	if err != nil {
		return err
	}

	signer.Status = domain.SignerStatus(status)
	return nil
}

func scanSigner(row rowScanner) (*domain.Signer, error) {
	var signer domain.Signer
	if err := scanSignerInto(row, &signer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSignerNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get signer")
	}
	return &signer, nil
}

func collectSigners(rows *sql.Rows) ([]*domain.Signer, error) {
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	signers := make([]*domain.Signer, 0)
	for rows.Next() {
		var signer domain.Signer
		if err := scanSignerInto(rows, &signer); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan signer")
		}
		signers = append(signers, &signer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate signers")
	}
	return signers, nil
}
