package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// MySQLSignerRepository handles signer persistence for MySQL
type MySQLSignerRepository struct {
	db *sql.DB
}

// NewMySQLSignerRepository creates a new MySQLSignerRepository
func NewMySQLSignerRepository(db *sql.DB) *MySQLSignerRepository {
	return &MySQLSignerRepository{db: db}
}

// Create inserts a new signer
func (r *MySQLSignerRepository) Create(ctx context.Context, signer *domain.Signer) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO signers (` + signerColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
		if isMySQLUniqueViolation(err) {
			return domain.ErrDuplicateSigner
		}
		return apperrors.Wrap(err, "failed to create signer")
	}
	return nil
}

// GetByID retrieves a signer by ID
func (r *MySQLSignerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Signer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + signerColumns + ` FROM signers WHERE id = ?`

	return scanSigner(querier.QueryRowContext(ctx, query, id))
}

// GetByToken retrieves a signer by its capability token
func (r *MySQLSignerRepository) GetByToken(ctx context.Context, token string) (*domain.Signer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + signerColumns + ` FROM signers WHERE token = ?`

	return scanSigner(querier.QueryRowContext(ctx, query, token))
}

// ListByEnvelope retrieves an envelope's signers ordered by their order index
func (r *MySQLSignerRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Signer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + signerColumns + ` FROM signers WHERE envelope_id = ? ORDER BY sign_order, created_at`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signers")
	}
	return collectSigners(rows)
}

// Update persists all mutable signer columns
func (r *MySQLSignerRepository) Update(ctx context.Context, signer *domain.Signer) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE signers SET email = ?, name = ?, sign_order = ?, color = ?, status = ?,
			  signed_at = ?, declined_at = ?, decline_reason = ?, ip_address = ?, user_agent = ?,
			  phone_2fa_enabled = ?, phone_2fa_number = ?, two_fa_code_hash = ?,
			  two_fa_code_expires_at = ?, updated_at = ?
			  WHERE id = ?`

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
func (r *MySQLSignerRepository) DeleteByEnvelope(ctx context.Context, envelopeID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM signers WHERE envelope_id = ?`, envelopeID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete signers")
	}
	return nil
}

// MarkAllSent transitions every still-pending signer of an envelope to sent
func (r *MySQLSignerRepository) MarkAllSent(ctx context.Context, envelopeID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE signers SET status = ?, updated_at = ? WHERE envelope_id = ? AND status = ?`

	_, err := querier.ExecContext(
		ctx, query, string(domain.SignerStatusSent), at, envelopeID, string(domain.SignerStatusPending),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark signers sent")
	}
	return nil
}
