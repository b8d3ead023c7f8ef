package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/database"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// MySQLAuditLogRepository implements audit log persistence for MySQL.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create inserts a new audit log entry. Uses transaction support via
// database.GetTx(). Handles nil details as database NULL.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, auditLog *domain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	detailsJSON, err := domain.EncodeDetails(auditLog.Details)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log details")
	}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		auditLog.ID,
		auditLog.EnvelopeID,
		auditLog.SignerID,
		string(auditLog.Action),
		auditLog.IPAddress,
		auditLog.UserAgent,
		detailsJSON,
		auditLog.Signature,
		auditLog.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// ListByEnvelope retrieves an envelope's audit logs in insertion order.
func (m *MySQLAuditLogRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*domain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditLogColumns + ` FROM audit_logs
			  WHERE envelope_id = ? ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return collectAuditLogs(rows)
}
