// Package repository provides persistence for the append-only audit ledger.
// Entries are inserted and read back in insertion order; there are no update
// or delete operations.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/database"

	apperrors "github.com/allisson/signflow/internal/errors"
)

const auditLogColumns = `id, envelope_id, signer_id, action, ip_address, user_agent, details, signature, created_at`

// PostgreSQLAuditLogRepository implements audit log persistence for PostgreSQL.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create inserts a new audit log entry. Uses transaction support via
// database.GetTx(). Handles nil details as database NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, auditLog *domain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	detailsJSON, err := domain.EncodeDetails(auditLog.Details)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log details")
	}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

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
func (p *PostgreSQLAuditLogRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*domain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + ` FROM audit_logs
			  WHERE envelope_id = $1 ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return collectAuditLogs(rows)
}

func collectAuditLogs(rows *sql.Rows) ([]*domain.AuditLog, error) {
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	auditLogs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		var auditLog domain.AuditLog
		var action string
		var detailsJSON []byte

		err := rows.Scan(
			&auditLog.ID,
			&auditLog.EnvelopeID,
			&auditLog.SignerID,
			&action,
			&auditLog.IPAddress,
			&auditLog.UserAgent,
			&detailsJSON,
			&auditLog.Signature,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		auditLog.Action = domain.Action(action)
		auditLog.Details, err = domain.DecodeDetails(auditLog.Action, detailsJSON)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to decode audit log details")
		}

		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return auditLogs, nil
}
