// Package usecase defines business logic interfaces for the audit ledger.
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	envelopeDomain "github.com/allisson/signflow/internal/envelope/domain"
)

// AuditLogRepository defines persistence operations for ledger entries.
// Implementations must support transaction-aware operations via context propagation.
type AuditLogRepository interface {
	// Create appends a new ledger entry.
	Create(ctx context.Context, auditLog *auditDomain.AuditLog) error

	// ListByEnvelope retrieves an envelope's entries in insertion order.
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*auditDomain.AuditLog, error)
}

// AppendInput carries the caller-supplied parts of a new ledger entry.
// ID, timestamp and ledger signature are filled in by the use case.
type AppendInput struct {
	EnvelopeID uuid.UUID
	// SignerID is nil for owner- or system-initiated events.
	SignerID  *uuid.UUID
	Action    auditDomain.Action
	IPAddress string
	UserAgent string
	Details   auditDomain.Details
}

// AuditLogUseCase records and reads the append-only event ledger. Ledger
// writes never gate workflow state transitions: callers that treat an append
// failure as fatal must do so explicitly.
type AuditLogUseCase interface {
	// Append records one workflow event, signing it under the ledger key.
	Append(ctx context.Context, input AppendInput) error

	// ListByEnvelope retrieves an envelope's entries in insertion order.
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*auditDomain.AuditLog, error)

	// VerifyEnvelope recomputes every entry's ledger signature and returns
	// the IDs of entries that fail verification.
	VerifyEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]uuid.UUID, error)

	// BuildAuditTrail joins the envelope, its signers and its ledger into
	// the presentation-ready audit trail document.
	BuildAuditTrail(
		ctx context.Context,
		envelope *envelopeDomain.Envelope,
		signers []*envelopeDomain.Signer,
	) (*auditDomain.AuditTrailDocument, error)
}
