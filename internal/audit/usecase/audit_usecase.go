// Package usecase implements business logic orchestration for the audit ledger.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditService "github.com/allisson/signflow/internal/audit/service"
	envelopeDomain "github.com/allisson/signflow/internal/envelope/domain"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// auditLogUseCase implements AuditLogUseCase.
type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	ledgerSigner auditService.LedgerSigner
}

// NewAuditLogUseCase creates a new AuditLogUseCase with the provided dependencies.
func NewAuditLogUseCase(auditLogRepo AuditLogRepository, ledgerSigner auditService.LedgerSigner) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		ledgerSigner: ledgerSigner,
	}
}

// Append records one workflow event. Generates a UUIDv7 identifier and UTC
// timestamp, then signs the entry's canonical form under the ledger key
// before persisting.
func (a *auditLogUseCase) Append(ctx context.Context, input AppendInput) error {
	auditLog := &auditDomain.AuditLog{
		ID:         uuid.Must(uuid.NewV7()),
		EnvelopeID: input.EnvelopeID,
		SignerID:   input.SignerID,
		Action:     input.Action,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		Details:    input.Details,
		// Microsecond precision matches what the timestamp columns store, so
		// the signed value survives a database round-trip.
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	signature, err := a.ledgerSigner.Sign(auditLog)
	if err != nil {
		return apperrors.Wrap(err, "failed to sign audit log")
	}
	auditLog.Signature = signature

	if err := a.auditLogRepo.Create(ctx, auditLog); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// ListByEnvelope retrieves an envelope's entries in insertion order.
func (a *auditLogUseCase) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*auditDomain.AuditLog, error) {
	auditLogs, err := a.auditLogRepo.ListByEnvelope(ctx, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return auditLogs, nil
}

// VerifyEnvelope recomputes every entry's ledger signature. Entries that fail
// verification are reported by ID; an empty slice means the ledger is intact.
func (a *auditLogUseCase) VerifyEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]uuid.UUID, error) {
	auditLogs, err := a.auditLogRepo.ListByEnvelope(ctx, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	tampered := make([]uuid.UUID, 0)
	for _, auditLog := range auditLogs {
		if err := a.ledgerSigner.Verify(auditLog); err != nil {
			tampered = append(tampered, auditLog.ID)
		}
	}
	return tampered, nil
}

// BuildAuditTrail joins the envelope, its signers and its ordered ledger into
// the audit trail document handed to the PDF renderer.
func (a *auditLogUseCase) BuildAuditTrail(
	ctx context.Context,
	envelope *envelopeDomain.Envelope,
	signers []*envelopeDomain.Signer,
) (*auditDomain.AuditTrailDocument, error) {
	auditLogs, err := a.auditLogRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	signerEmails := make(map[uuid.UUID]string, len(signers))
	trailSigners := make([]auditDomain.TrailSigner, 0, len(signers))
	for _, signer := range signers {
		signerEmails[signer.ID] = signer.Email
		trailSigners = append(trailSigners, auditDomain.TrailSigner{
			Email:     signer.Email,
			Name:      signer.Name,
			Status:    string(signer.Status),
			SignedAt:  signer.SignedAt,
			IPAddress: signer.IPAddress,
		})
	}

	events := make([]auditDomain.TrailEvent, 0, len(auditLogs))
	for _, auditLog := range auditLogs {
		event := auditDomain.TrailEvent{
			Action:     auditLog.Action,
			IPAddress:  auditLog.IPAddress,
			Details:    auditLog.Details,
			OccurredAt: auditLog.CreatedAt,
		}
		if auditLog.SignerID != nil {
			event.SignerEmail = signerEmails[*auditLog.SignerID]
		}
		events = append(events, event)
	}

	var finalDocumentHash string
	if envelope.FinalDocumentHash != nil {
		finalDocumentHash = *envelope.FinalDocumentHash
	}

	return &auditDomain.AuditTrailDocument{
		EnvelopeID:        envelope.ID,
		Slug:              envelope.Slug,
		Title:             envelope.Title,
		DocumentHash:      envelope.DocumentHash,
		FinalDocumentHash: finalDocumentHash,
		CertificateID:     auditService.CertificateID(envelope.ID, envelope.DocumentHash),
		OwnerID:           envelope.OwnerID,
		CompletedAt:       envelope.CompletedAt,
		Signers:           trailSigners,
		Events:            events,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}
