// Package usecase implements the finalization orchestrator: it produces the
// final artifacts once every signer signed and notifies all parties,
// tolerating failure at every external call without leaving the envelope
// stuck in pending.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	caDomain "github.com/allisson/signflow/internal/ca/domain"
	"github.com/allisson/signflow/internal/envelope/domain"
)

// EnvelopeRepository is the envelope persistence surface finalization needs.
type EnvelopeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error)
	Update(ctx context.Context, envelope *domain.Envelope) error
	UpdateStatusIfPending(
		ctx context.Context,
		id uuid.UUID,
		status domain.EnvelopeStatus,
		completedAt *time.Time,
		updatedAt time.Time,
	) (bool, error)
}

// SignerRepository lists an envelope's signers.
type SignerRepository interface {
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Signer, error)
}

// FieldRepository lists an envelope's fields.
type FieldRepository interface {
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Field, error)
}

// DocumentAssembler is the PDF-embedding collaborator. Both calls may block on
// external rendering and are expected to enforce their own timeouts.
type DocumentAssembler interface {
	// AssembleSignedDocument embeds the field values and the signing identity
	// into the original document, returning the final bytes and their SHA-256
	// hex digest.
	AssembleSignedDocument(
		ctx context.Context,
		original []byte,
		fields []*domain.Field,
		identity *caDomain.SigningIdentity,
	) (content []byte, hash string, err error)

	// RenderAuditTrail renders the chain of custody as a human-readable
	// document.
	RenderAuditTrail(ctx context.Context, trail *auditDomain.AuditTrailDocument) ([]byte, error)
}

// Finalizer drives an envelope's completion.
type Finalizer interface {
	// Finalize transitions the envelope to completed and runs artifact
	// assembly and notification fan-out. Concurrent calls for the same
	// envelope elect a single winner; losers return without side effects.
	Finalize(ctx context.Context, envelopeID uuid.UUID) error
}

// CollaboratorError reports a failure of one external collaborator stage.
// The orchestrator degrades on it instead of aborting.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator failure at %s: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
