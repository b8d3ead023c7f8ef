package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditTrailDocument is the presentation-ready join of an envelope, its
// signers, and its ordered ledger entries, handed to the rendering
// collaborator to produce the human-readable audit-trail PDF.
type AuditTrailDocument struct {
	// EnvelopeID and Slug identify the envelope.
	EnvelopeID uuid.UUID
	Slug       string
	// Title is the envelope's human-readable name.
	Title string
	// DocumentHash is the SHA-256 of the original uploaded document.
	DocumentHash string
	// FinalDocumentHash is the SHA-256 of the assembled signed document,
	// empty if finalization degraded.
	FinalDocumentHash string
	// CertificateID is a formatted fingerprint of (envelope id, document hash)
	// for human cross-referencing. It is a display convenience, not a
	// cryptographic validity claim; validity claims are the per-signer proofs.
	CertificateID string
	// OwnerID identifies the envelope owner.
	OwnerID uuid.UUID
	// CompletedAt is set when the envelope completed.
	CompletedAt *time.Time
	// Signers lists every participant with their final status.
	Signers []TrailSigner
	// Events lists every ledger entry in insertion order.
	Events []TrailEvent
	// GeneratedAt is when this document was built.
	GeneratedAt time.Time
}

// TrailSigner is one row of the audit trail's signer table.
type TrailSigner struct {
	Email     string
	Name      string
	Status    string
	SignedAt  *time.Time
	IPAddress string
}

// TrailEvent is one row of the audit trail's chronological event table.
type TrailEvent struct {
	Action      Action
	SignerEmail string
	IPAddress   string
	Details     Details
	OccurredAt  time.Time
}
