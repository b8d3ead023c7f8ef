package domain

import (
	"time"

	"github.com/google/uuid"
)

// Envelope represents one signable document instance routed for signatures.
type Envelope struct {
	// ID is the unique identifier for the envelope.
	ID uuid.UUID
	// Slug is a human-shareable, URL-safe unique identifier.
	Slug string
	// OwnerID identifies the account that created the envelope.
	OwnerID uuid.UUID
	// Title is the human-readable envelope name shown in notifications.
	Title string
	// Status is the lifecycle state (draft, pending, completed, declined, expired).
	Status EnvelopeStatus
	// DocumentKey is the blob-store key of the original uploaded PDF.
	DocumentKey string
	// DocumentHash is the SHA-256 hex digest of the original PDF bytes,
	// computed at upload and never mutated afterwards.
	DocumentHash string
	// FinalDocumentKey is the blob-store key of the assembled signed PDF.
	// Set exactly once, at completion.
	FinalDocumentKey *string
	// FinalDocumentHash is the SHA-256 hex digest of the assembled signed PDF.
	// Set exactly once, at completion.
	FinalDocumentHash *string
	// AuditTrailKey is the blob-store key of the rendered audit-trail document.
	AuditTrailKey *string
	// ReminderEnabled controls whether the reminder sweep considers this envelope.
	ReminderEnabled bool
	// ReminderInterval is the minimum wait between reminder rounds.
	ReminderInterval ReminderInterval
	// LastReminderAt records when the last reminder round was sent (nil if never).
	LastReminderAt *time.Time
	// ExpiresAt is the optional deadline after which the envelope expires.
	ExpiresAt *time.Time
	// CompletedAt records when the envelope reached completed status.
	CompletedAt *time.Time
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last mutation.
	UpdatedAt time.Time
}

// Mutable reports whether fields and signers may still be changed.
// Envelope content is mutable only while in draft.
func (e *Envelope) Mutable() bool {
	return e.Status == EnvelopeStatusDraft
}

// Expired reports whether the envelope's deadline has passed at the given instant.
// Envelopes without a deadline never expire.
func (e *Envelope) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// ReminderDue reports whether enough time has elapsed since the last reminder
// round (or since creation, if no reminder was ever sent) for a new round.
func (e *Envelope) ReminderDue(now time.Time) bool {
	if !e.ReminderEnabled {
		return false
	}
	since := e.CreatedAt
	if e.LastReminderAt != nil {
		since = *e.LastReminderAt
	}
	return now.Sub(since) >= e.ReminderInterval.Duration()
}
