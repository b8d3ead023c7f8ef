// Package domain defines the append-only audit ledger models. Every observed
// workflow event is recorded as one immutable entry; entries are never updated
// or deleted, and their insertion order is the order rendered on audit trails.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the kind of event an audit entry records. The vocabulary
// is closed; entries written by newer code with unknown actions must still be
// readable (see DecodeDetails).
type Action string

const (
	ActionCreated            Action = "created"
	ActionSent               Action = "sent"
	ActionViewed             Action = "viewed"
	ActionOpenedNotification Action = "opened_notification"
	ActionStartedSigning     Action = "started_signing"
	ActionSigned             Action = "signed"
	ActionDeclined           Action = "declined"
	ActionCompleted          Action = "completed"
	ActionDownloaded         Action = "downloaded"
	ActionReminderSent       Action = "reminder_sent"
	ActionExpired            Action = "expired"
	ActionLinksGenerated     Action = "links_generated"
	ActionEdited             Action = "edited"
)

// ValidAction reports whether a belongs to the known action vocabulary.
func ValidAction(a Action) bool {
	switch a {
	case ActionCreated, ActionSent, ActionViewed, ActionOpenedNotification,
		ActionStartedSigning, ActionSigned, ActionDeclined, ActionCompleted,
		ActionDownloaded, ActionReminderSent, ActionExpired,
		ActionLinksGenerated, ActionEdited:
		return true
	}
	return false
}

// AuditLog is one append-only ledger entry for an envelope.
type AuditLog struct {
	ID         uuid.UUID
	EnvelopeID uuid.UUID
	// SignerID is nil for owner- or system-initiated events.
	SignerID *uuid.UUID
	Action    Action
	IPAddress string
	UserAgent string
	// Details carries the action-specific payload.
	Details Details
	// Signature is the HMAC-SHA256 over the entry's canonical form under the
	// ledger key; used to detect after-the-fact tampering.
	Signature []byte
	CreatedAt time.Time
}
