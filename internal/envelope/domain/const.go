// Package domain defines the envelope, signer, and field domain models that
// make up the signing workflow state machine.
package domain

import "time"

// EnvelopeStatus represents the lifecycle state of an envelope.
// Envelopes move draft -> pending -> {completed, declined, expired};
// completed, declined, and expired are terminal.
type EnvelopeStatus string

const (
	// EnvelopeStatusDraft is the initial state; fields and signers are mutable.
	EnvelopeStatusDraft EnvelopeStatus = "draft"

	// EnvelopeStatusPending means the envelope was sent and is awaiting signatures.
	EnvelopeStatusPending EnvelopeStatus = "pending"

	// EnvelopeStatusCompleted means every signer has signed and the final
	// document has been (or is being) assembled. Terminal.
	EnvelopeStatusCompleted EnvelopeStatus = "completed"

	// EnvelopeStatusDeclined means a signer declined to sign. Terminal.
	EnvelopeStatusDeclined EnvelopeStatus = "declined"

	// EnvelopeStatusExpired means the envelope passed its expiration without
	// completing. Terminal.
	EnvelopeStatusExpired EnvelopeStatus = "expired"
)

// SignerStatus represents the sub-state of one signer within an envelope.
// Signers move pending -> sent -> viewed -> {signed, declined}.
type SignerStatus string

const (
	SignerStatusPending  SignerStatus = "pending"
	SignerStatusSent     SignerStatus = "sent"
	SignerStatusViewed   SignerStatus = "viewed"
	SignerStatusSigned   SignerStatus = "signed"
	SignerStatusDeclined SignerStatus = "declined"
)

// Terminal reports whether the signer reached a final state.
func (s SignerStatus) Terminal() bool {
	return s == SignerStatusSigned || s == SignerStatusDeclined
}

// FieldType identifies the kind of input a field collects. The set is closed;
// validation and rendering switch over it rather than dispatching dynamically.
type FieldType string

const (
	FieldTypeSignature FieldType = "signature"
	FieldTypeInitials  FieldType = "initials"
	FieldTypeDate      FieldType = "date"
	FieldTypeText      FieldType = "text"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeName      FieldType = "name"
	FieldTypeEmail     FieldType = "email"
)

// ValidFieldType reports whether t belongs to the closed field-type set.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldTypeSignature, FieldTypeInitials, FieldTypeDate,
		FieldTypeText, FieldTypeCheckbox, FieldTypeName, FieldTypeEmail:
		return true
	}
	return false
}

// CheckboxTrueMarker is the canonical value for a checked checkbox field.
// Any other value leaves the checkbox unfilled.
const CheckboxTrueMarker = "true"

// ReminderInterval is the configured wait between reminder notifications.
type ReminderInterval string

const (
	ReminderInterval1Day  ReminderInterval = "1d"
	ReminderInterval2Days ReminderInterval = "2d"
	ReminderInterval3Days ReminderInterval = "3d"
	ReminderInterval7Days ReminderInterval = "7d"
)

// Duration returns the wall-clock duration of the interval. Unknown values
// fall back to 3 days, the default interval.
func (r ReminderInterval) Duration() time.Duration {
	switch r {
	case ReminderInterval1Day:
		return 24 * time.Hour
	case ReminderInterval2Days:
		return 48 * time.Hour
	case ReminderInterval3Days:
		return 72 * time.Hour
	case ReminderInterval7Days:
		return 7 * 24 * time.Hour
	default:
		return 72 * time.Hour
	}
}

// ValidReminderInterval reports whether r is one of the supported intervals.
func ValidReminderInterval(r ReminderInterval) bool {
	switch r {
	case ReminderInterval1Day, ReminderInterval2Days, ReminderInterval3Days, ReminderInterval7Days:
		return true
	}
	return false
}
