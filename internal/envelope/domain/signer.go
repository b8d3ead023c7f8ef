package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signer represents one participant who must sign an envelope.
type Signer struct {
	// ID is the unique identifier for the signer.
	ID uuid.UUID
	// EnvelopeID is the envelope this signer belongs to.
	EnvelopeID uuid.UUID
	// Email is the signer's address, unique within an envelope (case-insensitive).
	Email string
	// Name is the signer's optional display name.
	Name string
	// Order is the display/role index assigned at creation. It is not used
	// for sequential gating; any signer may sign at any time.
	Order int
	// Color is a presentation hint for rendering this signer's fields.
	Color string
	// Token is the capability credential entitling the holder to view and
	// sign this envelope. Cryptographically random, URL-safe.
	Token string
	// Status is the signer sub-state (pending, sent, viewed, signed, declined).
	Status SignerStatus
	// SignedAt records when the signer completed signing.
	SignedAt *time.Time
	// DeclinedAt records when the signer declined.
	DeclinedAt *time.Time
	// DeclineReason is the optional free-text reason given when declining.
	DeclineReason string
	// IPAddress is the remote address captured at signing time.
	IPAddress string
	// UserAgent is the browser identification captured at signing time.
	UserAgent string
	// Phone2FAEnabled indicates whether SMS verification is required before signing.
	Phone2FAEnabled bool
	// Phone2FANumber is the E.164 number used for SMS verification.
	Phone2FANumber string
	// TwoFACodeHash holds the Argon2id hash of the current verification code.
	TwoFACodeHash string
	// TwoFACodeExpiresAt is when the current verification code stops being accepted.
	TwoFACodeExpiresAt *time.Time
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last mutation.
	UpdatedAt time.Time
}

// signerColors is the rotation of presentation colors assigned by order index.
var signerColors = []string{"#2563eb", "#dc2626", "#16a34a", "#9333ea", "#ea580c", "#0891b2"}

// ColorForOrder returns the presentation color assigned to a signer order index.
func ColorForOrder(order int) string {
	if order < 0 {
		order = 0
	}
	return signerColors[order%len(signerColors)]
}

// NormalizeEmail lowercases and trims an email address for case-insensitive
// uniqueness checks within an envelope.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
