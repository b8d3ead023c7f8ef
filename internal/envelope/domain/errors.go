package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/errors"
)

// Envelope and signer workflow errors.
var (
	// ErrEnvelopeNotFound indicates no envelope exists for the given id or slug.
	ErrEnvelopeNotFound = errors.Wrap(errors.ErrNotFound, "envelope not found")

	// ErrSignerNotFound indicates no signer exists for the given id or token.
	ErrSignerNotFound = errors.Wrap(errors.ErrNotFound, "signer not found")

	// ErrEnvelopeNotDraft indicates a content mutation was attempted after the
	// envelope left draft.
	ErrEnvelopeNotDraft = errors.Wrap(errors.ErrInvalidState, "envelope is not in draft")

	// ErrEnvelopeNotPending indicates a signing operation was attempted on an
	// envelope that is not awaiting signatures.
	ErrEnvelopeNotPending = errors.Wrap(errors.ErrInvalidState, "envelope is not pending")

	// ErrAlreadySent indicates a send was attempted on an envelope that already
	// left draft.
	ErrAlreadySent = errors.Wrap(errors.ErrInvalidState, "envelope was already sent")

	// ErrDuplicateSigner indicates the email already belongs to a signer on the
	// envelope (compared case-insensitively).
	ErrDuplicateSigner = errors.Wrap(errors.ErrConflict, "signer email already present on envelope")

	// ErrAlreadySigned indicates the signer has already completed signing.
	ErrAlreadySigned = errors.Wrap(errors.ErrConflict, "signer has already signed")

	// ErrSignerDeclined indicates the signer previously declined and can no
	// longer sign.
	ErrSignerDeclined = errors.Wrap(errors.ErrInvalidState, "signer has declined")

	// ErrNoSigners indicates a send was attempted with no signers attached.
	ErrNoSigners = errors.Wrap(errors.ErrInvalidInput, "envelope has no signers")

	// ErrNoFields indicates a send was attempted with no fields placed.
	ErrNoFields = errors.Wrap(errors.ErrInvalidInput, "envelope has no fields")

	// ErrTwoFACodeInvalid indicates the SMS verification code did not match or expired.
	ErrTwoFACodeInvalid = errors.Wrap(errors.ErrUnauthorized, "verification code is invalid or expired")
)

// MissingRequiredFieldsError reports which required fields lack a filling
// value when a signer attempts to complete signing.
type MissingRequiredFieldsError struct {
	FieldIDs []uuid.UUID
}

// Error implements the error interface, listing the outstanding field ids.
func (e *MissingRequiredFieldsError) Error() string {
	ids := make([]string, len(e.FieldIDs))
	for i, id := range e.FieldIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(ids, ", "))
}

// Unwrap makes the error match errors.ErrInvalidInput in errors.Is checks.
func (e *MissingRequiredFieldsError) Unwrap() error {
	return errors.ErrInvalidInput
}
