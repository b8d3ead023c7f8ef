// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/signflow/internal/validation"
)

// CreateEnvelopeRequest contains the parameters for creating a draft envelope.
// Document carries the raw PDF bytes, base64-encoded on the wire.
type CreateEnvelopeRequest struct {
	Title            string     `json:"title"`
	Document         []byte     `json:"document"`
	ExpiresAt        *time.Time `json:"expires_at"`
	ReminderEnabled  bool       `json:"reminder_enabled"`
	ReminderInterval string     `json:"reminder_interval"`
}

// Validate checks if the create envelope request is valid.
func (r *CreateEnvelopeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Document, validation.Required, validation.Length(1, 0)),
	)
}

// SignerRequest contains the attributes of one signer.
type SignerRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Phone2FAEnabled bool   `json:"phone_2fa_enabled"`
	Phone2FANumber  string `json:"phone_2fa_number"`
}

// Validate checks if the signer request is valid.
func (r *SignerRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, customValidation.Email),
		validation.Field(&r.Phone2FANumber,
			validation.When(r.Phone2FAEnabled, validation.Required, customValidation.E164Phone),
		),
	)
}

// ReplaceSignersRequest contains the full replacement signer set.
type ReplaceSignersRequest struct {
	Signers []SignerRequest `json:"signers"`
}

// Validate checks if the replace signers request is valid.
func (r *ReplaceSignersRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Signers, validation.Required, validation.Length(1, 0)),
	); err != nil {
		return err
	}
	for i := range r.Signers {
		if err := r.Signers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FieldRequest contains the placement of one field. Coordinates and
// dimensions are fractions of page size in [0, 1].
type FieldRequest struct {
	SignerID    string  `json:"signer_id"`
	Type        string  `json:"type"`
	Page        int     `json:"page"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Required    bool    `json:"required"`
	Label       string  `json:"label"`
	Placeholder string  `json:"placeholder"`
}

// Validate checks if the field request is valid. Placement geometry is
// validated by the use case, which knows the full layout.
func (r *FieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SignerID, validation.Required),
		validation.Field(&r.Type, validation.Required),
	)
}

// SetFieldsRequest contains the full replacement field layout.
type SetFieldsRequest struct {
	Fields []FieldRequest `json:"fields"`
}

// Validate checks if the set fields request is valid.
func (r *SetFieldsRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Fields, validation.Required, validation.Length(1, 0)),
	); err != nil {
		return err
	}
	for i := range r.Fields {
		if err := r.Fields[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateReminderSettingsRequest contains the reminder configuration.
type UpdateReminderSettingsRequest struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval"`
}

// Validate checks if the update reminder settings request is valid.
func (r *UpdateReminderSettingsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Interval, validation.Required),
	)
}

// CompleteSigningRequest contains a signer's completion attempt. Values maps
// field IDs to submitted values.
type CompleteSigningRequest struct {
	Values    map[string]string `json:"values"`
	TwoFACode string            `json:"two_fa_code"`
}

// DeclineRequest contains a signer's refusal.
type DeclineRequest struct {
	Reason string `json:"reason"`
}
