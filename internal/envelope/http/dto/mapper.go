package dto

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/envelope/domain"
	"github.com/allisson/signflow/internal/envelope/usecase"
	"github.com/allisson/signflow/internal/errors"
)

// ToCreateEnvelopeInput converts a create envelope request to a use case input.
func ToCreateEnvelopeInput(ownerID uuid.UUID, req CreateEnvelopeRequest) usecase.CreateEnvelopeInput {
	return usecase.CreateEnvelopeInput{
		OwnerID:          ownerID,
		Title:            req.Title,
		Document:         req.Document,
		ExpiresAt:        req.ExpiresAt,
		ReminderEnabled:  req.ReminderEnabled,
		ReminderInterval: domain.ReminderInterval(req.ReminderInterval),
	}
}

// ToReminderInterval converts a wire interval name to the domain type.
// Unknown names pass through and are rejected by the use case.
func ToReminderInterval(interval string) domain.ReminderInterval {
	return domain.ReminderInterval(interval)
}

// ToSignerInput converts a signer request to a use case input.
func ToSignerInput(req SignerRequest) usecase.SignerInput {
	return usecase.SignerInput{
		Email:           req.Email,
		Name:            req.Name,
		Phone2FAEnabled: req.Phone2FAEnabled,
		Phone2FANumber:  req.Phone2FANumber,
	}
}

// ToSignerInputs converts a replacement signer set to use case inputs.
func ToSignerInputs(req ReplaceSignersRequest) []usecase.SignerInput {
	inputs := make([]usecase.SignerInput, 0, len(req.Signers))
	for _, signer := range req.Signers {
		inputs = append(inputs, ToSignerInput(signer))
	}
	return inputs
}

// ToFieldInputs converts a field layout to use case inputs. Signer IDs are
// parsed here so the use case only ever sees well-formed UUIDs.
func ToFieldInputs(req SetFieldsRequest) ([]usecase.FieldInput, error) {
	inputs := make([]usecase.FieldInput, 0, len(req.Fields))
	for _, field := range req.Fields {
		signerID, err := uuid.Parse(field.SignerID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("invalid signer id: %s", field.SignerID))
		}
		inputs = append(inputs, usecase.FieldInput{
			SignerID:    signerID,
			Type:        domain.FieldType(field.Type),
			Page:        field.Page,
			X:           field.X,
			Y:           field.Y,
			Width:       field.Width,
			Height:      field.Height,
			Required:    field.Required,
			Label:       field.Label,
			Placeholder: field.Placeholder,
		})
	}
	return inputs, nil
}

// ToCompleteSigningInput converts a completion request to a use case input.
// Field ID keys are parsed here so the use case only ever sees well-formed
// UUIDs.
func ToCompleteSigningInput(
	token string,
	req CompleteSigningRequest,
	ipAddress, userAgent string,
) (usecase.CompleteSigningInput, error) {
	values := make(map[uuid.UUID]string, len(req.Values))
	for key, value := range req.Values {
		fieldID, err := uuid.Parse(key)
		if err != nil {
			return usecase.CompleteSigningInput{}, errors.Wrap(
				errors.ErrInvalidInput,
				fmt.Sprintf("invalid field id: %s", key),
			)
		}
		values[fieldID] = value
	}

	return usecase.CompleteSigningInput{
		Token:     token,
		Values:    values,
		TwoFACode: req.TwoFACode,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}, nil
}
