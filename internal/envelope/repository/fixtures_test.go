package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/envelope/domain"
)

// newTestEnvelope builds a pending envelope fixture with a unique slug.
func newTestEnvelope(status domain.EnvelopeStatus) *domain.Envelope {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.Must(uuid.NewV7())
	return &domain.Envelope{
		ID:               id,
		Slug:             "s" + id.String()[:9],
		OwnerID:          uuid.Must(uuid.NewV7()),
		Title:            "Q3 Services Agreement",
		Status:           status,
		DocumentKey:      "envelopes/" + id.String() + "/document.pdf",
		DocumentHash:     "a3f8d1e2c4b59876a3f8d1e2c4b59876a3f8d1e2c4b59876a3f8d1e2c4b59876",
		ReminderEnabled:  true,
		ReminderInterval: domain.ReminderInterval3Days,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// newTestSigner builds a signer fixture attached to the given envelope.
func newTestSigner(envelopeID uuid.UUID, email string, order int) *domain.Signer {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.Must(uuid.NewV7())
	return &domain.Signer{
		ID:         id,
		EnvelopeID: envelopeID,
		Email:      email,
		Name:       "Test Signer",
		Order:      order,
		Color:      domain.ColorForOrder(order),
		Token:      "tok-" + id.String(),
		Status:     domain.SignerStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// newTestField builds a required signature field fixture for the given signer.
func newTestField(envelopeID, signerID uuid.UUID, fieldType domain.FieldType) *domain.Field {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Field{
		ID:         uuid.Must(uuid.NewV7()),
		EnvelopeID: envelopeID,
		SignerID:   signerID,
		Type:       fieldType,
		Page:       0,
		X:          0.1,
		Y:          0.8,
		Width:      0.25,
		Height:     0.05,
		Required:   true,
		Label:      "Sign here",
		CreatedAt:  now,
	}
}
