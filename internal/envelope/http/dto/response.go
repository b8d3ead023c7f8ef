package dto

import (
	"time"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/envelope/domain"
	"github.com/allisson/signflow/internal/envelope/usecase"
)

// EnvelopeResponse represents an envelope in API responses.
type EnvelopeResponse struct {
	ID                string     `json:"id"`
	Slug              string     `json:"slug"`
	OwnerID           string     `json:"owner_id"`
	Title             string     `json:"title"`
	Status            string     `json:"status"`
	DocumentHash      string     `json:"document_hash"`
	FinalDocumentHash *string    `json:"final_document_hash,omitempty"`
	ReminderEnabled   bool       `json:"reminder_enabled"`
	ReminderInterval  string     `json:"reminder_interval"`
	LastReminderAt    *time.Time `json:"last_reminder_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SignerResponse represents a signer in API responses. The signing token is
// never included; signing URLs are served by the links endpoint.
type SignerResponse struct {
	ID              string     `json:"id"`
	EnvelopeID      string     `json:"envelope_id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	Order           int        `json:"order"`
	Color           string     `json:"color"`
	Status          string     `json:"status"`
	SignedAt        *time.Time `json:"signed_at,omitempty"`
	DeclinedAt      *time.Time `json:"declined_at,omitempty"`
	DeclineReason   string     `json:"decline_reason,omitempty"`
	Phone2FAEnabled bool       `json:"phone_2fa_enabled"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FieldResponse represents a placed field in API responses.
type FieldResponse struct {
	ID          string     `json:"id"`
	SignerID    string     `json:"signer_id"`
	Type        string     `json:"type"`
	Page        int        `json:"page"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Required    bool       `json:"required"`
	Label       string     `json:"label,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
	Value       *string    `json:"value,omitempty"`
	FilledAt    *time.Time `json:"filled_at,omitempty"`
}

// EnvelopeDetailResponse joins an envelope with its signers and fields.
type EnvelopeDetailResponse struct {
	Envelope EnvelopeResponse `json:"envelope"`
	Signers  []SignerResponse `json:"signers"`
	Fields   []FieldResponse  `json:"fields"`
}

// SigningLinkResponse pairs a signer with their personal signing URL.
type SigningLinkResponse struct {
	SignerID string `json:"signer_id"`
	Email    string `json:"email"`
	URL      string `json:"url"`
}

// SignerViewResponse is what a token holder sees: the envelope, their own
// signer record and the fields assigned to them.
type SignerViewResponse struct {
	Envelope EnvelopeResponse `json:"envelope"`
	Signer   SignerResponse   `json:"signer"`
	Fields   []FieldResponse  `json:"fields"`
}

// StartSigningResponse reports whether SMS verification is required before
// completing.
type StartSigningResponse struct {
	TwoFARequired bool `json:"two_fa_required"`
}

// CompleteSigningResponse reports the outcome of a successful signature.
type CompleteSigningResponse struct {
	SignatureProof string `json:"signature_proof"`
	AllCompleted   bool   `json:"all_completed"`
}

// TrailSignerResponse is one participant row of the audit trail.
type TrailSignerResponse struct {
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Status    string     `json:"status"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
}

// TrailEventResponse is one event row of the audit trail.
type TrailEventResponse struct {
	Action      string              `json:"action"`
	SignerEmail string              `json:"signer_email,omitempty"`
	IPAddress   string              `json:"ip_address,omitempty"`
	Details     auditDomain.Details `json:"details,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// AuditTrailResponse represents the presentation-ready audit trail.
type AuditTrailResponse struct {
	EnvelopeID        string                `json:"envelope_id"`
	Slug              string                `json:"slug"`
	Title             string                `json:"title"`
	DocumentHash      string                `json:"document_hash"`
	FinalDocumentHash string                `json:"final_document_hash,omitempty"`
	CertificateID     string                `json:"certificate_id"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
	Signers           []TrailSignerResponse `json:"signers"`
	Events            []TrailEventResponse  `json:"events"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// MapEnvelopeToResponse converts a domain envelope to an API response.
func MapEnvelopeToResponse(envelope *domain.Envelope) EnvelopeResponse {
	return EnvelopeResponse{
		ID:                envelope.ID.String(),
		Slug:              envelope.Slug,
		OwnerID:           envelope.OwnerID.String(),
		Title:             envelope.Title,
		Status:            string(envelope.Status),
		DocumentHash:      envelope.DocumentHash,
		FinalDocumentHash: envelope.FinalDocumentHash,
		ReminderEnabled:   envelope.ReminderEnabled,
		ReminderInterval:  string(envelope.ReminderInterval),
		LastReminderAt:    envelope.LastReminderAt,
		ExpiresAt:         envelope.ExpiresAt,
		CompletedAt:       envelope.CompletedAt,
		CreatedAt:         envelope.CreatedAt,
		UpdatedAt:         envelope.UpdatedAt,
	}
}

// MapEnvelopesToResponse converts a list of domain envelopes to API responses.
func MapEnvelopesToResponse(envelopes []*domain.Envelope) []EnvelopeResponse {
	responses := make([]EnvelopeResponse, 0, len(envelopes))
	for _, envelope := range envelopes {
		responses = append(responses, MapEnvelopeToResponse(envelope))
	}
	return responses
}

// MapSignerToResponse converts a domain signer to an API response.
func MapSignerToResponse(signer *domain.Signer) SignerResponse {
	return SignerResponse{
		ID:              signer.ID.String(),
		EnvelopeID:      signer.EnvelopeID.String(),
		Email:           signer.Email,
		Name:            signer.Name,
		Order:           signer.Order,
		Color:           signer.Color,
		Status:          string(signer.Status),
		SignedAt:        signer.SignedAt,
		DeclinedAt:      signer.DeclinedAt,
		DeclineReason:   signer.DeclineReason,
		Phone2FAEnabled: signer.Phone2FAEnabled,
		CreatedAt:       signer.CreatedAt,
	}
}

// MapSignersToResponse converts a list of domain signers to API responses.
func MapSignersToResponse(signers []*domain.Signer) []SignerResponse {
	responses := make([]SignerResponse, 0, len(signers))
	for _, signer := range signers {
		responses = append(responses, MapSignerToResponse(signer))
	}
	return responses
}

// MapFieldToResponse converts a domain field to an API response.
func MapFieldToResponse(field *domain.Field) FieldResponse {
	return FieldResponse{
		ID:          field.ID.String(),
		SignerID:    field.SignerID.String(),
		Type:        string(field.Type),
		Page:        field.Page,
		X:           field.X,
		Y:           field.Y,
		Width:       field.Width,
		Height:      field.Height,
		Required:    field.Required,
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Value:       field.Value,
		FilledAt:    field.FilledAt,
	}
}

// MapFieldsToResponse converts a list of domain fields to API responses.
func MapFieldsToResponse(fields []*domain.Field) []FieldResponse {
	responses := make([]FieldResponse, 0, len(fields))
	for _, field := range fields {
		responses = append(responses, MapFieldToResponse(field))
	}
	return responses
}

// MapDetailToResponse converts an envelope detail to an API response.
func MapDetailToResponse(detail *usecase.EnvelopeDetail) EnvelopeDetailResponse {
	return EnvelopeDetailResponse{
		Envelope: MapEnvelopeToResponse(detail.Envelope),
		Signers:  MapSignersToResponse(detail.Signers),
		Fields:   MapFieldsToResponse(detail.Fields),
	}
}

// MapSigningLinksToResponse converts signing links to API responses.
func MapSigningLinksToResponse(links []usecase.SigningLink) []SigningLinkResponse {
	responses := make([]SigningLinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, SigningLinkResponse{
			SignerID: link.SignerID.String(),
			Email:    link.Email,
			URL:      link.URL,
		})
	}
	return responses
}

// MapSignerViewToResponse converts a signer view to an API response.
func MapSignerViewToResponse(view *usecase.SignerView) SignerViewResponse {
	return SignerViewResponse{
		Envelope: MapEnvelopeToResponse(view.Envelope),
		Signer:   MapSignerToResponse(view.Signer),
		Fields:   MapFieldsToResponse(view.Fields),
	}
}

// MapAuditTrailToResponse converts an audit trail document to an API response.
func MapAuditTrailToResponse(trail *auditDomain.AuditTrailDocument) AuditTrailResponse {
	signers := make([]TrailSignerResponse, 0, len(trail.Signers))
	for _, signer := range trail.Signers {
		signers = append(signers, TrailSignerResponse{
			Email:     signer.Email,
			Name:      signer.Name,
			Status:    signer.Status,
			SignedAt:  signer.SignedAt,
			IPAddress: signer.IPAddress,
		})
	}

	events := make([]TrailEventResponse, 0, len(trail.Events))
	for _, event := range trail.Events {
		events = append(events, TrailEventResponse{
			Action:      string(event.Action),
			SignerEmail: event.SignerEmail,
			IPAddress:   event.IPAddress,
			Details:     event.Details,
			OccurredAt:  event.OccurredAt,
		})
	}

	return AuditTrailResponse{
		EnvelopeID:        trail.EnvelopeID.String(),
		Slug:              trail.Slug,
		Title:             trail.Title,
		DocumentHash:      trail.DocumentHash,
		FinalDocumentHash: trail.FinalDocumentHash,
		CertificateID:     trail.CertificateID,
		CompletedAt:       trail.CompletedAt,
		Signers:           signers,
		Events:            events,
		GeneratedAt:       trail.GeneratedAt,
	}
}
