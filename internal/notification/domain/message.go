// Package domain defines the outbound notification models. The actual email
// or SMS transport is an external collaborator; the core only prepares
// messages and collects per-recipient outcomes.
package domain

// TemplateKind selects the notification template rendered by the transport.
type TemplateKind string

const (
	// TemplateSignatureRequest asks a signer to sign an envelope.
	TemplateSignatureRequest TemplateKind = "signature_request"

	// TemplateReminder nudges a signer who has not yet signed.
	TemplateReminder TemplateKind = "reminder"

	// TemplateCompleted informs a party that the envelope completed,
	// with the final document attached when available.
	TemplateCompleted TemplateKind = "completed"

	// TemplateTwoFactorCode delivers an SMS verification code.
	TemplateTwoFactorCode TemplateKind = "two_factor_code"
)

// Attachment is a document included with a notification.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound notification.
type Message struct {
	// To is the recipient address (email, or phone number for SMS templates).
	To string
	// Template selects the rendered template.
	Template TemplateKind
	// EnvelopeTitle and EnvelopeSlug identify the envelope in the template.
	EnvelopeTitle string
	EnvelopeSlug  string
	// Link is the action or retrieval URL embedded in the template. On the
	// degraded completion path this replaces attachments.
	Link string
	// Code carries the verification code for two-factor templates.
	Code string
	// Attachments are included when available; never required for delivery.
	Attachments []Attachment
}

// SendResult records the outcome of one send attempt.
type SendResult struct {
	To        string
	Template  TemplateKind
	Delivered bool
	Err       error
}
