// Package usecase defines business logic interfaces for the envelope
// signing workflow.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/envelope/domain"
)

// EnvelopeRepository defines persistence operations for envelopes.
// Implementations must support transaction-aware operations via context propagation.
type EnvelopeRepository interface {
	// Create stores a new envelope.
	Create(ctx context.Context, envelope *domain.Envelope) error

	// GetByID retrieves an envelope by ID. Returns ErrEnvelopeNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error)

	// GetBySlug retrieves an envelope by its shareable slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Envelope, error)

	// Update persists all mutable envelope columns.
	Update(ctx context.Context, envelope *domain.Envelope) error

	// UpdateStatusIfPending performs the single-winner transition out of
	// pending. Returns true for the caller whose update took effect.
	UpdateStatusIfPending(
		ctx context.Context,
		id uuid.UUID,
		status domain.EnvelopeStatus,
		completedAt *time.Time,
		updatedAt time.Time,
	) (bool, error)

	// UpdateLastReminder records the completion of a reminder round.
	UpdateLastReminder(ctx context.Context, id uuid.UUID, at time.Time) error

	// ListByOwner retrieves an owner's envelopes newest-first with pagination.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Envelope, error)

	// ListPendingReminderEnabled retrieves pending envelopes with reminders enabled.
	ListPendingReminderEnabled(ctx context.Context) ([]*domain.Envelope, error)

	// ListPendingExpired retrieves pending envelopes whose deadline passed.
	ListPendingExpired(ctx context.Context, now time.Time) ([]*domain.Envelope, error)
}

// SignerRepository defines persistence operations for signers.
type SignerRepository interface {
	Create(ctx context.Context, signer *domain.Signer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Signer, error)

	// GetByToken retrieves a signer by its capability token.
	// Returns ErrSignerNotFound if not found.
	GetByToken(ctx context.Context, token string) (*domain.Signer, error)

	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Signer, error)
	Update(ctx context.Context, signer *domain.Signer) error
	DeleteByEnvelope(ctx context.Context, envelopeID uuid.UUID) error

	// MarkAllSent transitions every still-pending signer to sent.
	MarkAllSent(ctx context.Context, envelopeID uuid.UUID, at time.Time) error
}

// FieldRepository defines persistence operations for fields.
type FieldRepository interface {
	// ReplaceForEnvelope swaps the envelope's whole field layout.
	ReplaceForEnvelope(ctx context.Context, envelopeID uuid.UUID, fields []*domain.Field) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Field, error)
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Field, error)
	ListBySigner(ctx context.Context, signerID uuid.UUID) ([]*domain.Field, error)

	// SetValue writes a field's filled value and timestamp.
	SetValue(ctx context.Context, id uuid.UUID, value string, filledAt time.Time) error
}

// Finalizer completes an envelope after the last signature: assembles the
// signed document, persists artifacts and notifies participants. Implemented
// by the finalize module; invoked by the signing flow and never by HTTP
// handlers directly.
type Finalizer interface {
	Finalize(ctx context.Context, envelopeID uuid.UUID) error
}

// CreateEnvelopeInput carries the owner-supplied parts of a new envelope.
type CreateEnvelopeInput struct {
	OwnerID  uuid.UUID
	Title    string
	Document []byte
	// ExpiresAt is the optional signing deadline.
	ExpiresAt        *time.Time
	ReminderEnabled  bool
	ReminderInterval domain.ReminderInterval
}

// SignerInput carries the owner-supplied attributes of a signer.
type SignerInput struct {
	Email           string
	Name            string
	Phone2FAEnabled bool
	Phone2FANumber  string
}

// FieldInput carries the owner-supplied attributes of one placed field.
// Coordinates and dimensions are normalized fractions of page size.
type FieldInput struct {
	SignerID    uuid.UUID
	Type        domain.FieldType
	Page        int
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Required    bool
	Label       string
	Placeholder string
}

// EnvelopeDetail joins an envelope with its signers and fields.
type EnvelopeDetail struct {
	Envelope *domain.Envelope
	Signers  []*domain.Signer
	Fields   []*domain.Field
}

// SigningLink pairs a signer with their personal signing URL.
type SigningLink struct {
	SignerID uuid.UUID
	Email    string
	URL      string
}

// DownloadResult carries a retrieved document.
type DownloadResult struct {
	Content     []byte
	ContentType string
	FileName    string
	// Final indicates the assembled signed document was served rather than
	// the original upload.
	Final bool
}

// EnvelopeUseCase defines the owner-facing envelope operations.
type EnvelopeUseCase interface {
	// Create uploads a document and creates a draft envelope around it.
	// The document's SHA-256 is computed here and never recomputed.
	Create(ctx context.Context, input CreateEnvelopeInput) (*domain.Envelope, error)

	// Get retrieves an envelope with signers and fields, scoped to its owner.
	Get(ctx context.Context, ownerID, envelopeID uuid.UUID) (*EnvelopeDetail, error)

	// GetBySlug retrieves an envelope by slug, scoped to its owner.
	GetBySlug(ctx context.Context, ownerID uuid.UUID, slug string) (*EnvelopeDetail, error)

	// List retrieves the owner's envelopes newest-first with pagination.
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Envelope, error)

	// AddSigner attaches a signer to a draft envelope with a fresh token.
	AddSigner(ctx context.Context, ownerID, envelopeID uuid.UUID, input SignerInput) (*domain.Signer, error)

	// ReplaceSigners swaps the whole signer set of a draft envelope.
	// Every signer gets a newly generated token; previously issued signing
	// links stop resolving. Placed fields are discarded with the old set.
	ReplaceSigners(ctx context.Context, ownerID, envelopeID uuid.UUID, inputs []SignerInput) ([]*domain.Signer, error)

	// SetFields swaps the whole field layout of a draft envelope.
	SetFields(ctx context.Context, ownerID, envelopeID uuid.UUID, inputs []FieldInput) ([]*domain.Field, error)

	// UpdateReminderSettings changes the reminder configuration. Allowed in
	// draft and pending: reminder settings are not document content.
	UpdateReminderSettings(
		ctx context.Context,
		ownerID, envelopeID uuid.UUID,
		enabled bool,
		interval domain.ReminderInterval,
	) (*domain.Envelope, error)

	// Send transitions draft→pending, marks signers sent and fans out
	// signature requests. Notification failures do not fail the send.
	Send(ctx context.Context, ownerID, envelopeID uuid.UUID) error

	// GenerateSigningLinks returns each signer's personal signing URL.
	GenerateSigningLinks(ctx context.Context, ownerID, envelopeID uuid.UUID) ([]SigningLink, error)

	// Download serves the final signed document when available, the
	// original upload otherwise.
	Download(ctx context.Context, ownerID, envelopeID uuid.UUID) (*DownloadResult, error)

	// AuditTrail builds the presentation-ready audit trail document.
	AuditTrail(ctx context.Context, ownerID, envelopeID uuid.UUID) (*auditDomain.AuditTrailDocument, error)
}

// SignerView is what a token holder sees: the envelope, their own signer
// record and the fields assigned to them.
type SignerView struct {
	Envelope *domain.Envelope
	Signer   *domain.Signer
	Fields   []*domain.Field
}

// StartSigningResult reports whether the signer must pass SMS verification
// before completing.
type StartSigningResult struct {
	TwoFARequired bool
}

// CompleteSigningInput carries a signer's completion attempt.
type CompleteSigningInput struct {
	Token string
	// Values maps field IDs to raw submitted values.
	Values map[uuid.UUID]string
	// TwoFACode is the SMS verification code, required when the signer has
	// phone verification enabled.
	TwoFACode string
	IPAddress string
	UserAgent string
}

// CompleteSigningResult reports the outcome of a successful completion.
type CompleteSigningResult struct {
	SignatureProof string
	// AllCompleted is true when this signature was the last outstanding one.
	AllCompleted bool
}

// DeclineInput carries a signer's refusal.
type DeclineInput struct {
	Token     string
	Reason    string
	IPAddress string
	UserAgent string
}

// SigningUseCase defines the token-authenticated signer operations.
type SigningUseCase interface {
	// ViewByToken resolves a signing token, marks first views and returns
	// the signer's working set.
	ViewByToken(ctx context.Context, token, ipAddress, userAgent string) (*SignerView, error)

	// OpenNotification records that a notification link was opened.
	OpenNotification(ctx context.Context, token, ipAddress, userAgent string) error

	// StartSigning begins a signing session, triggering SMS verification
	// when the signer has it enabled.
	StartSigning(ctx context.Context, token, ipAddress, userAgent string) (*StartSigningResult, error)

	// CompleteSigning records field values and the signature, computes the
	// signature proof and finalizes the envelope when this was the last
	// outstanding signer.
	CompleteSigning(ctx context.Context, input CompleteSigningInput) (*CompleteSigningResult, error)

	// Decline records the signer's refusal and transitions the envelope to
	// declined.
	Decline(ctx context.Context, input DeclineInput) error
}
