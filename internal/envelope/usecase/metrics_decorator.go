package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/envelope/domain"
	"github.com/allisson/signflow/internal/metrics"
)

// envelopeUseCaseWithMetrics decorates EnvelopeUseCase with metrics instrumentation.
type envelopeUseCaseWithMetrics struct {
	next    EnvelopeUseCase
	metrics metrics.BusinessMetrics
}

// NewEnvelopeUseCaseWithMetrics wraps an EnvelopeUseCase with metrics recording.
func NewEnvelopeUseCaseWithMetrics(useCase EnvelopeUseCase, m metrics.BusinessMetrics) EnvelopeUseCase {
	return &envelopeUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *envelopeUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordOperation(ctx, "envelope", operation, status)
	e.metrics.RecordDuration(ctx, "envelope", operation, time.Since(start), status)
}

func (e *envelopeUseCaseWithMetrics) Create(ctx context.Context, input CreateEnvelopeInput) (*domain.Envelope, error) {
	start := time.Now()
	envelope, err := e.next.Create(ctx, input)
	e.record(ctx, "envelope_create", start, err)
	return envelope, err
}

func (e *envelopeUseCaseWithMetrics) Get(ctx context.Context, ownerID, envelopeID uuid.UUID) (*EnvelopeDetail, error) {
	start := time.Now()
	detail, err := e.next.Get(ctx, ownerID, envelopeID)
	e.record(ctx, "envelope_get", start, err)
	return detail, err
}

func (e *envelopeUseCaseWithMetrics) GetBySlug(ctx context.Context, ownerID uuid.UUID, slug string) (*EnvelopeDetail, error) {
	start := time.Now()
	detail, err := e.next.GetBySlug(ctx, ownerID, slug)
	e.record(ctx, "envelope_get", start, err)
	return detail, err
}

func (e *envelopeUseCaseWithMetrics) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Envelope, error) {
	start := time.Now()
	envelopes, err := e.next.List(ctx, ownerID, offset, limit)
	e.record(ctx, "envelope_list", start, err)
	return envelopes, err
}

func (e *envelopeUseCaseWithMetrics) AddSigner(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	input SignerInput,
) (*domain.Signer, error) {
	start := time.Now()
	signer, err := e.next.AddSigner(ctx, ownerID, envelopeID, input)
	e.record(ctx, "signer_add", start, err)
	return signer, err
}

func (e *envelopeUseCaseWithMetrics) ReplaceSigners(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	inputs []SignerInput,
) ([]*domain.Signer, error) {
	start := time.Now()
	signers, err := e.next.ReplaceSigners(ctx, ownerID, envelopeID, inputs)
	e.record(ctx, "signer_replace", start, err)
	return signers, err
}

func (e *envelopeUseCaseWithMetrics) SetFields(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	inputs []FieldInput,
) ([]*domain.Field, error) {
	start := time.Now()
	fields, err := e.next.SetFields(ctx, ownerID, envelopeID, inputs)
	e.record(ctx, "field_set", start, err)
	return fields, err
}

func (e *envelopeUseCaseWithMetrics) UpdateReminderSettings(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	enabled bool,
	interval domain.ReminderInterval,
) (*domain.Envelope, error) {
	start := time.Now()
	envelope, err := e.next.UpdateReminderSettings(ctx, ownerID, envelopeID, enabled, interval)
	e.record(ctx, "reminder_settings_update", start, err)
	return envelope, err
}

func (e *envelopeUseCaseWithMetrics) Send(ctx context.Context, ownerID, envelopeID uuid.UUID) error {
	start := time.Now()
	err := e.next.Send(ctx, ownerID, envelopeID)
	e.record(ctx, "envelope_send", start, err)
	return err
}

func (e *envelopeUseCaseWithMetrics) GenerateSigningLinks(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) ([]SigningLink, error) {
	start := time.Now()
	links, err := e.next.GenerateSigningLinks(ctx, ownerID, envelopeID)
	e.record(ctx, "links_generate", start, err)
	return links, err
}

func (e *envelopeUseCaseWithMetrics) Download(ctx context.Context, ownerID, envelopeID uuid.UUID) (*DownloadResult, error) {
	start := time.Now()
	result, err := e.next.Download(ctx, ownerID, envelopeID)
	e.record(ctx, "envelope_download", start, err)
	return result, err
}

func (e *envelopeUseCaseWithMetrics) AuditTrail(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (*auditDomain.AuditTrailDocument, error) {
	start := time.Now()
	trail, err := e.next.AuditTrail(ctx, ownerID, envelopeID)
	e.record(ctx, "audit_trail", start, err)
	return trail, err
}

// signingUseCaseWithMetrics decorates SigningUseCase with metrics instrumentation.
type signingUseCaseWithMetrics struct {
	next    SigningUseCase
	metrics metrics.BusinessMetrics
}

// NewSigningUseCaseWithMetrics wraps a SigningUseCase with metrics recording.
func NewSigningUseCaseWithMetrics(useCase SigningUseCase, m metrics.BusinessMetrics) SigningUseCase {
	return &signingUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *signingUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "signing", operation, status)
	s.metrics.RecordDuration(ctx, "signing", operation, time.Since(start), status)
}

func (s *signingUseCaseWithMetrics) ViewByToken(
	ctx context.Context,
	token, ipAddress, userAgent string,
) (*SignerView, error) {
	start := time.Now()
	view, err := s.next.ViewByToken(ctx, token, ipAddress, userAgent)
	s.record(ctx, "view", start, err)
	return view, err
}

func (s *signingUseCaseWithMetrics) OpenNotification(ctx context.Context, token, ipAddress, userAgent string) error {
	start := time.Now()
	err := s.next.OpenNotification(ctx, token, ipAddress, userAgent)
	s.record(ctx, "open_notification", start, err)
	return err
}

func (s *signingUseCaseWithMetrics) StartSigning(
	ctx context.Context,
	token, ipAddress, userAgent string,
) (*StartSigningResult, error) {
	start := time.Now()
	result, err := s.next.StartSigning(ctx, token, ipAddress, userAgent)
	s.record(ctx, "start", start, err)
	return result, err
}

func (s *signingUseCaseWithMetrics) CompleteSigning(
	ctx context.Context,
	input CompleteSigningInput,
) (*CompleteSigningResult, error) {
	start := time.Now()
	result, err := s.next.CompleteSigning(ctx, input)
	s.record(ctx, "complete", start, err)
	return result, err
}

func (s *signingUseCaseWithMetrics) Decline(ctx context.Context, input DeclineInput) error {
	start := time.Now()
	err := s.next.Decline(ctx, input)
	s.record(ctx, "decline", start, err)
	return err
}
