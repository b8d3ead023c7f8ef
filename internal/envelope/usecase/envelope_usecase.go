// Package usecase implements business logic orchestration for the envelope
// signing workflow.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"
	envelopeService "github.com/allisson/signflow/internal/envelope/service"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
	notificationService "github.com/allisson/signflow/internal/notification/service"
	"github.com/allisson/signflow/internal/storage"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// envelopeUseCase implements EnvelopeUseCase.
type envelopeUseCase struct {
	envelopeRepo EnvelopeRepository
	signerRepo   SignerRepository
	fieldRepo    FieldRepository
	auditUseCase auditUsecase.AuditLogUseCase
	blobStore    storage.BlobStore
	dispatcher   notificationService.Dispatcher
	tokenService envelopeService.TokenService
	txManager    database.TxManager
	baseURL      string
	logger       *slog.Logger
}

// NewEnvelopeUseCase creates a new EnvelopeUseCase with the provided dependencies.
func NewEnvelopeUseCase(
	envelopeRepo EnvelopeRepository,
	signerRepo SignerRepository,
	fieldRepo FieldRepository,
	auditUseCase auditUsecase.AuditLogUseCase,
	blobStore storage.BlobStore,
	dispatcher notificationService.Dispatcher,
	tokenService envelopeService.TokenService,
	txManager database.TxManager,
	baseURL string,
	logger *slog.Logger,
) EnvelopeUseCase {
	return &envelopeUseCase{
		envelopeRepo: envelopeRepo,
		signerRepo:   signerRepo,
		fieldRepo:    fieldRepo,
		auditUseCase: auditUseCase,
		blobStore:    blobStore,
		dispatcher:   dispatcher,
		tokenService: tokenService,
		txManager:    txManager,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
	}
}

// documentKey builds the blob key of an envelope's original upload.
func documentKey(envelopeID uuid.UUID) string {
	return fmt.Sprintf("envelopes/%s/document.pdf", envelopeID)
}

// SigningURL builds the signer-facing URL that embeds the capability token.
func SigningURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/sign/" + token
}

// Create uploads the document and creates the draft envelope around it.
func (e *envelopeUseCase) Create(ctx context.Context, input CreateEnvelopeInput) (*domain.Envelope, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "title must not be blank")
	}
	if len(input.Document) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "document must not be empty")
	}

	interval := input.ReminderInterval
	if interval == "" {
		interval = domain.ReminderInterval3Days
	}
	if !domain.ValidReminderInterval(interval) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid reminder interval")
	}

	slug, err := e.tokenService.GenerateSlug()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate slug")
	}

	// The hash is computed once at upload and never recomputed afterwards.
	digest := sha256.Sum256(input.Document)

	now := time.Now().UTC()
	envelope := &domain.Envelope{
		ID:               uuid.Must(uuid.NewV7()),
		Slug:             slug,
		OwnerID:          input.OwnerID,
		Title:            input.Title,
		Status:           domain.EnvelopeStatusDraft,
		DocumentHash:     hex.EncodeToString(digest[:]),
		ReminderEnabled:  input.ReminderEnabled,
		ReminderInterval: interval,
		ExpiresAt:        input.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	envelope.DocumentKey = documentKey(envelope.ID)

	if err := e.blobStore.Put(ctx, envelope.DocumentKey, input.Document, "application/pdf"); err != nil {
		return nil, apperrors.Wrap(err, "failed to store document")
	}

	if err := e.envelopeRepo.Create(ctx, envelope); err != nil {
		return nil, err
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionCreated,
	})

	return envelope, nil
}

// getOwned loads an envelope and enforces ownership. A foreign envelope is
// reported as not found rather than forbidden to avoid confirming existence.
func (e *envelopeUseCase) getOwned(ctx context.Context, ownerID, envelopeID uuid.UUID) (*domain.Envelope, error) {
	envelope, err := e.envelopeRepo.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.OwnerID != ownerID {
		return nil, domain.ErrEnvelopeNotFound
	}
	return envelope, nil
}

func (e *envelopeUseCase) detail(ctx context.Context, envelope *domain.Envelope) (*EnvelopeDetail, error) {
	signers, err := e.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}
	fields, err := e.fieldRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}
	return &EnvelopeDetail{Envelope: envelope, Signers: signers, Fields: fields}, nil
}

// Get retrieves an envelope with signers and fields, scoped to its owner.
func (e *envelopeUseCase) Get(ctx context.Context, ownerID, envelopeID uuid.UUID) (*EnvelopeDetail, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	return e.detail(ctx, envelope)
}

// GetBySlug retrieves an envelope by slug, scoped to its owner.
func (e *envelopeUseCase) GetBySlug(ctx context.Context, ownerID uuid.UUID, slug string) (*EnvelopeDetail, error) {
	envelope, err := e.envelopeRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if envelope.OwnerID != ownerID {
		return nil, domain.ErrEnvelopeNotFound
	}
	return e.detail(ctx, envelope)
}

// List retrieves the owner's envelopes newest-first with pagination.
func (e *envelopeUseCase) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Envelope, error) {
	return e.envelopeRepo.ListByOwner(ctx, ownerID, offset, limit)
}

func (e *envelopeUseCase) buildSigner(envelopeID uuid.UUID, input SignerInput, order int) (*domain.Signer, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "signer email must not be blank")
	}
	if input.Phone2FAEnabled && strings.TrimSpace(input.Phone2FANumber) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "phone verification requires a phone number")
	}

	token, err := e.tokenService.GenerateToken()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate signer token")
	}

	now := time.Now().UTC()
	return &domain.Signer{
		ID:              uuid.Must(uuid.NewV7()),
		EnvelopeID:      envelopeID,
		Email:           email,
		Name:            strings.TrimSpace(input.Name),
		Order:           order,
		Color:           domain.ColorForOrder(order),
		Token:           token,
		Status:          domain.SignerStatusPending,
		Phone2FAEnabled: input.Phone2FAEnabled,
		Phone2FANumber:  strings.TrimSpace(input.Phone2FANumber),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// AddSigner attaches a signer to a draft envelope.
func (e *envelopeUseCase) AddSigner(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	input SignerInput,
) (*domain.Signer, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	if !envelope.Mutable() {
		return nil, domain.ErrEnvelopeNotDraft
	}

	existing, err := e.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(input.Email)
	for _, signer := range existing {
		if signer.Email == email {
			return nil, domain.ErrDuplicateSigner
		}
	}

	signer, err := e.buildSigner(envelope.ID, input, len(existing))
	if err != nil {
		return nil, err
	}
	if err := e.signerRepo.Create(ctx, signer); err != nil {
		return nil, err
	}
	return signer, nil
}

// ReplaceSigners swaps the whole signer set of a draft envelope. Tokens are
// regenerated, so previously shared links stop resolving; the field layout is
// discarded along with the old signers.
func (e *envelopeUseCase) ReplaceSigners(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	inputs []SignerInput,
) ([]*domain.Signer, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	if !envelope.Mutable() {
		return nil, domain.ErrEnvelopeNotDraft
	}

	seen := make(map[string]struct{}, len(inputs))
	signers := make([]*domain.Signer, 0, len(inputs))
	for order, input := range inputs {
		signer, err := e.buildSigner(envelope.ID, input, order)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[signer.Email]; dup {
			return nil, domain.ErrDuplicateSigner
		}
		seen[signer.Email] = struct{}{}
		signers = append(signers, signer)
	}

	err = e.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := e.signerRepo.DeleteByEnvelope(ctx, envelope.ID); err != nil {
			return err
		}
		for _, signer := range signers {
			if err := e.signerRepo.Create(ctx, signer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionEdited,
		Details:    auditDomain.EditedDetails{What: "signers"},
	})

	return signers, nil
}

// SetFields swaps the whole field layout of a draft envelope.
func (e *envelopeUseCase) SetFields(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	inputs []FieldInput,
) ([]*domain.Field, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	if !envelope.Mutable() {
		return nil, domain.ErrEnvelopeNotDraft
	}

	signers, err := e.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}
	signerIDs := make(map[uuid.UUID]struct{}, len(signers))
	for _, signer := range signers {
		signerIDs[signer.ID] = struct{}{}
	}

	now := time.Now().UTC()
	fields := make([]*domain.Field, 0, len(inputs))
	for _, input := range inputs {
		if _, ok := signerIDs[input.SignerID]; !ok {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "field assigned to unknown signer")
		}
		if !domain.ValidFieldType(input.Type) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid field type")
		}
		if !unitInterval(input.X) || !unitInterval(input.Y) ||
			!unitInterval(input.Width) || !unitInterval(input.Height) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "field coordinates must be fractions between 0 and 1")
		}
		if input.Page < 0 {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "field page must not be negative")
		}

		fields = append(fields, &domain.Field{
			ID:          uuid.Must(uuid.NewV7()),
			EnvelopeID:  envelope.ID,
			SignerID:    input.SignerID,
			Type:        input.Type,
			Page:        input.Page,
			X:           input.X,
			Y:           input.Y,
			Width:       input.Width,
			Height:      input.Height,
			Required:    input.Required,
			Label:       input.Label,
			Placeholder: input.Placeholder,
			CreatedAt:   now,
		})
	}

	err = e.txManager.WithTx(ctx, func(ctx context.Context) error {
		return e.fieldRepo.ReplaceForEnvelope(ctx, envelope.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionEdited,
		Details:    auditDomain.EditedDetails{What: "fields"},
	})

	return fields, nil
}

// UpdateReminderSettings changes the reminder configuration in draft or pending.
func (e *envelopeUseCase) UpdateReminderSettings(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	enabled bool,
	interval domain.ReminderInterval,
) (*domain.Envelope, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.Status != domain.EnvelopeStatusDraft && envelope.Status != domain.EnvelopeStatusPending {
		return nil, apperrors.Wrap(apperrors.ErrInvalidState, "envelope is no longer active")
	}
	if !domain.ValidReminderInterval(interval) {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid reminder interval")
	}

	envelope.ReminderEnabled = enabled
	envelope.ReminderInterval = interval
	envelope.UpdatedAt = time.Now().UTC()
	if err := e.envelopeRepo.Update(ctx, envelope); err != nil {
		return nil, err
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionEdited,
		Details:    auditDomain.EditedDetails{What: "reminder_settings"},
	})

	return envelope, nil
}

// Send transitions draft→pending and fans out signature requests.
func (e *envelopeUseCase) Send(ctx context.Context, ownerID, envelopeID uuid.UUID) error {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return err
	}
	if envelope.Status != domain.EnvelopeStatusDraft {
		return domain.ErrAlreadySent
	}

	signers, err := e.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return err
	}
	if len(signers) == 0 {
		return domain.ErrNoSigners
	}
	fields, err := e.fieldRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return domain.ErrNoFields
	}

	now := time.Now().UTC()
	err = e.txManager.WithTx(ctx, func(ctx context.Context) error {
		envelope.Status = domain.EnvelopeStatusPending
		envelope.UpdatedAt = now
		if err := e.envelopeRepo.Update(ctx, envelope); err != nil {
			return err
		}
		return e.signerRepo.MarkAllSent(ctx, envelope.ID, now)
	})
	if err != nil {
		return err
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionSent,
		Details: auditDomain.SentDetails{
			SignerCount: len(signers),
			FieldCount:  len(fields),
		},
	})

	// Notification failures never fail the send itself.
	messages := make([]notificationDomain.Message, 0, len(signers))
	for _, signer := range signers {
		messages = append(messages, notificationDomain.Message{
			To:            signer.Email,
			Template:      notificationDomain.TemplateSignatureRequest,
			EnvelopeTitle: envelope.Title,
			EnvelopeSlug:  envelope.Slug,
			Link:          SigningURL(e.baseURL, signer.Token),
		})
	}
	e.dispatchLogged(ctx, envelope.ID, messages)

	return nil
}

// GenerateSigningLinks returns each signer's personal signing URL.
func (e *envelopeUseCase) GenerateSigningLinks(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) ([]SigningLink, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.Status != domain.EnvelopeStatusDraft && envelope.Status != domain.EnvelopeStatusPending {
		return nil, apperrors.Wrap(apperrors.ErrInvalidState, "envelope is no longer active")
	}

	signers, err := e.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}

	links := make([]SigningLink, 0, len(signers))
	for _, signer := range signers {
		links = append(links, SigningLink{
			SignerID: signer.ID,
			Email:    signer.Email,
			URL:      SigningURL(e.baseURL, signer.Token),
		})
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionLinksGenerated,
		Details:    auditDomain.LinksGeneratedDetails{SignerCount: len(links)},
	})

	return links, nil
}

// Download serves the final signed document when available, the original
// upload otherwise.
func (e *envelopeUseCase) Download(ctx context.Context, ownerID, envelopeID uuid.UUID) (*DownloadResult, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}

	key := envelope.DocumentKey
	document := "original"
	final := false
	if envelope.Status == domain.EnvelopeStatusCompleted && envelope.FinalDocumentKey != nil {
		key = *envelope.FinalDocumentKey
		document = "final"
		final = true
	}

	content, err := e.blobStore.Get(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to retrieve document")
	}

	e.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionDownloaded,
		Details:    auditDomain.DownloadedDetails{Document: document},
	})

	return &DownloadResult{
		Content:     content,
		ContentType: "application/pdf",
		FileName:    envelope.Slug + ".pdf",
		Final:       final,
	}, nil
}

// AuditTrail builds the presentation-ready audit trail document.
func (e *envelopeUseCase) AuditTrail(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (*auditDomain.AuditTrailDocument, error) {
	envelope, err := e.getOwned(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	signers, err := e.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}
	return e.auditUseCase.BuildAuditTrail(ctx, envelope, signers)
}

// appendAudit records a ledger entry without gating the caller: failures are
// logged at error level and swallowed.
func (e *envelopeUseCase) appendAudit(ctx context.Context, input auditUsecase.AppendInput) {
	if err := e.auditUseCase.Append(ctx, input); err != nil {
		e.logger.Error("failed to append audit log",
			slog.String("envelope_id", input.EnvelopeID.String()),
			slog.String("action", string(input.Action)),
			slog.Any("error", err),
		)
	}
}

// dispatchLogged sends a notification batch and logs per-recipient failures.
func (e *envelopeUseCase) dispatchLogged(
	ctx context.Context,
	envelopeID uuid.UUID,
	messages []notificationDomain.Message,
) []notificationDomain.SendResult {
	results := e.dispatcher.Dispatch(ctx, messages)
	for _, result := range results {
		if result.Err != nil {
			e.logger.Error("notification delivery failed",
				slog.String("envelope_id", envelopeID.String()),
				slog.String("to", result.To),
				slog.Any("error", result.Err),
			)
		}
	}
	return results
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
