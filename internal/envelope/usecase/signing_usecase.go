package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditService "github.com/allisson/signflow/internal/audit/service"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"
	envelopeService "github.com/allisson/signflow/internal/envelope/service"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
	notificationService "github.com/allisson/signflow/internal/notification/service"
)

// twoFACodeTTL is how long an SMS verification code stays valid.
const twoFACodeTTL = 10 * time.Minute

// signingUseCase implements SigningUseCase.
type signingUseCase struct {
	envelopeRepo     EnvelopeRepository
	signerRepo       SignerRepository
	fieldRepo        FieldRepository
	auditUseCase     auditUsecase.AuditLogUseCase
	dispatcher       notificationService.Dispatcher
	twoFactorService envelopeService.TwoFactorService
	finalizer        Finalizer
	txManager        database.TxManager
	logger           *slog.Logger
}

// NewSigningUseCase creates a new SigningUseCase with the provided dependencies.
func NewSigningUseCase(
	envelopeRepo EnvelopeRepository,
	signerRepo SignerRepository,
	fieldRepo FieldRepository,
	auditUseCase auditUsecase.AuditLogUseCase,
	dispatcher notificationService.Dispatcher,
	twoFactorService envelopeService.TwoFactorService,
	finalizer Finalizer,
	txManager database.TxManager,
	logger *slog.Logger,
) SigningUseCase {
	return &signingUseCase{
		envelopeRepo:     envelopeRepo,
		signerRepo:       signerRepo,
		fieldRepo:        fieldRepo,
		auditUseCase:     auditUseCase,
		dispatcher:       dispatcher,
		twoFactorService: twoFactorService,
		finalizer:        finalizer,
		txManager:        txManager,
		logger:           logger,
	}
}

// resolve loads the signer behind a token and its envelope, lazily expiring
// envelopes whose deadline passed.
func (s *signingUseCase) resolve(ctx context.Context, token string) (*domain.Envelope, *domain.Signer, error) {
	signer, err := s.signerRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	envelope, err := s.envelopeRepo.GetByID(ctx, signer.EnvelopeID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	if envelope.Status == domain.EnvelopeStatusPending && envelope.Expired(now) {
		won, err := s.envelopeRepo.UpdateStatusIfPending(ctx, envelope.ID, domain.EnvelopeStatusExpired, nil, now)
		if err != nil {
			return nil, nil, err
		}
		if won {
			s.appendAudit(ctx, auditUsecase.AppendInput{
				EnvelopeID: envelope.ID,
				Action:     auditDomain.ActionExpired,
			})
		}
		envelope.Status = domain.EnvelopeStatusExpired
	}

	return envelope, signer, nil
}

// requireSignable checks that the envelope still accepts signatures and the
// signer has not reached a terminal sub-state.
func requireSignable(envelope *domain.Envelope, signer *domain.Signer) error {
	if envelope.Status != domain.EnvelopeStatusPending {
		return domain.ErrEnvelopeNotPending
	}
	switch signer.Status {
	case domain.SignerStatusSigned:
		return domain.ErrAlreadySigned
	case domain.SignerStatusDeclined:
		return domain.ErrSignerDeclined
	}
	return nil
}

// ViewByToken resolves a signing token, marks first views and returns the
// signer's working set.
func (s *signingUseCase) ViewByToken(
	ctx context.Context,
	token, ipAddress, userAgent string,
) (*SignerView, error) {
	envelope, signer, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if envelope.Status != domain.EnvelopeStatusPending {
		return nil, domain.ErrEnvelopeNotPending
	}

	// First view promotes the signer out of sent
	if signer.Status == domain.SignerStatusPending || signer.Status == domain.SignerStatusSent {
		signer.Status = domain.SignerStatusViewed
		signer.UpdatedAt = time.Now().UTC()
		if err := s.signerRepo.Update(ctx, signer); err != nil {
			return nil, err
		}
	}

	s.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		SignerID:   &signer.ID,
		Action:     auditDomain.ActionViewed,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})

	fields, err := s.fieldRepo.ListBySigner(ctx, signer.ID)
	if err != nil {
		return nil, err
	}

	return &SignerView{Envelope: envelope, Signer: signer, Fields: fields}, nil
}

// OpenNotification records that a notification link was opened. It never
// mutates workflow state.
func (s *signingUseCase) OpenNotification(ctx context.Context, token, ipAddress, userAgent string) error {
	envelope, signer, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}

	s.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		SignerID:   &signer.ID,
		Action:     auditDomain.ActionOpenedNotification,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
	return nil
}

// StartSigning begins a signing session. When the signer has SMS verification
// enabled, a fresh code is generated and dispatched; completion then requires
// it.
func (s *signingUseCase) StartSigning(
	ctx context.Context,
	token, ipAddress, userAgent string,
) (*StartSigningResult, error) {
	envelope, signer, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := requireSignable(envelope, signer); err != nil {
		return nil, err
	}

	if signer.Phone2FAEnabled {
		code, codeHash, err := s.twoFactorService.GenerateCode()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		expiresAt := now.Add(twoFACodeTTL)
		signer.TwoFACodeHash = codeHash
		signer.TwoFACodeExpiresAt = &expiresAt
		signer.UpdatedAt = now
		if err := s.signerRepo.Update(ctx, signer); err != nil {
			return nil, err
		}

		results := s.dispatcher.Dispatch(ctx, []notificationDomain.Message{{
			To:            signer.Phone2FANumber,
			Template:      notificationDomain.TemplateTwoFactorCode,
			EnvelopeTitle: envelope.Title,
			EnvelopeSlug:  envelope.Slug,
			Code:          code,
		}})
		for _, result := range results {
			if result.Err != nil {
				s.logger.Error("verification code delivery failed",
					slog.String("envelope_id", envelope.ID.String()),
					slog.Any("error", result.Err),
				)
			}
		}
	}

	s.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		SignerID:   &signer.ID,
		Action:     auditDomain.ActionStartedSigning,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})

	return &StartSigningResult{TwoFARequired: signer.Phone2FAEnabled}, nil
}

// CompleteSigning records the signer's field values and signature. The
// finalizer runs when this signature was the last outstanding one; its
// errors are logged, never surfaced to the signer.
func (s *signingUseCase) CompleteSigning(
	ctx context.Context,
	input CompleteSigningInput,
) (*CompleteSigningResult, error) {
	envelope, signer, err := s.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	if err := requireSignable(envelope, signer); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if signer.Phone2FAEnabled {
		expired := signer.TwoFACodeExpiresAt == nil || signer.TwoFACodeExpiresAt.Before(now)
		if expired || !s.twoFactorService.VerifyCode(input.TwoFACode, signer.TwoFACodeHash) {
			return nil, domain.ErrTwoFACodeInvalid
		}
	}

	fields, err := s.fieldRepo.ListBySigner(ctx, signer.ID)
	if err != nil {
		return nil, err
	}

	// Required-field completeness: a submitted value counts only if it fills
	// the field (checkbox marker semantics, whitespace-only is empty).
	missing := make([]uuid.UUID, 0)
	for _, field := range fields {
		value, submitted := input.Values[field.ID]
		filled := field.Filled() || (submitted && field.ValueFills(value))
		if field.Required && !filled {
			missing = append(missing, field.ID)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingRequiredFieldsError{FieldIDs: missing}
	}

	fieldsByID := make(map[uuid.UUID]*domain.Field, len(fields))
	for _, field := range fields {
		fieldsByID[field.ID] = field
	}

	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		for fieldID, value := range input.Values {
			field, ok := fieldsByID[fieldID]
			if !ok {
				// Values for other signers' fields are rejected, not ignored
				return domain.ErrSignerNotFound
			}
			if !field.ValueFills(value) {
				continue
			}
			if err := s.fieldRepo.SetValue(ctx, fieldID, value, now); err != nil {
				return err
			}
		}

		signer.Status = domain.SignerStatusSigned
		signer.SignedAt = &now
		signer.IPAddress = input.IPAddress
		signer.UserAgent = input.UserAgent
		signer.TwoFACodeHash = ""
		signer.TwoFACodeExpiresAt = nil
		signer.UpdatedAt = now
		return s.signerRepo.Update(ctx, signer)
	})
	if err != nil {
		return nil, err
	}

	proof := auditService.SignatureProof(auditService.SignatureProofInput{
		DocumentHash: envelope.DocumentHash,
		SignerID:     signer.ID,
		SignerEmail:  signer.Email,
		SignedAt:     now,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
	})

	signers, err := s.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, err
	}
	allCompleted := true
	for _, other := range signers {
		if other.Status != domain.SignerStatusSigned {
			allCompleted = false
			break
		}
	}

	s.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		SignerID:   &signer.ID,
		Action:     auditDomain.ActionSigned,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		Details: auditDomain.SignedDetails{
			SignerEmail:    signer.Email,
			SignatureProof: proof,
			AllCompleted:   allCompleted,
		},
	})

	if allCompleted {
		if err := s.finalizer.Finalize(ctx, envelope.ID); err != nil {
			s.logger.Error("finalization failed",
				slog.String("envelope_id", envelope.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	return &CompleteSigningResult{SignatureProof: proof, AllCompleted: allCompleted}, nil
}

// Decline records the signer's refusal and transitions the envelope to
// declined.
func (s *signingUseCase) Decline(ctx context.Context, input DeclineInput) error {
	envelope, signer, err := s.resolve(ctx, input.Token)
	if err != nil {
		return err
	}
	if err := requireSignable(envelope, signer); err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		signer.Status = domain.SignerStatusDeclined
		signer.DeclinedAt = &now
		signer.DeclineReason = input.Reason
		signer.IPAddress = input.IPAddress
		signer.UserAgent = input.UserAgent
		signer.UpdatedAt = now
		if err := s.signerRepo.Update(ctx, signer); err != nil {
			return err
		}

		_, err := s.envelopeRepo.UpdateStatusIfPending(ctx, envelope.ID, domain.EnvelopeStatusDeclined, nil, now)
		return err
	})
	if err != nil {
		return err
	}

	s.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		SignerID:   &signer.ID,
		Action:     auditDomain.ActionDeclined,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		Details: auditDomain.DeclinedDetails{
			SignerEmail: signer.Email,
			Reason:      input.Reason,
		},
	})

	return nil
}

func (s *signingUseCase) appendAudit(ctx context.Context, input auditUsecase.AppendInput) {
	if err := s.auditUseCase.Append(ctx, input); err != nil {
		s.logger.Error("failed to append audit log",
			slog.String("envelope_id", input.EnvelopeID.String()),
			slog.String("action", string(input.Action)),
			slog.Any("error", err),
		)
	}
}
