package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	caService "github.com/allisson/signflow/internal/ca/service"
	"github.com/allisson/signflow/internal/envelope/domain"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
	notificationService "github.com/allisson/signflow/internal/notification/service"
	"github.com/allisson/signflow/internal/storage"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// artifacts is what the collaborator stages managed to produce. On the
// degraded path the document and trail stay nil and failure carries the cause.
type artifacts struct {
	finalDocument []byte
	finalHash     string
	auditTrail    []byte
	failure       *CollaboratorError
}

// finalizer implements Finalizer.
type finalizer struct {
	envelopeRepo EnvelopeRepository
	signerRepo   SignerRepository
	fieldRepo    FieldRepository
	auditUseCase auditUsecase.AuditLogUseCase
	blobStore    storage.BlobStore
	dispatcher   notificationService.Dispatcher
	assembler    DocumentAssembler
	authority    caService.Authority
	baseURL      string
	logger       *slog.Logger
}

// NewFinalizer creates a new Finalizer with the provided dependencies.
func NewFinalizer(
	envelopeRepo EnvelopeRepository,
	signerRepo SignerRepository,
	fieldRepo FieldRepository,
	auditUseCase auditUsecase.AuditLogUseCase,
	blobStore storage.BlobStore,
	dispatcher notificationService.Dispatcher,
	assembler DocumentAssembler,
	authority caService.Authority,
	baseURL string,
	logger *slog.Logger,
) Finalizer {
	return &finalizer{
		envelopeRepo: envelopeRepo,
		signerRepo:   signerRepo,
		fieldRepo:    fieldRepo,
		auditUseCase: auditUseCase,
		blobStore:    blobStore,
		dispatcher:   dispatcher,
		assembler:    assembler,
		authority:    authority,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
	}
}

// finalDocumentKey and auditTrailKey derive deterministic blob keys from the
// envelope slug so re-runs and retrievals agree on locations.
func finalDocumentKey(slug string) string {
	return fmt.Sprintf("envelopes/%s/final.pdf", slug)
}

func auditTrailKey(slug string) string {
	return fmt.Sprintf("envelopes/%s/audit-trail.pdf", slug)
}

// Finalize completes the envelope. The conditional status update runs first:
// whichever caller flips pending to completed wins the race and runs the
// assembly and fan-out; every other caller observes no rows changed and
// returns without side effects. Collaborator failures after the win degrade
// the result (no attachments, error marker in the ledger) but the completed
// status itself is never rolled back.
func (f *finalizer) Finalize(ctx context.Context, envelopeID uuid.UUID) error {
	now := time.Now().UTC()
	won, err := f.envelopeRepo.UpdateStatusIfPending(ctx, envelopeID, domain.EnvelopeStatusCompleted, &now, now)
	if err != nil {
		return apperrors.Wrap(err, "failed to transition envelope to completed")
	}
	if !won {
		return nil
	}

	envelope, err := f.envelopeRepo.GetByID(ctx, envelopeID)
	if err != nil {
		return err
	}
	signers, err := f.signerRepo.ListByEnvelope(ctx, envelopeID)
	if err != nil {
		return err
	}

	result := f.assembleArtifacts(ctx, envelope, signers)

	if result.finalDocument != nil {
		key := finalDocumentKey(envelope.Slug)
		if err := f.blobStore.Put(ctx, key, result.finalDocument, "application/pdf"); err != nil {
			result = artifacts{failure: &CollaboratorError{Stage: "blob_store", Err: err}}
		} else {
			envelope.FinalDocumentKey = &key
			envelope.FinalDocumentHash = &result.finalHash
		}
	}
	if result.auditTrail != nil {
		key := auditTrailKey(envelope.Slug)
		if err := f.blobStore.Put(ctx, key, result.auditTrail, "application/pdf"); err != nil {
			f.logger.Error("failed to store audit trail document",
				slog.String("envelope_id", envelope.ID.String()),
				slog.Any("error", err),
			)
			result.auditTrail = nil
		} else {
			envelope.AuditTrailKey = &key
		}
	}

	envelope.UpdatedAt = time.Now().UTC()
	if err := f.envelopeRepo.Update(ctx, envelope); err != nil {
		return apperrors.Wrap(err, "failed to record final document references")
	}

	details := auditDomain.CompletedDetails{SignerCount: len(signers)}
	if result.failure != nil {
		f.logger.Error("finalization degraded",
			slog.String("envelope_id", envelope.ID.String()),
			slog.String("stage", result.failure.Stage),
			slog.Any("error", result.failure.Err),
		)
		details.Error = result.failure.Error()
	} else {
		details.FinalDocumentHash = result.finalHash
	}
	f.appendAudit(ctx, auditUsecase.AppendInput{
		EnvelopeID: envelope.ID,
		Action:     auditDomain.ActionCompleted,
		Details:    details,
	})

	f.notify(ctx, envelope, signers, result)

	return nil
}

// assembleArtifacts runs the collaborator stages. Any failure switches to the
// degraded result; completion itself already happened and is never undone.
func (f *finalizer) assembleArtifacts(
	ctx context.Context,
	envelope *domain.Envelope,
	signers []*domain.Signer,
) artifacts {
	identity, err := f.authority.SigningIdentity()
	if err != nil {
		return artifacts{failure: &CollaboratorError{Stage: "certificate_authority", Err: err}}
	}

	original, err := f.blobStore.Get(ctx, envelope.DocumentKey)
	if err != nil {
		return artifacts{failure: &CollaboratorError{Stage: "blob_store", Err: err}}
	}
	fields, err := f.fieldRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return artifacts{failure: &CollaboratorError{Stage: "persistence", Err: err}}
	}

	finalDocument, finalHash, err := f.assembler.AssembleSignedDocument(ctx, original, fields, identity)
	if err != nil {
		return artifacts{failure: &CollaboratorError{Stage: "document_assembly", Err: err}}
	}

	result := artifacts{finalDocument: finalDocument, finalHash: finalHash}

	trail, err := f.auditUseCase.BuildAuditTrail(ctx, envelope, signers)
	if err != nil {
		f.logger.Error("failed to build audit trail",
			slog.String("envelope_id", envelope.ID.String()),
			slog.Any("error", err),
		)
		return result
	}
	rendered, err := f.assembler.RenderAuditTrail(ctx, trail)
	if err != nil {
		f.logger.Error("failed to render audit trail",
			slog.String("envelope_id", envelope.ID.String()),
			slog.Any("error", err),
		)
		return result
	}
	result.auditTrail = rendered

	return result
}

// notify fans out completion notifications, owner first, then every signer.
// With artifacts available they go out as attachments; on the degraded path
// recipients get a retrieval link instead. Per-recipient failures are logged
// and never abort the remaining sends.
func (f *finalizer) notify(
	ctx context.Context,
	envelope *domain.Envelope,
	signers []*domain.Signer,
	result artifacts,
) {
	var attachments []notificationDomain.Attachment
	if result.finalDocument != nil {
		attachments = append(attachments, notificationDomain.Attachment{
			Filename:    envelope.Slug + ".pdf",
			ContentType: "application/pdf",
			Data:        result.finalDocument,
		})
	}
	if result.auditTrail != nil {
		attachments = append(attachments, notificationDomain.Attachment{
			Filename:    envelope.Slug + "-audit-trail.pdf",
			ContentType: "application/pdf",
			Data:        result.auditTrail,
		})
	}

	link := f.retrievalLink(ctx, envelope)

	// The owner is addressed by account id; the notification transport
	// resolves it to a deliverable address.
	messages := make([]notificationDomain.Message, 0, len(signers)+1)
	messages = append(messages, notificationDomain.Message{
		To:            envelope.OwnerID.String(),
		Template:      notificationDomain.TemplateCompleted,
		EnvelopeTitle: envelope.Title,
		EnvelopeSlug:  envelope.Slug,
		Link:          link,
		Attachments:   attachments,
	})
	for _, signer := range signers {
		messages = append(messages, notificationDomain.Message{
			To:            signer.Email,
			Template:      notificationDomain.TemplateCompleted,
			EnvelopeTitle: envelope.Title,
			EnvelopeSlug:  envelope.Slug,
			Link:          link,
			Attachments:   attachments,
		})
	}

	for _, sendResult := range f.dispatcher.Dispatch(ctx, messages) {
		if sendResult.Err != nil {
			f.logger.Error("completion notification failed",
				slog.String("envelope_id", envelope.ID.String()),
				slog.String("to", sendResult.To),
				slog.Any("error", sendResult.Err),
			)
		}
	}
}

// retrievalLink prefers a time-limited signed URL for the final document and
// falls back to the envelope page when signing is unavailable or the final
// document does not exist.
func (f *finalizer) retrievalLink(ctx context.Context, envelope *domain.Envelope) string {
	if envelope.FinalDocumentKey != nil {
		url, err := f.blobStore.SignedGetURL(ctx, *envelope.FinalDocumentKey)
		if err == nil {
			return url
		}
	}
	return fmt.Sprintf("%s/envelopes/%s", f.baseURL, envelope.Slug)
}

func (f *finalizer) appendAudit(ctx context.Context, input auditUsecase.AppendInput) {
	if err := f.auditUseCase.Append(ctx, input); err != nil {
		f.logger.Error("failed to append audit log",
			slog.String("envelope_id", input.EnvelopeID.String()),
			slog.String("action", string(input.Action)),
			slog.Any("error", err),
		)
	}
}
