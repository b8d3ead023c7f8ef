package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	caDomain "github.com/allisson/signflow/internal/ca/domain"
	caService "github.com/allisson/signflow/internal/ca/service"
	"github.com/allisson/signflow/internal/envelope/domain"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
	"github.com/allisson/signflow/internal/storage"
)

// mockEnvelopeRepository is a mock implementation of EnvelopeRepository for testing.
type mockEnvelopeRepository struct {
	mock.Mock
}

func (m *mockEnvelopeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Envelope), args.Error(1)
}

func (m *mockEnvelopeRepository) Update(ctx context.Context, envelope *domain.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

func (m *mockEnvelopeRepository) UpdateStatusIfPending(
	ctx context.Context,
	id uuid.UUID,
	status domain.EnvelopeStatus,
	completedAt *time.Time,
	updatedAt time.Time,
) (bool, error) {
	args := m.Called(ctx, id, status, completedAt, updatedAt)
	return args.Bool(0), args.Error(1)
}

// mockSignerRepository is a mock implementation of SignerRepository for testing.
type mockSignerRepository struct {
	mock.Mock
}

func (m *mockSignerRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*domain.Signer, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Signer), args.Error(1)
}

// mockFieldRepository is a mock implementation of FieldRepository for testing.
type mockFieldRepository struct {
	mock.Mock
}

func (m *mockFieldRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*domain.Field, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Field), args.Error(1)
}

// mockAuditLogUseCase is a mock implementation of the audit use case for testing.
type mockAuditLogUseCase struct {
	mock.Mock
}

func (m *mockAuditLogUseCase) Append(ctx context.Context, input auditUsecase.AppendInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *mockAuditLogUseCase) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

func (m *mockAuditLogUseCase) VerifyEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockAuditLogUseCase) BuildAuditTrail(
	ctx context.Context,
	envelope *domain.Envelope,
	signers []*domain.Signer,
) (*auditDomain.AuditTrailDocument, error) {
	args := m.Called(ctx, envelope, signers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.AuditTrailDocument), args.Error(1)
}

// mockDocumentAssembler is a mock implementation of DocumentAssembler for testing.
type mockDocumentAssembler struct {
	mock.Mock
}

func (m *mockDocumentAssembler) AssembleSignedDocument(
	ctx context.Context,
	original []byte,
	fields []*domain.Field,
	identity *caDomain.SigningIdentity,
) ([]byte, string, error) {
	args := m.Called(ctx, original, fields, identity)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *mockDocumentAssembler) RenderAuditTrail(
	ctx context.Context,
	trail *auditDomain.AuditTrailDocument,
) ([]byte, error) {
	args := m.Called(ctx, trail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// recordingDispatcher collects dispatched messages in order.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []notificationDomain.Message
}

func (d *recordingDispatcher) Dispatch(
	_ context.Context,
	messages []notificationDomain.Message,
) []notificationDomain.SendResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	results := make([]notificationDomain.SendResult, 0, len(messages))
	for _, msg := range messages {
		d.messages = append(d.messages, msg)
		results = append(results, notificationDomain.SendResult{
			To:        msg.To,
			Template:  msg.Template,
			Delivered: true,
		})
	}
	return results
}

var (
	testAuthorityOnce sync.Once
	testAuthority     caService.Authority
)

// sharedAuthority generates the RSA chain once for the whole test binary.
func sharedAuthority(t *testing.T) caService.Authority {
	t.Helper()
	testAuthorityOnce.Do(func() {
		testAuthority = caService.NewAuthority(caService.Material{})
	})
	return testAuthority
}

type finalizerFixture struct {
	envelopeRepo *mockEnvelopeRepository
	signerRepo   *mockSignerRepository
	fieldRepo    *mockFieldRepository
	auditUseCase *mockAuditLogUseCase
	assembler    *mockDocumentAssembler
	dispatcher   *recordingDispatcher
	blobStore    storage.BlobStore
	finalizer    Finalizer

	envelope *domain.Envelope
	signers  []*domain.Signer
	fields   []*domain.Field
}

func newFinalizerFixture(t *testing.T) *finalizerFixture {
	t.Helper()

	blobStore, err := storage.NewBlobStore(context.Background(), "mem://", 15*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobStore.Close() })

	f := &finalizerFixture{
		envelopeRepo: &mockEnvelopeRepository{},
		signerRepo:   &mockSignerRepository{},
		fieldRepo:    &mockFieldRepository{},
		auditUseCase: &mockAuditLogUseCase{},
		assembler:    &mockDocumentAssembler{},
		dispatcher:   &recordingDispatcher{},
		blobStore:    blobStore,
	}
	f.finalizer = NewFinalizer(
		f.envelopeRepo,
		f.signerRepo,
		f.fieldRepo,
		f.auditUseCase,
		f.blobStore,
		f.dispatcher,
		f.assembler,
		sharedAuthority(t),
		"http://localhost:8080",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	now := time.Now().UTC()
	envelopeID := uuid.Must(uuid.NewV7())
	f.envelope = &domain.Envelope{
		ID:           envelopeID,
		Slug:         "agreement42",
		OwnerID:      uuid.Must(uuid.NewV7()),
		Title:        "Service Agreement",
		Status:       domain.EnvelopeStatusCompleted,
		DocumentKey:  "envelopes/" + envelopeID.String() + "/document.pdf",
		DocumentHash: "b5bb9d8014a0f9b1d61e21e796d78dccdf1352f23cd32812f4850b878ae4944c",
		CompletedAt:  &now,
		CreatedAt:    now.Add(-time.Hour),
		UpdatedAt:    now,
	}
	aliceID := uuid.Must(uuid.NewV7())
	signedAt := now.Add(-time.Minute)
	f.signers = []*domain.Signer{{
		ID:         aliceID,
		EnvelopeID: envelopeID,
		Email:      "alice@example.com",
		Status:     domain.SignerStatusSigned,
		SignedAt:   &signedAt,
	}}
	value := "signed:alice"
	f.fields = []*domain.Field{{
		ID:         uuid.Must(uuid.NewV7()),
		EnvelopeID: envelopeID,
		SignerID:   aliceID,
		Type:       domain.FieldTypeSignature,
		Required:   true,
		Value:      &value,
		FilledAt:   &signedAt,
	}}

	require.NoError(t, blobStore.Put(context.Background(), f.envelope.DocumentKey,
		[]byte("%PDF-1.7 original"), "application/pdf"))

	return f
}

// expectWin wires the conditional update to report this caller as the winner
// and the follow-up loads to succeed.
func (f *finalizerFixture) expectWin(ctx context.Context) {
	f.envelopeRepo.On("UpdateStatusIfPending", ctx, f.envelope.ID, domain.EnvelopeStatusCompleted,
		mock.AnythingOfType("*time.Time"), mock.AnythingOfType("time.Time")).
		Return(true, nil).Once()
	f.envelopeRepo.On("GetByID", ctx, f.envelope.ID).Return(f.envelope, nil).Once()
	f.signerRepo.On("ListByEnvelope", ctx, f.envelope.ID).Return(f.signers, nil).Once()
}

func TestFinalizerFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("produces artifacts, records completion and notifies owner first", func(t *testing.T) {
		f := newFinalizerFixture(t)
		f.expectWin(ctx)

		finalContent := []byte("%PDF-1.7 final")
		finalHash := "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
		trail := &auditDomain.AuditTrailDocument{EnvelopeID: f.envelope.ID, Slug: f.envelope.Slug}
		rendered := []byte(`{"trail":true}`)

		f.fieldRepo.On("ListByEnvelope", ctx, f.envelope.ID).Return(f.fields, nil).Once()
		f.assembler.On("AssembleSignedDocument", ctx, mock.Anything, f.fields,
			mock.AnythingOfType("*domain.SigningIdentity")).
			Return(finalContent, finalHash, nil).Once()
		f.auditUseCase.On("BuildAuditTrail", ctx, f.envelope, f.signers).Return(trail, nil).Once()
		f.assembler.On("RenderAuditTrail", ctx, trail).Return(rendered, nil).Once()

		var updated *domain.Envelope
		f.envelopeRepo.On("Update", ctx, mock.AnythingOfType("*domain.Envelope")).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*domain.Envelope) }).
			Return(nil).Once()

		var appended auditUsecase.AppendInput
		f.auditUseCase.On("Append", ctx, mock.AnythingOfType("usecase.AppendInput")).
			Run(func(args mock.Arguments) { appended = args.Get(1).(auditUsecase.AppendInput) }).
			Return(nil).Once()

		require.NoError(t, f.finalizer.Finalize(ctx, f.envelope.ID))

		require.NotNil(t, updated)
		require.NotNil(t, updated.FinalDocumentKey)
		assert.Equal(t, "envelopes/agreement42/final.pdf", *updated.FinalDocumentKey)
		require.NotNil(t, updated.FinalDocumentHash)
		assert.Equal(t, finalHash, *updated.FinalDocumentHash)
		require.NotNil(t, updated.AuditTrailKey)
		assert.Equal(t, "envelopes/agreement42/audit-trail.pdf", *updated.AuditTrailKey)

		stored, err := f.blobStore.Get(ctx, *updated.FinalDocumentKey)
		require.NoError(t, err)
		assert.Equal(t, finalContent, stored)

		assert.Equal(t, auditDomain.ActionCompleted, appended.Action)
		details, ok := appended.Details.(auditDomain.CompletedDetails)
		require.True(t, ok)
		assert.Equal(t, finalHash, details.FinalDocumentHash)
		assert.Equal(t, 1, details.SignerCount)
		assert.Empty(t, details.Error)

		require.Len(t, f.dispatcher.messages, 2)
		assert.Equal(t, f.envelope.OwnerID.String(), f.dispatcher.messages[0].To)
		assert.Equal(t, "alice@example.com", f.dispatcher.messages[1].To)
		for _, msg := range f.dispatcher.messages {
			assert.Equal(t, notificationDomain.TemplateCompleted, msg.Template)
			assert.Len(t, msg.Attachments, 2)
		}

		f.envelopeRepo.AssertExpectations(t)
		f.assembler.AssertExpectations(t)
		f.auditUseCase.AssertExpectations(t)
	})

	t.Run("losers of the completion race return without side effects", func(t *testing.T) {
		f := newFinalizerFixture(t)
		f.envelopeRepo.On("UpdateStatusIfPending", ctx, f.envelope.ID, domain.EnvelopeStatusCompleted,
			mock.AnythingOfType("*time.Time"), mock.AnythingOfType("time.Time")).
			Return(false, nil).Once()

		require.NoError(t, f.finalizer.Finalize(ctx, f.envelope.ID))

		f.envelopeRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.auditUseCase.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		assert.Empty(t, f.dispatcher.messages)
	})

	t.Run("assembly failure degrades but completion stands", func(t *testing.T) {
		f := newFinalizerFixture(t)
		f.expectWin(ctx)

		f.fieldRepo.On("ListByEnvelope", ctx, f.envelope.ID).Return(f.fields, nil).Once()
		f.assembler.On("AssembleSignedDocument", ctx, mock.Anything, f.fields, mock.Anything).
			Return(nil, "", errors.New("renderer timeout")).Once()

		var updated *domain.Envelope
		f.envelopeRepo.On("Update", ctx, mock.AnythingOfType("*domain.Envelope")).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*domain.Envelope) }).
			Return(nil).Once()

		var appended auditUsecase.AppendInput
		f.auditUseCase.On("Append", ctx, mock.AnythingOfType("usecase.AppendInput")).
			Run(func(args mock.Arguments) { appended = args.Get(1).(auditUsecase.AppendInput) }).
			Return(nil).Once()

		require.NoError(t, f.finalizer.Finalize(ctx, f.envelope.ID))

		require.NotNil(t, updated)
		assert.Nil(t, updated.FinalDocumentKey)
		assert.Nil(t, updated.FinalDocumentHash)
		assert.Nil(t, updated.AuditTrailKey)

		details, ok := appended.Details.(auditDomain.CompletedDetails)
		require.True(t, ok)
		assert.Empty(t, details.FinalDocumentHash)
		assert.Contains(t, details.Error, "document_assembly")
		assert.Equal(t, 1, details.SignerCount)

		// Link-only notifications, still owner first.
		require.Len(t, f.dispatcher.messages, 2)
		for _, msg := range f.dispatcher.messages {
			assert.Empty(t, msg.Attachments)
			assert.Equal(t, "http://localhost:8080/envelopes/agreement42", msg.Link)
		}

		f.auditUseCase.AssertNotCalled(t, "BuildAuditTrail", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("audit trail render failure keeps the final document", func(t *testing.T) {
		f := newFinalizerFixture(t)
		f.expectWin(ctx)

		finalContent := []byte("%PDF-1.7 final")
		finalHash := "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
		trail := &auditDomain.AuditTrailDocument{EnvelopeID: f.envelope.ID}

		f.fieldRepo.On("ListByEnvelope", ctx, f.envelope.ID).Return(f.fields, nil).Once()
		f.assembler.On("AssembleSignedDocument", ctx, mock.Anything, f.fields, mock.Anything).
			Return(finalContent, finalHash, nil).Once()
		f.auditUseCase.On("BuildAuditTrail", ctx, f.envelope, f.signers).Return(trail, nil).Once()
		f.assembler.On("RenderAuditTrail", ctx, trail).
			Return(nil, errors.New("template error")).Once()

		var updated *domain.Envelope
		f.envelopeRepo.On("Update", ctx, mock.AnythingOfType("*domain.Envelope")).
			Run(func(args mock.Arguments) { updated = args.Get(1).(*domain.Envelope) }).
			Return(nil).Once()

		var appended auditUsecase.AppendInput
		f.auditUseCase.On("Append", ctx, mock.AnythingOfType("usecase.AppendInput")).
			Run(func(args mock.Arguments) { appended = args.Get(1).(auditUsecase.AppendInput) }).
			Return(nil).Once()

		require.NoError(t, f.finalizer.Finalize(ctx, f.envelope.ID))

		require.NotNil(t, updated)
		require.NotNil(t, updated.FinalDocumentKey)
		assert.Nil(t, updated.AuditTrailKey)

		details, ok := appended.Details.(auditDomain.CompletedDetails)
		require.True(t, ok)
		assert.Equal(t, finalHash, details.FinalDocumentHash)

		require.Len(t, f.dispatcher.messages, 2)
		for _, msg := range f.dispatcher.messages {
			assert.Len(t, msg.Attachments, 1)
		}
	})

	t.Run("conditional update errors surface to the caller", func(t *testing.T) {
		f := newFinalizerFixture(t)
		f.envelopeRepo.On("UpdateStatusIfPending", ctx, f.envelope.ID, domain.EnvelopeStatusCompleted,
			mock.AnythingOfType("*time.Time"), mock.AnythingOfType("time.Time")).
			Return(false, errors.New("connection reset")).Once()

		err := f.finalizer.Finalize(ctx, f.envelope.ID)
		assert.Error(t, err)
	})
}
