package usecase

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditService "github.com/allisson/signflow/internal/audit/service"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	"github.com/allisson/signflow/internal/database"
	"github.com/allisson/signflow/internal/envelope/domain"
	envelopeService "github.com/allisson/signflow/internal/envelope/service"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
	"github.com/allisson/signflow/internal/storage"
)

// The fakes below are in-memory repository implementations so the use case
// tests can run whole workflow scenarios without a database.

type memEnvelopeRepo struct {
	mu        sync.Mutex
	envelopes map[uuid.UUID]*domain.Envelope
}

func newMemEnvelopeRepo() *memEnvelopeRepo {
	return &memEnvelopeRepo{envelopes: make(map[uuid.UUID]*domain.Envelope)}
}

func (r *memEnvelopeRepo) Create(_ context.Context, envelope *domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *envelope
	r.envelopes[envelope.ID] = &clone
	return nil
}

func (r *memEnvelopeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	envelope, ok := r.envelopes[id]
	if !ok {
		return nil, domain.ErrEnvelopeNotFound
	}
	clone := *envelope
	return &clone, nil
}

func (r *memEnvelopeRepo) GetBySlug(_ context.Context, slug string) (*domain.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, envelope := range r.envelopes {
		if envelope.Slug == slug {
			clone := *envelope
			return &clone, nil
		}
	}
	return nil, domain.ErrEnvelopeNotFound
}

func (r *memEnvelopeRepo) Update(_ context.Context, envelope *domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.envelopes[envelope.ID]; !ok {
		return domain.ErrEnvelopeNotFound
	}
	clone := *envelope
	r.envelopes[envelope.ID] = &clone
	return nil
}

func (r *memEnvelopeRepo) UpdateStatusIfPending(
	_ context.Context,
	id uuid.UUID,
	status domain.EnvelopeStatus,
	completedAt *time.Time,
	updatedAt time.Time,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	envelope, ok := r.envelopes[id]
	if !ok || envelope.Status != domain.EnvelopeStatusPending {
		return false, nil
	}
	envelope.Status = status
	envelope.CompletedAt = completedAt
	envelope.UpdatedAt = updatedAt
	return true, nil
}

func (r *memEnvelopeRepo) UpdateLastReminder(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	envelope, ok := r.envelopes[id]
	if !ok {
		return domain.ErrEnvelopeNotFound
	}
	envelope.LastReminderAt = &at
	envelope.UpdatedAt = at
	return nil
}

func (r *memEnvelopeRepo) ListByOwner(
	_ context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	envelopes := make([]*domain.Envelope, 0)
	for _, envelope := range r.envelopes {
		if envelope.OwnerID == ownerID {
			clone := *envelope
			envelopes = append(envelopes, &clone)
		}
	}
	sort.Slice(envelopes, func(i, j int) bool {
		return envelopes[i].CreatedAt.After(envelopes[j].CreatedAt)
	})
	if offset >= len(envelopes) {
		return []*domain.Envelope{}, nil
	}
	end := offset + limit
	if end > len(envelopes) {
		end = len(envelopes)
	}
	return envelopes[offset:end], nil
}

func (r *memEnvelopeRepo) ListPendingReminderEnabled(_ context.Context) ([]*domain.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	envelopes := make([]*domain.Envelope, 0)
	for _, envelope := range r.envelopes {
		if envelope.Status == domain.EnvelopeStatusPending && envelope.ReminderEnabled {
			clone := *envelope
			envelopes = append(envelopes, &clone)
		}
	}
	sort.Slice(envelopes, func(i, j int) bool {
		return envelopes[i].CreatedAt.Before(envelopes[j].CreatedAt)
	})
	return envelopes, nil
}

func (r *memEnvelopeRepo) ListPendingExpired(_ context.Context, now time.Time) ([]*domain.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	envelopes := make([]*domain.Envelope, 0)
	for _, envelope := range r.envelopes {
		if envelope.Status == domain.EnvelopeStatusPending && envelope.Expired(now) {
			clone := *envelope
			envelopes = append(envelopes, &clone)
		}
	}
	return envelopes, nil
}

type memSignerRepo struct {
	mu      sync.Mutex
	signers map[uuid.UUID]*domain.Signer
}

func newMemSignerRepo() *memSignerRepo {
	return &memSignerRepo{signers: make(map[uuid.UUID]*domain.Signer)}
}

func (r *memSignerRepo) Create(_ context.Context, signer *domain.Signer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.signers {
		if existing.EnvelopeID == signer.EnvelopeID && existing.Email == signer.Email {
			return domain.ErrDuplicateSigner
		}
	}
	clone := *signer
	r.signers[signer.ID] = &clone
	return nil
}

func (r *memSignerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Signer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	signer, ok := r.signers[id]
	if !ok {
		return nil, domain.ErrSignerNotFound
	}
	clone := *signer
	return &clone, nil
}

func (r *memSignerRepo) GetByToken(_ context.Context, token string) (*domain.Signer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, signer := range r.signers {
		if signer.Token == token {
			clone := *signer
			return &clone, nil
		}
	}
	return nil, domain.ErrSignerNotFound
}

func (r *memSignerRepo) ListByEnvelope(_ context.Context, envelopeID uuid.UUID) ([]*domain.Signer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	signers := make([]*domain.Signer, 0)
	for _, signer := range r.signers {
		if signer.EnvelopeID == envelopeID {
			clone := *signer
			signers = append(signers, &clone)
		}
	}
	sort.Slice(signers, func(i, j int) bool { return signers[i].Order < signers[j].Order })
	return signers, nil
}

func (r *memSignerRepo) Update(_ context.Context, signer *domain.Signer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.signers[signer.ID]; !ok {
		return domain.ErrSignerNotFound
	}
	clone := *signer
	r.signers[signer.ID] = &clone
	return nil
}

func (r *memSignerRepo) DeleteByEnvelope(_ context.Context, envelopeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, signer := range r.signers {
		if signer.EnvelopeID == envelopeID {
			delete(r.signers, id)
		}
	}
	return nil
}

func (r *memSignerRepo) MarkAllSent(_ context.Context, envelopeID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, signer := range r.signers {
		if signer.EnvelopeID == envelopeID && signer.Status == domain.SignerStatusPending {
			signer.Status = domain.SignerStatusSent
			signer.UpdatedAt = at
		}
	}
	return nil
}

type memFieldRepo struct {
	mu     sync.Mutex
	fields map[uuid.UUID]*domain.Field
}

func newMemFieldRepo() *memFieldRepo {
	return &memFieldRepo{fields: make(map[uuid.UUID]*domain.Field)}
}

func (r *memFieldRepo) ReplaceForEnvelope(_ context.Context, envelopeID uuid.UUID, fields []*domain.Field) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, field := range r.fields {
		if field.EnvelopeID == envelopeID {
			delete(r.fields, id)
		}
	}
	for _, field := range fields {
		clone := *field
		r.fields[field.ID] = &clone
	}
	return nil
}

func (r *memFieldRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[id]
	if !ok {
		return nil, domain.ErrEnvelopeNotFound
	}
	clone := *field
	return &clone, nil
}

func (r *memFieldRepo) ListByEnvelope(_ context.Context, envelopeID uuid.UUID) ([]*domain.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fields := make([]*domain.Field, 0)
	for _, field := range r.fields {
		if field.EnvelopeID == envelopeID {
			clone := *field
			fields = append(fields, &clone)
		}
	}
	return fields, nil
}

func (r *memFieldRepo) ListBySigner(_ context.Context, signerID uuid.UUID) ([]*domain.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fields := make([]*domain.Field, 0)
	for _, field := range r.fields {
		if field.SignerID == signerID {
			clone := *field
			fields = append(fields, &clone)
		}
	}
	return fields, nil
}

func (r *memFieldRepo) SetValue(_ context.Context, id uuid.UUID, value string, filledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	field, ok := r.fields[id]
	if !ok {
		return domain.ErrEnvelopeNotFound
	}
	field.Value = &value
	field.FilledAt = &filledAt
	return nil
}

// memAuditRepo backs the real audit use case in tests.
type memAuditRepo struct {
	mu   sync.Mutex
	logs []*auditDomain.AuditLog
}

func (r *memAuditRepo) Create(_ context.Context, auditLog *auditDomain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *auditLog
	r.logs = append(r.logs, &clone)
	return nil
}

func (r *memAuditRepo) ListByEnvelope(_ context.Context, envelopeID uuid.UUID) ([]*auditDomain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := make([]*auditDomain.AuditLog, 0)
	for _, log := range r.logs {
		if log.EnvelopeID == envelopeID {
			clone := *log
			logs = append(logs, &clone)
		}
	}
	return logs, nil
}

func (r *memAuditRepo) actions(envelopeID uuid.UUID) []auditDomain.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]auditDomain.Action, 0)
	for _, log := range r.logs {
		if log.EnvelopeID == envelopeID {
			actions = append(actions, log.Action)
		}
	}
	return actions
}

// recordingDispatcher collects dispatched messages.
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

func (d *recordingDispatcher) sent() []notificationDomain.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notificationDomain.Message(nil), d.messages...)
}

// fakeTxManager runs the function directly; the in-memory repos have no
// transaction semantics to honor.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// countingFinalizer records finalize invocations.
type countingFinalizer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *countingFinalizer) Finalize(_ context.Context, envelopeID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, envelopeID)
	return f.err
}

func (f *countingFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testEnv wires real services over in-memory persistence.
type testEnv struct {
	envelopeRepo *memEnvelopeRepo
	signerRepo   *memSignerRepo
	fieldRepo    *memFieldRepo
	auditRepo    *memAuditRepo
	dispatcher   *recordingDispatcher
	finalizer    *countingFinalizer
	blobStore    storage.BlobStore
	envelopeUC   EnvelopeUseCase
	signingUC    SigningUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ledgerSigner, err := auditService.NewLedgerSigner([]byte("test-ledger-key-material"))
	require.NoError(t, err)

	blobStore, err := storage.NewBlobStore(context.Background(), "mem://", 15*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobStore.Close() })

	twoFactorService, err := envelopeService.NewTwoFactorService()
	require.NoError(t, err)

	env := &testEnv{
		envelopeRepo: newMemEnvelopeRepo(),
		signerRepo:   newMemSignerRepo(),
		fieldRepo:    newMemFieldRepo(),
		auditRepo:    &memAuditRepo{},
		dispatcher:   &recordingDispatcher{},
		finalizer:    &countingFinalizer{},
		blobStore:    blobStore,
	}

	auditUC := auditUsecase.NewAuditLogUseCase(env.auditRepo, ledgerSigner)
	var txManager database.TxManager = fakeTxManager{}

	env.envelopeUC = NewEnvelopeUseCase(
		env.envelopeRepo,
		env.signerRepo,
		env.fieldRepo,
		auditUC,
		env.blobStore,
		env.dispatcher,
		envelopeService.NewTokenService(),
		txManager,
		"http://localhost:8080",
		logger,
	)
	env.signingUC = NewSigningUseCase(
		env.envelopeRepo,
		env.signerRepo,
		env.fieldRepo,
		auditUC,
		env.dispatcher,
		twoFactorService,
		env.finalizer,
		txManager,
		logger,
	)
	return env
}
