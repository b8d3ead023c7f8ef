// Package usecase implements the reminder scheduler: a periodic sweep over
// pending envelopes that nudges signers who have not reached a terminal state.
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	"github.com/allisson/signflow/internal/envelope/domain"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
	notificationService "github.com/allisson/signflow/internal/notification/service"
)

// Config holds reminder scheduler configuration.
type Config struct {
	// Interval is how often the in-process worker sweeps.
	Interval time.Duration
	// Concurrency bounds how many envelopes one sweep processes in parallel.
	// Sends within one envelope stay sequential through the dispatcher.
	Concurrency int
}

// EnvelopeRepository is the envelope persistence surface the sweep needs.
type EnvelopeRepository interface {
	ListPendingReminderEnabled(ctx context.Context) ([]*domain.Envelope, error)
	UpdateLastReminder(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateStatusIfPending(
		ctx context.Context,
		id uuid.UUID,
		status domain.EnvelopeStatus,
		completedAt *time.Time,
		updatedAt time.Time,
	) (bool, error)
}

// SignerRepository lists an envelope's signers.
type SignerRepository interface {
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Signer, error)
}

// SweepReport summarizes one reminder sweep.
type SweepReport struct {
	// Examined is how many candidate envelopes the sweep looked at.
	Examined int
	// Reminded is how many envelopes got a reminder round.
	Reminded int
	// Expired is how many envelopes the sweep transitioned to expired.
	Expired int
	// RemindersSent counts individual reminder notifications delivered.
	RemindersSent int
	// Failures counts envelopes whose processing errored.
	Failures int
}

// ReminderUseCase defines the reminder scheduler operations.
type ReminderUseCase interface {
	// RunReminderSweep runs one sweep at the given instant and reports what
	// it did. Used directly by the CLI command and by the worker loop.
	RunReminderSweep(ctx context.Context, now time.Time) (*SweepReport, error)

	// Start drives periodic sweeps until the context is cancelled.
	Start(ctx context.Context) error
}

// reminderUseCase implements ReminderUseCase.
type reminderUseCase struct {
	config       Config
	envelopeRepo EnvelopeRepository
	signerRepo   SignerRepository
	auditUseCase auditUsecase.AuditLogUseCase
	dispatcher   notificationService.Dispatcher
	baseURL      string
	logger       *slog.Logger
}

// NewReminderUseCase creates a new ReminderUseCase with the provided dependencies.
func NewReminderUseCase(
	config Config,
	envelopeRepo EnvelopeRepository,
	signerRepo SignerRepository,
	auditUseCase auditUsecase.AuditLogUseCase,
	dispatcher notificationService.Dispatcher,
	baseURL string,
	logger *slog.Logger,
) ReminderUseCase {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &reminderUseCase{
		config:       config,
		envelopeRepo: envelopeRepo,
		signerRepo:   signerRepo,
		auditUseCase: auditUseCase,
		dispatcher:   dispatcher,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (r *reminderUseCase) Start(ctx context.Context) error {
	r.logger.Info("starting reminder worker",
		slog.Duration("interval", r.config.Interval),
		slog.Int("concurrency", r.config.Concurrency),
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			report, err := r.RunReminderSweep(ctx, time.Now().UTC())
			if err != nil {
				r.logger.Error("reminder sweep failed", slog.Any("error", err))
				continue
			}
			r.logger.Info("reminder sweep finished",
				slog.Int("examined", report.Examined),
				slog.Int("reminded", report.Reminded),
				slog.Int("expired", report.Expired),
				slog.Int("reminders_sent", report.RemindersSent),
				slog.Int("failures", report.Failures),
			)
		}
	}
}

// RunReminderSweep processes every pending reminder-enabled envelope.
// Envelopes run in parallel up to the configured limit; per-envelope errors
// are counted, logged and never abort the sweep.
func (r *reminderUseCase) RunReminderSweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	envelopes, err := r.envelopeRepo.ListPendingReminderEnabled(ctx)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Examined: len(envelopes)}
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Concurrency)
	for _, envelope := range envelopes {
		group.Go(func() error {
			outcome, err := r.processEnvelope(groupCtx, envelope, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures++
				r.logger.Error("failed to process envelope reminder",
					slog.String("envelope_id", envelope.ID.String()),
					slog.Any("error", err),
				)
				return nil
			}
			switch {
			case outcome.expired:
				report.Expired++
			case outcome.sent > 0:
				report.Reminded++
				report.RemindersSent += outcome.sent
			}
			return nil
		})
	}
	// Workers report through the shared report, never through group errors.
	_ = group.Wait()

	return report, nil
}

// envelopeOutcome is what processEnvelope did with one envelope.
type envelopeOutcome struct {
	expired bool
	sent    int
}

func (r *reminderUseCase) processEnvelope(
	ctx context.Context,
	envelope *domain.Envelope,
	now time.Time,
) (envelopeOutcome, error) {
	// Envelopes past their deadline are expired instead of reminded. The
	// conditional update keeps a single winner if a signing request races us.
	if envelope.Expired(now) {
		won, err := r.envelopeRepo.UpdateStatusIfPending(ctx, envelope.ID, domain.EnvelopeStatusExpired, nil, now)
		if err != nil {
			return envelopeOutcome{}, err
		}
		if won {
			r.appendAudit(ctx, auditUsecase.AppendInput{
				EnvelopeID: envelope.ID,
				Action:     auditDomain.ActionExpired,
			})
		}
		return envelopeOutcome{expired: true}, nil
	}

	if !envelope.ReminderDue(now) {
		return envelopeOutcome{}, nil
	}

	signers, err := r.signerRepo.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return envelopeOutcome{}, err
	}

	pending := make([]*domain.Signer, 0, len(signers))
	for _, signer := range signers {
		if !signer.Status.Terminal() {
			pending = append(pending, signer)
		}
	}
	if len(pending) == 0 {
		return envelopeOutcome{}, nil
	}

	messages := make([]notificationDomain.Message, 0, len(pending))
	for _, signer := range pending {
		messages = append(messages, notificationDomain.Message{
			To:            signer.Email,
			Template:      notificationDomain.TemplateReminder,
			EnvelopeTitle: envelope.Title,
			EnvelopeSlug:  envelope.Slug,
			Link:          r.baseURL + "/sign/" + signer.Token,
		})
	}

	sent := 0
	results := r.dispatcher.Dispatch(ctx, messages)
	for i, result := range results {
		if result.Err != nil {
			r.logger.Error("reminder delivery failed",
				slog.String("envelope_id", envelope.ID.String()),
				slog.String("to", result.To),
				slog.Any("error", result.Err),
			)
			continue
		}
		sent++
		r.appendAudit(ctx, auditUsecase.AppendInput{
			EnvelopeID: envelope.ID,
			SignerID:   &pending[i].ID,
			Action:     auditDomain.ActionReminderSent,
			Details:    auditDomain.ReminderSentDetails{SignerEmail: pending[i].Email},
		})
	}

	// The round counts as taken even when some sends failed, so the next
	// sweep waits a full interval instead of hammering the provider.
	if err := r.envelopeRepo.UpdateLastReminder(ctx, envelope.ID, now); err != nil {
		return envelopeOutcome{}, err
	}

	return envelopeOutcome{sent: sent}, nil
}

func (r *reminderUseCase) appendAudit(ctx context.Context, input auditUsecase.AppendInput) {
	if err := r.auditUseCase.Append(ctx, input); err != nil {
		r.logger.Error("failed to append audit log",
			slog.String("envelope_id", input.EnvelopeID.String()),
			slog.String("action", string(input.Action)),
			slog.Any("error", err),
		)
	}
}
