package usecase

import (
	"context"
	"time"

	"github.com/allisson/signflow/internal/metrics"
)

// reminderUseCaseWithMetrics decorates ReminderUseCase with metrics instrumentation.
type reminderUseCaseWithMetrics struct {
	next    ReminderUseCase
	metrics metrics.BusinessMetrics
}

// NewReminderUseCaseWithMetrics wraps a ReminderUseCase with metrics recording.
func NewReminderUseCaseWithMetrics(useCase ReminderUseCase, m metrics.BusinessMetrics) ReminderUseCase {
	return &reminderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *reminderUseCaseWithMetrics) RunReminderSweep(
	ctx context.Context,
	now time.Time,
) (*SweepReport, error) {
	start := time.Now()
	report, err := r.next.RunReminderSweep(ctx, now)
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordOperation(ctx, "reminder", "reminder_sweep", status)
	r.metrics.RecordDuration(ctx, "reminder", "reminder_sweep", time.Since(start), status)
	return report, err
}

func (r *reminderUseCaseWithMetrics) Start(ctx context.Context) error {
	return r.next.Start(ctx)
}
