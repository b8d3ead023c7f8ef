package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/allisson/signflow/internal/app"
	"github.com/allisson/signflow/internal/config"
	reminderUsecase "github.com/allisson/signflow/internal/reminder/usecase"
)

// RunReminderSweep executes a single reminder sweep and prints a report.
// Expires overdue envelopes and sends reminder notifications to pending signers
// of envelopes whose reminder interval has elapsed. Useful for cron-style
// deployments that run the sweep out of process instead of the built-in worker.
//
// Requirements: Database must be migrated and accessible.
func RunReminderSweep(ctx context.Context, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get reminder use case from container
	reminderUseCase, err := container.ReminderUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize reminder use case: %w", err)
	}

	return reminderSweep(ctx, reminderUseCase, logger, DefaultIO().Writer, format)
}

// reminderSweep is the dependency-injected core of RunReminderSweep.
func reminderSweep(
	ctx context.Context,
	reminderUseCase reminderUsecase.ReminderUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	now := time.Now().UTC()
	logger.Info("running reminder sweep", slog.Time("now", now))

	report, err := reminderUseCase.RunReminderSweep(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to run reminder sweep: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := outputSweepJSON(writer, report); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputSweepText(writer, report)
	}

	logger.Info("reminder sweep completed",
		slog.Int("examined", report.Examined),
		slog.Int("reminded", report.Reminded),
		slog.Int("expired", report.Expired),
		slog.Int("reminders_sent", report.RemindersSent),
		slog.Int("failures", report.Failures),
	)

	if report.Failures > 0 {
		return fmt.Errorf("reminder sweep finished with %d failure(s)", report.Failures)
	}

	return nil
}

// outputSweepText outputs the sweep report in human-readable text format.
func outputSweepText(writer io.Writer, report *reminderUsecase.SweepReport) {
	_, _ = fmt.Fprintf(writer, "Reminder Sweep Report\n")
	_, _ = fmt.Fprintf(writer, "=====================\n\n")
	_, _ = fmt.Fprintf(writer, "Examined:        %d\n", report.Examined)
	_, _ = fmt.Fprintf(writer, "Reminded:        %d\n", report.Reminded)
	_, _ = fmt.Fprintf(writer, "Expired:         %d\n", report.Expired)
	_, _ = fmt.Fprintf(writer, "Reminders Sent:  %d\n", report.RemindersSent)
	_, _ = fmt.Fprintf(writer, "Failures:        %d\n", report.Failures)
}

// outputSweepJSON outputs the sweep report in JSON format for machine consumption.
func outputSweepJSON(writer io.Writer, report *reminderUsecase.SweepReport) error {
	result := map[string]interface{}{
		"examined":       report.Examined,
		"reminded":       report.Reminded,
		"expired":        report.Expired,
		"reminders_sent": report.RemindersSent,
		"failures":       report.Failures,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
