package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/app"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	"github.com/allisson/signflow/internal/config"
)

// RunVerifyAuditLogs verifies the hash-chained ledger of a single envelope.
// Recomputes every entry's chained signature under the ledger key and reports
// the entries whose signatures no longer match, for tamper detection.
//
// Requirements: Database must be migrated and accessible.
func RunVerifyAuditLogs(ctx context.Context, envelopeID, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get audit log use case from container
	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	return verifyAuditLogs(ctx, auditLogUseCase, logger, DefaultIO().Writer, envelopeID, format)
}

// verifyAuditLogs is the dependency-injected core of RunVerifyAuditLogs.
func verifyAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUsecase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	envelopeID string,
	format string,
) error {
	id, err := uuid.Parse(envelopeID)
	if err != nil {
		return fmt.Errorf("invalid envelope id: %w", err)
	}

	logger.Info("verifying audit logs", slog.String("envelope_id", id.String()))

	// Execute ledger verification
	tampered, err := auditLogUseCase.VerifyEnvelope(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to verify audit logs: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := outputVerifyJSON(writer, id, tampered); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, id, tampered)
	}

	// Log summary
	logger.Info("verification completed",
		slog.String("envelope_id", id.String()),
		slog.Int("tampered", len(tampered)),
	)

	// Exit with error code if integrity check failed
	if len(tampered) > 0 {
		return fmt.Errorf("integrity check failed: %d tampered entry(ies)", len(tampered))
	}

	return nil
}

// outputVerifyText outputs the verification result in human-readable text format.
func outputVerifyText(writer io.Writer, envelopeID uuid.UUID, tampered []uuid.UUID) {
	_, _ = fmt.Fprintf(writer, "Audit Log Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "=================================\n\n")
	_, _ = fmt.Fprintf(writer, "Envelope: %s\n", envelopeID)
	_, _ = fmt.Fprintf(writer, "Tampered: %d\n\n", len(tampered))

	if len(tampered) > 0 {
		_, _ = fmt.Fprintf(writer, "WARNING: %d entry(ies) failed integrity check!\n\n", len(tampered))
		_, _ = fmt.Fprintf(writer, "Tampered Entry IDs:\n")
		for _, id := range tampered {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
		return
	}

	_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
}

// outputVerifyJSON outputs the verification result in JSON format for machine consumption.
func outputVerifyJSON(writer io.Writer, envelopeID uuid.UUID, tampered []uuid.UUID) error {
	result := map[string]interface{}{
		"envelope_id":    envelopeID,
		"tampered_count": len(tampered),
		"tampered_ids":   tampered,
		"passed":         len(tampered) == 0,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
