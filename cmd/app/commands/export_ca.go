package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/allisson/signflow/internal/app"
	caDomain "github.com/allisson/signflow/internal/ca/domain"
	caService "github.com/allisson/signflow/internal/ca/service"
	"github.com/allisson/signflow/internal/config"
)

// RunExportCA exports the certificate authority chain in PEM format.
// Writes the root, intermediate and signing certificates either to stdout or,
// when outputDir is set, to root.pem, intermediate.pem and signing.pem inside
// that directory. Private keys are never exported; the command exists so
// verifiers can validate signature proofs against the chain of trust.
func RunExportCA(outputDir string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get certificate authority from container
	authority, err := container.Authority()
	if err != nil {
		return fmt.Errorf("failed to initialize certificate authority: %w", err)
	}

	return exportCA(authority, logger, DefaultIO().Writer, outputDir)
}

// exportCA is the dependency-injected core of RunExportCA.
func exportCA(authority caService.Authority, logger *slog.Logger, writer io.Writer, outputDir string) error {
	chain, err := authority.Chain()
	if err != nil {
		return fmt.Errorf("failed to load certificate chain: %w", err)
	}

	certs := []struct {
		name string
		pem  []byte
	}{
		{"root.pem", caDomain.EncodeCertPEM(chain.RootCert)},
		{"intermediate.pem", caDomain.EncodeCertPEM(chain.IntermediateCert)},
		{"signing.pem", caDomain.EncodeCertPEM(chain.SigningCert)},
	}

	if outputDir == "" {
		for _, cert := range certs {
			if _, err := writer.Write(cert.pem); err != nil {
				return fmt.Errorf("failed to write certificate: %w", err)
			}
		}
		return nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, cert := range certs {
		path := filepath.Join(outputDir, cert.name)
		if err := os.WriteFile(path, cert.pem, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cert.name, err)
		}
		logger.Info("certificate exported", slog.String("path", path))
	}

	return nil
}
