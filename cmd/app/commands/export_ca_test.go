package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	caService "github.com/allisson/signflow/internal/ca/service"
)

func TestExportCA(t *testing.T) {
	logger := slog.Default()
	authority := caService.NewAuthority(caService.Material{})

	t.Run("writes-chain-to-writer", func(t *testing.T) {
		var out bytes.Buffer
		err := exportCA(authority, logger, &out, "")

		require.NoError(t, err)
		require.Equal(t, 3, strings.Count(out.String(), "BEGIN CERTIFICATE"))
		require.NotContains(t, out.String(), "PRIVATE KEY")
	})

	t.Run("writes-chain-to-directory", func(t *testing.T) {
		dir := t.TempDir()
		err := exportCA(authority, logger, &bytes.Buffer{}, dir)

		require.NoError(t, err)
		for _, name := range []string{"root.pem", "intermediate.pem", "signing.pem"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			require.Contains(t, string(data), "BEGIN CERTIFICATE")
		}
	})
}
