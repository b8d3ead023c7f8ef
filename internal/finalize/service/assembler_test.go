package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	caService "github.com/allisson/signflow/internal/ca/service"
	"github.com/allisson/signflow/internal/envelope/domain"

	apperrors "github.com/allisson/signflow/internal/errors"
)

func TestAssemblerAssembleSignedDocument(t *testing.T) {
	ctx := context.Background()
	assembler := NewAssembler()

	chain, err := caService.GenerateChain()
	require.NoError(t, err)
	identity := chain.SigningIdentity()

	original := []byte("%PDF-1.7 original")
	value := "signed:alice"
	fields := []*domain.Field{
		{
			ID:       uuid.Must(uuid.NewV7()),
			SignerID: uuid.Must(uuid.NewV7()),
			Type:     domain.FieldTypeSignature,
			Page:     0,
			Value:    &value,
		},
		{
			// unfilled optional field is skipped
			ID:       uuid.Must(uuid.NewV7()),
			SignerID: uuid.Must(uuid.NewV7()),
			Type:     domain.FieldTypeText,
		},
	}

	content, hash, err := assembler.AssembleSignedDocument(ctx, original, fields, identity)
	require.NoError(t, err)

	assert.Contains(t, string(content), "%PDF-1.7 original")
	assert.Contains(t, string(content), "signflow-signature")
	assert.Contains(t, string(content), "signed:alice")
	assert.Contains(t, string(content), identity.Certificate.Subject.CommonName)

	digest := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(digest[:]), hash)
}

func TestAssemblerAssembleSignedDocumentWithoutIdentity(t *testing.T) {
	assembler := NewAssembler()

	_, _, err := assembler.AssembleSignedDocument(context.Background(), []byte("doc"), nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestAssemblerRenderAuditTrail(t *testing.T) {
	assembler := NewAssembler()

	trail := &auditDomain.AuditTrailDocument{
		EnvelopeID:    uuid.Must(uuid.NewV7()),
		Slug:          "agreement42",
		Title:         "Service Agreement",
		CertificateID: "A1B2-C3D4-E5F6-A7B8",
		Signers: []auditDomain.TrailSigner{
			{Email: "alice@example.com", Status: "signed"},
		},
		Events: []auditDomain.TrailEvent{
			{Action: auditDomain.ActionCreated, OccurredAt: time.Now().UTC()},
		},
		GeneratedAt: time.Now().UTC(),
	}

	content, err := assembler.RenderAuditTrail(context.Background(), trail)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "agreement42", decoded["Slug"])
}
