// Package service provides a development implementation of the document
// assembly collaborator. Real PDF embedding runs in an external service; this
// implementation stamps the signing identity and field values into a trailer
// so the orchestrator, storage and notification paths stay fully exercisable.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	caDomain "github.com/allisson/signflow/internal/ca/domain"
	"github.com/allisson/signflow/internal/envelope/domain"
	finalizeUsecase "github.com/allisson/signflow/internal/finalize/usecase"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// assembler implements finalize/usecase.DocumentAssembler.
type assembler struct{}

// NewAssembler creates the built-in DocumentAssembler.
func NewAssembler() finalizeUsecase.DocumentAssembler {
	return &assembler{}
}

// AssembleSignedDocument appends a signature trailer to the original bytes:
// the filled field values plus the signing certificate fingerprint and its
// issuance chain subjects. The returned hash is the SHA-256 hex digest of the
// final bytes.
func (a *assembler) AssembleSignedDocument(
	_ context.Context,
	original []byte,
	fields []*domain.Field,
	identity *caDomain.SigningIdentity,
) ([]byte, string, error) {
	if identity == nil || identity.Certificate == nil {
		return nil, "", apperrors.Wrap(apperrors.ErrConfiguration, "signing identity is not available")
	}

	var trailer strings.Builder
	trailer.WriteString("\n%%signflow-signature\n")
	fingerprint := sha256.Sum256(identity.Certificate.Raw)
	fmt.Fprintf(&trailer, "%% certificate: %s (%s)\n",
		identity.Certificate.Subject.CommonName, hex.EncodeToString(fingerprint[:8]))
	for _, cert := range identity.Chain {
		fmt.Fprintf(&trailer, "%% chain: %s\n", cert.Subject.CommonName)
	}
	for _, field := range fields {
		if field.Value == nil {
			continue
		}
		fmt.Fprintf(&trailer, "%% field %s page=%d type=%s value=%q\n",
			field.ID, field.Page, field.Type, *field.Value)
	}
	fmt.Fprintf(&trailer, "%% assembled: %s\n", time.Now().UTC().Format(time.RFC3339))

	content := append(append([]byte{}, original...), []byte(trailer.String())...)
	digest := sha256.Sum256(content)
	return content, hex.EncodeToString(digest[:]), nil
}

// RenderAuditTrail renders the trail document as indented JSON. A production
// deployment swaps this for a PDF renderer behind the same interface.
func (a *assembler) RenderAuditTrail(
	_ context.Context,
	trail *auditDomain.AuditTrailDocument,
) ([]byte, error) {
	content, err := json.MarshalIndent(trail, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to render audit trail")
	}
	return content, nil
}
