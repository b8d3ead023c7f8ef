// Package service provides the cryptographic helpers of the audit ledger:
// per-signature proof hashes, the display certificate id, and HMAC signing of
// ledger entries.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignatureProofInput carries the values bound together by a signature proof.
// Every input is taken from state recorded at signing time, so the proof can
// be recomputed later from the envelope and the signed audit entry.
type SignatureProofInput struct {
	DocumentHash string
	SignerID     uuid.UUID
	SignerEmail  string
	SignedAt     time.Time
	IPAddress    string
	UserAgent    string
}

// SignatureProof computes the deterministic hash binding a signature event to
// the document, signer, and request context:
//
//	SHA256(documentHash || signerID || signerEmail || signedAt(RFC3339) || ipAddress || userAgent)
//
// The timestamp is rendered in UTC so the proof does not depend on the zone
// the signing process happened to run in.
func SignatureProof(in SignatureProofInput) string {
	h := sha256.New()
	h.Write([]byte(in.DocumentHash))
	h.Write([]byte(in.SignerID.String()))
	h.Write([]byte(in.SignerEmail))
	h.Write([]byte(in.SignedAt.UTC().Format(time.RFC3339)))
	h.Write([]byte(in.IPAddress))
	h.Write([]byte(in.UserAgent))
	return hex.EncodeToString(h.Sum(nil))
}

// CertificateID derives a short formatted fingerprint of an envelope and its
// document hash for human cross-referencing on the audit trail, e.g.
// "A1B2-C3D4-E5F6-A7B8". It is a display convenience only; document validity
// is established by the per-signer signature proofs.
func CertificateID(envelopeID uuid.UUID, documentHash string) string {
	h := sha256.New()
	h.Write(envelopeID[:])
	h.Write([]byte(documentHash))
	digest := hex.EncodeToString(h.Sum(nil))

	groups := make([]string, 4)
	for i := range groups {
		groups[i] = strings.ToUpper(digest[i*4 : i*4+4])
	}
	return fmt.Sprintf("%s-%s-%s-%s", groups[0], groups[1], groups[2], groups[3])
}
