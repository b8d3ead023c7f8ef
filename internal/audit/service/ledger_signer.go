package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/errors"
)

// ErrLedgerSignatureInvalid indicates an entry's stored signature does not
// match its recomputed value, meaning the entry was altered after insert.
var ErrLedgerSignatureInvalid = errors.New("audit ledger signature is invalid")

// LedgerSigner signs and verifies audit ledger entries so after-the-fact
// tampering with the ledger is detectable.
type LedgerSigner interface {
	Sign(entry *auditDomain.AuditLog) ([]byte, error)
	Verify(entry *auditDomain.AuditLog) error
}

// ledgerSigner implements LedgerSigner with HMAC-SHA256 under a key derived
// from the configured ledger secret via HKDF-SHA256.
type ledgerSigner struct {
	signingKey []byte
}

// NewLedgerSigner derives the 32-byte signing key from the ledger secret.
// The HKDF info string is versioned so the algorithm can change without
// invalidating old signatures silently.
func NewLedgerSigner(ledgerKey []byte) (LedgerSigner, error) {
	if len(ledgerKey) == 0 {
		return nil, errors.Wrap(errors.ErrConfiguration, "audit ledger key is empty")
	}

	kdf := hkdf.New(sha256.New, ledgerKey, nil, []byte("envelope-ledger-signing-v1"))
	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, signingKey); err != nil {
		return nil, fmt.Errorf("failed to derive ledger signing key: %w", err)
	}

	return &ledgerSigner{signingKey: signingKey}, nil
}

// canonicalize converts an entry into an unambiguous byte representation.
// Variable-length fields are length-prefixed so no two distinct entries share
// a canonical form.
func (l *ledgerSigner) canonicalize(entry *auditDomain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, entry.ID[:]...)
	buf = append(buf, entry.EnvelopeID[:]...)

	if entry.SignerID != nil {
		buf = append(buf, entry.SignerID[:]...)
	} else {
		buf = append(buf, make([]byte, 16)...)
	}

	buf = appendLengthPrefixed(buf, []byte(string(entry.Action)))
	buf = appendLengthPrefixed(buf, []byte(entry.IPAddress))
	buf = appendLengthPrefixed(buf, []byte(entry.UserAgent))

	detailsJSON, err := auditDomain.EncodeDetails(entry.Details)
	if err != nil {
		return nil, err
	}
	buf = appendLengthPrefixed(buf, detailsJSON)

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(entry.CreatedAt.UnixNano()))
	buf = append(buf, ts...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign computes the HMAC-SHA256 signature of the entry's canonical form.
func (l *ledgerSigner) Sign(entry *auditDomain.AuditLog) ([]byte, error) {
	canonical, err := l.canonicalize(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize audit entry: %w", err)
	}

	mac := hmac.New(sha256.New, l.signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify recomputes the entry's signature and compares it in constant time
// against the stored value.
func (l *ledgerSigner) Verify(entry *auditDomain.AuditLog) error {
	expected, err := l.Sign(entry)
	if err != nil {
		return err
	}
	if !hmac.Equal(expected, entry.Signature) {
		return ErrLedgerSignatureInvalid
	}
	return nil
}
