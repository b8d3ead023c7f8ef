package service

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSignatureProof(t *testing.T) {
	signerID := uuid.Must(uuid.NewV7())
	signedAt := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	input := SignatureProofInput{
		DocumentHash: "0f343b0931126a20f133d67c2b018a3b",
		SignerID:     signerID,
		SignerEmail:  "alice@example.com",
		SignedAt:     signedAt,
		IPAddress:    "203.0.113.7",
		UserAgent:    "Mozilla/5.0",
	}

	t.Run("deterministic round-trip from recorded inputs", func(t *testing.T) {
		first := SignatureProof(input)
		second := SignatureProof(input)
		assert.Equal(t, first, second)
		assert.Len(t, first, 64) // hex-encoded SHA-256
	})

	t.Run("matches explicit concatenation", func(t *testing.T) {
		h := sha256.New()
		h.Write([]byte(input.DocumentHash))
		h.Write([]byte(signerID.String()))
		h.Write([]byte("alice@example.com"))
		h.Write([]byte("2026-03-14T15:09:26Z"))
		h.Write([]byte("203.0.113.7"))
		h.Write([]byte("Mozilla/5.0"))
		expected := hex.EncodeToString(h.Sum(nil))

		assert.Equal(t, expected, SignatureProof(input))
	})

	t.Run("zone-offset timestamps produce the same proof", func(t *testing.T) {
		zone := time.FixedZone("UTC+2", 2*3600)
		shifted := input
		shifted.SignedAt = signedAt.In(zone)
		assert.Equal(t, SignatureProof(input), SignatureProof(shifted))
	})

	t.Run("every input participates in the hash", func(t *testing.T) {
		base := SignatureProof(input)

		variants := []SignatureProofInput{input, input, input, input, input}
		variants[0].DocumentHash = "different"
		variants[1].SignerEmail = "bob@example.com"
		variants[2].SignedAt = signedAt.Add(time.Second)
		variants[3].IPAddress = "198.51.100.1"
		variants[4].UserAgent = "curl/8.0"

		for i, v := range variants {
			assert.NotEqual(t, base, SignatureProof(v), "variant %d", i)
		}
	})
}

func TestCertificateID(t *testing.T) {
	envelopeID := uuid.Must(uuid.NewV7())

	id := CertificateID(envelopeID, "abc123")

	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`), id)
	// Stable for the same inputs
	assert.Equal(t, id, CertificateID(envelopeID, "abc123"))
	// Sensitive to both inputs
	assert.NotEqual(t, id, CertificateID(envelopeID, "other"))
	assert.NotEqual(t, id, CertificateID(uuid.Must(uuid.NewV7()), "abc123"))
}
