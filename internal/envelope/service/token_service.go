// Package service provides supporting services for the envelope module:
// capability token and slug generation, and SMS verification codes.
package service

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// TokenService generates the unguessable credentials used across the signing
// workflow: signer capability tokens and envelope slugs.
type TokenService interface {
	// GenerateToken creates a signing capability token: 32 random bytes
	// (256 bits of entropy), base64 URL-encoded.
	GenerateToken() (string, error)

	// GenerateSlug creates a short human-shareable envelope identifier.
	// Uniqueness is enforced by the database; collisions surface as conflicts
	// and callers retry.
	GenerateSlug() (string, error)
}

// tokenService implements TokenService using crypto/rand.
type tokenService struct{}

// NewTokenService creates a new TokenService instance.
func NewTokenService() TokenService {
	return &tokenService{}
}

// GenerateToken creates a new cryptographically secure 32-byte random token.
// The token is base64 URL-encoded for use in signing links.
func (t *tokenService) GenerateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate random token")
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// slugAlphabet excludes look-alike characters (0/o, 1/l) since slugs are
// meant to be read aloud and typed.
const slugAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

const slugLength = 10

// GenerateSlug creates a 10-character random slug from the slug alphabet.
func (t *tokenService) GenerateSlug() (string, error) {
	max := big.NewInt(int64(len(slugAlphabet)))
	slug := make([]byte, slugLength)
	for i := range slug {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", apperrors.Wrap(err, "failed to generate random slug")
		}
		slug[i] = slugAlphabet[n.Int64()]
	}
	return string(slug), nil
}
