package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/signflow/internal/errors"
)

// TwoFactorService generates and verifies the numeric codes sent over SMS to
// signers who enabled phone verification. Codes are stored hashed; the plain
// code only exists in the outbound SMS.
type TwoFactorService interface {
	// GenerateCode returns a 6-digit plain code and its hash for storage.
	GenerateCode() (plainCode string, codeHash string, err error)

	// VerifyCode checks a submitted code against the stored hash.
	VerifyCode(plainCode, codeHash string) bool
}

// twoFactorService implements TwoFactorService with Argon2id hashing.
type twoFactorService struct {
	hasher *pwdhash.PasswordHasher
}

// NewTwoFactorService creates a TwoFactorService. Uses the interactive policy:
// codes are short-lived and rate-limited upstream, so the cheaper parameters
// are appropriate.
func NewTwoFactorService() (TwoFactorService, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create code hasher")
	}
	return &twoFactorService{hasher: hasher}, nil
}

// GenerateCode creates a uniformly random 6-digit code and its Argon2id hash.
func (s *twoFactorService) GenerateCode() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate verification code")
	}
	plainCode := fmt.Sprintf("%06d", n.Int64())

	codeHash, err := s.hasher.Hash([]byte(plainCode))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to hash verification code")
	}

	return plainCode, codeHash, nil
}

// VerifyCode checks a submitted code against the stored hash.
func (s *twoFactorService) VerifyCode(plainCode, codeHash string) bool {
	ok, err := s.hasher.Verify([]byte(plainCode), codeHash)
	if err != nil {
		return false
	}
	return ok
}
