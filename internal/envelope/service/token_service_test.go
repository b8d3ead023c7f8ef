package service

import (
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_GenerateToken(t *testing.T) {
	svc := NewTokenService()

	token, err := svc.GenerateToken()
	require.NoError(t, err)

	// 32 random bytes, base64 URL-encoded without padding
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	// Tokens are unique across calls
	other, err := svc.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTokenService_GenerateSlug(t *testing.T) {
	svc := NewTokenService()

	slug, err := svc.GenerateSlug()
	require.NoError(t, err)

	assert.Len(t, slug, 10)
	assert.Regexp(t, regexp.MustCompile(`^[a-z2-9]+$`), slug)
	// Look-alike characters are excluded from the alphabet
	assert.NotRegexp(t, regexp.MustCompile(`[01lo]`), slug)

	other, err := svc.GenerateSlug()
	require.NoError(t, err)
	assert.NotEqual(t, slug, other)
}

func TestTwoFactorService(t *testing.T) {
	svc, err := NewTwoFactorService()
	require.NoError(t, err)

	plainCode, codeHash, err := svc.GenerateCode()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), plainCode)
	assert.NotEqual(t, plainCode, codeHash)

	assert.True(t, svc.VerifyCode(plainCode, codeHash))
	assert.False(t, svc.VerifyCode("000000", codeHash))
	assert.False(t, svc.VerifyCode(plainCode, "not-a-hash"))
}
