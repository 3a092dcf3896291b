package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef"

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken(secret, "ops", time.Hour)
	require.NoError(t, err)

	sub, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", sub)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(secret, "ops", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("another-secret-value", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateToken(secret, "ops", -time.Minute)
	require.NoError(t, err)

	// Negative ttl is treated as no expiry.
	_, err = ParseToken(secret, token)
	require.NoError(t, err)

	token, err = GenerateToken(secret, "ops", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = ParseToken(secret, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseToken(secret, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
