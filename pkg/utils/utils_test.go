package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"my photo (1).png", "my-photo--1-.png"},
		{"../../etc/passwd", "etc-passwd"},
		{"---", "file"},
		{"", "file"},
		{"резюме.pdf", "pdf"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SanitizeFileName(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeFileName(string(long)), 100)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	enc, err := Encrypt([]byte("secret access token"), key)
	require.NoError(t, err)
	assert.NotEqual(t, "secret access token", enc)

	dec, err := Decrypt(enc, key)
	require.NoError(t, err)
	assert.Equal(t, "secret access token", dec)
}

func TestDecryptWrongKey(t *testing.T) {
	enc, err := Encrypt([]byte("secret"), []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	_, err = Decrypt(enc, []byte("another-key-another-key-another!"))
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("hmac-secret", "42", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("hmac-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "linklater", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("hmac-secret", "42", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken("hmac-secret", "42", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("hmac-secret", token)
	assert.Error(t, err)
}
