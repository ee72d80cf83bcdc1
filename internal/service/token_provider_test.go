package service

import (
	"context"
	"testing"
	"time"

	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func encryptedToken(t *testing.T, plain string) string {
	t.Helper()
	enc, err := utils.Encrypt([]byte(plain), []byte(testSecretKey))
	require.NoError(t, err)
	return enc
}

func TestEnsureFreshDecryptsStoredToken(t *testing.T) {
	tp := NewStaticTokenProvider(testSecretKey)

	profile := &models.LinkedinProfile{
		UserID:         7,
		AccessToken:    encryptedToken(t, "the-access-token"),
		TokenExpiresAt: time.Now().Add(90 * 24 * time.Hour),
	}

	token, err := tp.EnsureFresh(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, "the-access-token", token)
}

func TestEnsureFreshNearExpiryStillReturnsToken(t *testing.T) {
	tp := NewStaticTokenProvider(testSecretKey)

	profile := &models.LinkedinProfile{
		UserID:         7,
		AccessToken:    encryptedToken(t, "stale-but-usable"),
		TokenExpiresAt: time.Now().Add(24 * time.Hour),
	}

	token, err := tp.EnsureFresh(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, "stale-but-usable", token)
}

func TestEnsureFreshBadCiphertext(t *testing.T) {
	tp := NewStaticTokenProvider(testSecretKey)

	profile := &models.LinkedinProfile{UserID: 7, AccessToken: "not base64 at all!!"}

	_, err := tp.EnsureFresh(context.Background(), profile)
	assert.Error(t, err)
}
