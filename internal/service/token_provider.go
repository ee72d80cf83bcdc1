package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/pkg/utils"
)

// tokenFreshnessMargin is how far from expiry a token must be to count
// as fresh without a second look.
const tokenFreshnessMargin = 14 * 24 * time.Hour

// TokenProvider hands the dispatcher a usable access token for a
// profile. Strategies decide what "usable" means; the dispatcher never
// refreshes tokens itself.
type TokenProvider interface {
	EnsureFresh(ctx context.Context, profile *models.LinkedinProfile) (string, error)
}

// staticTokenProvider decrypts the stored token and returns it as-is.
// There is no working refresh flow against LinkedIn yet, so tokens
// inside the freshness margin are logged and used anyway rather than
// failing closed. A refreshing strategy can replace this one without
// touching the dispatcher.
type staticTokenProvider struct {
	secretKey string
}

func NewStaticTokenProvider(secretKey string) TokenProvider {
	return &staticTokenProvider{secretKey: secretKey}
}

func (p *staticTokenProvider) EnsureFresh(ctx context.Context, profile *models.LinkedinProfile) (string, error) {
	token, err := utils.Decrypt(profile.AccessToken, []byte(p.secretKey))
	if err != nil {
		return "", err
	}

	if time.Until(profile.TokenExpiresAt) < tokenFreshnessMargin {
		slog.Warn("linkedin access token near or past expiry, using anyway",
			"user_id", profile.UserID,
			"expires_at", profile.TokenExpiresAt)
	}

	return token, nil
}
