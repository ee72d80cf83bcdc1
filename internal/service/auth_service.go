package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/sahilm27/linklater/configs"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/repository"
	"github.com/sahilm27/linklater/internal/transfer"
	"github.com/sahilm27/linklater/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

// Fallback token lifetime when the exchange response carries no expiry.
const defaultTokenLifetime = 60 * 24 * time.Hour

// AuthService runs the LinkedIn OAuth connect flow and maintains the
// per-user publishing profile.
type AuthService interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string, userID int64) error
}

type authService struct {
	cfg cfg.Config
	lp  repository.ProfileRepository
}

func NewAuthService(cfg cfg.Config, lp repository.ProfileRepository) AuthService {
	return &authService{
		cfg: cfg,
		lp:  lp,
	}
}

func (s *authService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.LinkedinClientID,
		ClientSecret: s.cfg.LinkedinClientSecret,
		RedirectURL:  s.cfg.LinkedinRedirectURI,
		Scopes:       []string{"openid", "profile", "w_member_social"},
		Endpoint:     linkedin.Endpoint,
	}
}

func (s *authService) AuthURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

// HandleCallback exchanges the code, fetches the member identity, and
// upserts the profile (single row per user).
func (s *authService) HandleCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}
	if userID == 0 {
		err := errors.New("user not found")
		slog.Info(err.Error())
		return err
	}

	oauthConfig := s.oauthConfig()
	if oauthConfig.ClientID == "" || oauthConfig.ClientSecret == "" || oauthConfig.RedirectURL == "" {
		err := errors.New("oauth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	userInfo, err := getLinkedinUserInfo(oauthConfig.Client(ctx, token))
	if err != nil {
		return err
	}

	encryptedToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultTokenLifetime)
	}

	profile := &models.LinkedinProfile{
		UserID:         userID,
		MemberURN:      "urn:li:person:" + userInfo.Sub,
		MemberName:     userInfo.Name,
		AccessToken:    encryptedToken,
		TokenExpiresAt: expiresAt,
	}

	if _, err := s.lp.Upsert(ctx, profile); err != nil {
		return err
	}

	return nil
}

func getLinkedinUserInfo(client *http.Client) (*transfer.LinkedinUserInfo, error) {
	resp, err := client.Get(linkedinAPIBase + "/v2/userinfo")
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from LinkedIn userinfo: %d", resp.StatusCode)
	}

	var userInfo transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}
