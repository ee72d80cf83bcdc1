package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/sahilm27/linklater/configs"
	"github.com/sahilm27/linklater/internal/service"
	"github.com/sahilm27/linklater/pkg/utils"
)

type AuthHandler struct {
	cfg config.Config
	s   service.AuthService
}

func NewAuthHandler(cfg config.Config, s service.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, s: s}
}

// ConnectLinkedin starts the OAuth flow. The caller's session token
// rides along as the state parameter so the callback can recover the
// user.
func (h *AuthHandler) ConnectLinkedin(c *fiber.Ctx) error {
	tokenString := c.Cookies(h.cfg.CookieName)
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing session cookie",
		})
	}

	return c.Redirect(h.s.AuthURL(tokenString), fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) ConnectCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid state",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user",
		})
	}

	if err := h.s.HandleCallback(c.Context(), code, userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
