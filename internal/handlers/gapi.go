package handlers

import (
	"strings"

	"github.com/dms/backend/internal/services"
	"github.com/dms/backend/pkg/logger"
	"github.com/dms/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DriveTokenCookieName is readable by client script: the browser uses the
// token to upload straight to the drive.
const DriveTokenCookieName = "google_accessToken"

type GAPIHandler struct {
	Drive         *services.DriveAuthService
	FrontendURL   string
	SecureCookies bool
	Enabled       bool
}

func NewGAPIHandler(drive *services.DriveAuthService, frontendURL string, secureCookies, enabled bool) *GAPIHandler {
	return &GAPIHandler{
		Drive:         drive,
		FrontendURL:   frontendURL,
		SecureCookies: secureCookies,
		Enabled:       enabled,
	}
}

func (h *GAPIHandler) AuthURL(c *fiber.Ctx) error {
	if !h.Enabled {
		return utils.Error(c, fiber.StatusBadRequest, "OAuth failed")
	}

	url := h.Drive.AuthCodeURL(uuid.NewString())
	return utils.Success(c, fiber.StatusOK, url)
}

func (h *GAPIHandler) Callback(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "Authorization error")
	}

	token, err := h.Drive.Exchange(c.Context(), code)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Authorization error")
	}

	c.Cookie(&fiber.Cookie{
		Name:     DriveTokenCookieName,
		Value:    token.AccessToken,
		HTTPOnly: false,
		Secure:   h.SecureCookies,
		SameSite: fiber.CookieSameSiteNoneMode,
	})

	logger.Info("drive_token_issued", map[string]interface{}{
		"has_refresh_token": token.RefreshToken != "",
	})

	return c.Redirect(h.FrontendURL, fiber.StatusFound)
}
