package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/dms/backend/internal/middleware"
	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/internal/services"
	"github.com/dms/backend/pkg/logger"
	"github.com/dms/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB            *gorm.DB
	Audit         *services.AuditService
	SecureCookies bool
}

func NewAuthHandler(db *gorm.DB, audit *services.AuditService, secureCookies bool) *AuthHandler {
	return &AuthHandler{DB: db, Audit: audit, SecureCookies: secureCookies}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Error creating user")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "Error creating user")
	}

	var existing models.User
	err := h.DB.First(&existing, "username = ?", req.Username).Error
	if err == nil {
		return utils.Error(c, fiber.StatusBadRequest, "Username already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Error(c, fiber.StatusBadRequest, "Error creating user")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Error creating user")
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		// The unique index may still race a concurrent signup.
		return utils.Error(c, fiber.StatusBadRequest, "Username already exists")
	}

	logger.Info("user_signup", map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
	})
	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "user.signup",
		ResourceType: "user",
		ResourceID:   &user.ID,
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)

	var user models.User
	if err := h.DB.First(&user, "username = ?", req.Username).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"username": req.Username,
			"ip":       c.IP(),
		})
		return utils.Error(c, fiber.StatusNotFound, "User not found")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "Invalid password")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.SecureCookies,
		SameSite: fiber.CookieSameSiteNoneMode,
	})

	logger.InfoWithUser(user.ID.String(), "user_login", map[string]interface{}{
		"ip": c.IP(),
	})
	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "user.login",
		ResourceType: "user",
		ResourceID:   &user.ID,
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "User login successful"})
}

func (h *AuthHandler) Signout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.SecureCookies,
		SameSite: fiber.CookieSameSiteNoneMode,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Signed out"})
}
