package handlers

import (
	"github.com/dms/backend/internal/middleware"
	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB       *gorm.DB
	Resolver *middleware.AuthMiddleware
}

func NewUsersHandler(db *gorm.DB, resolver *middleware.AuthMiddleware) *UsersHandler {
	return &UsersHandler{DB: db, Resolver: resolver}
}

// GetUser resolves the session token itself rather than going through
// RequireAuth: a bad or absent token answers 400 on this route.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	user := h.Resolver.ResolveUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid access token")
	}

	return utils.Success(c, fiber.StatusOK, user.Public())
}

func (h *UsersHandler) GetAllUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.Order("username ASC").Find(&users).Error; err != nil {
		return utils.Fail(c, err)
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}

	return utils.Success(c, fiber.StatusOK, public)
}
