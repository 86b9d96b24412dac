package middleware

import (
	"strings"

	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/internal/services"
	"github.com/dms/backend/pkg/logger"
	"github.com/dms/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const currentUserKey = "currentUser"

// SessionCookieName carries the signed session token in the browser.
const SessionCookieName = "access_token"

type AuthMiddleware struct {
	DB *gorm.DB
}

func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{DB: db}
}

func CORS(frontendURL string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     frontendURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	})
}

// sessionToken reads the session cookie; a Bearer header is accepted as a
// fallback for non-browser clients.
func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookieName); token != "" {
		return token
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == authHeader {
		return ""
	}
	return token
}

// ResolveUser turns the session token into a user record. Any validation or
// lookup failure yields nil; the signature is always verified before the
// payload is trusted.
func (a *AuthMiddleware) ResolveUser(c *fiber.Ctx) *models.User {
	token := sessionToken(c)
	if token == "" {
		return nil
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		logger.Warn("session_token_invalid", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return nil
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		logger.Warn("session_user_not_found", map[string]interface{}{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": claims.UserID,
		})
		return nil
	}

	return &user
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	user := a.ResolveUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	c.Locals(currentUserKey, user)
	c.Locals("userID", user.ID.String())
	return c.Next()
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

type GuardMiddleware struct {
	Access *services.AccessService
}

func NewGuardMiddleware(access *services.AccessService) *GuardMiddleware {
	return &GuardMiddleware{Access: access}
}

// RequireGroupAdmin gates a route on the declarative capability check. The
// group id is read from the route parameter named by param. Runs after
// RequireAuth.
func (g *GuardMiddleware) RequireGroupAdmin(param string, action services.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		groupID, err := uuid.Parse(strings.TrimSpace(c.Params(param)))
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
		}

		if err := g.Access.Authorize(c.Context(), user, services.GroupResource(groupID), action); err != nil {
			return utils.Fail(c, err)
		}
		return c.Next()
	}
}
