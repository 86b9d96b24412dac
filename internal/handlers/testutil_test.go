package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dms/backend/internal/config"
	"github.com/dms/backend/internal/middleware"
	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/internal/services"
	"github.com/dms/backend/pkg/logger"
	"github.com/dms/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithDrive(t, nil)
}

func setupTestEnvWithDrive(t *testing.T, endpoint *oauth2.Endpoint) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.File{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	accessService := services.NewAccessService(db)
	auditService := services.NewAuditService(db, 10)

	googleCfg := config.GoogleConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:3001/gapi/callback",
	}
	var driveService *services.DriveAuthService
	if endpoint != nil {
		driveService = services.NewDriveAuthServiceWithEndpoint(googleCfg, *endpoint)
	} else {
		driveService = services.NewDriveAuthService(googleCfg)
	}

	authMiddleware := middleware.NewAuthMiddleware(db)
	guard := middleware.NewGuardMiddleware(accessService)

	authHandler := NewAuthHandler(db, auditService, true)
	usersHandler := NewUsersHandler(db, authMiddleware)
	groupsHandler := NewGroupsHandler(db, accessService, auditService)
	gapiHandler := NewGAPIHandler(driveService, "http://localhost:3000", true, true)

	app := fiber.New(fiber.Config{})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	authRoutes := app.Group("/auth")
	authRoutes.Post("/signup", authHandler.Signup)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/signout", authHandler.Signout)

	userRoutes := app.Group("/user")
	userRoutes.Get("/getUser", usersHandler.GetUser)
	userRoutes.Get("/getAllUsers", usersHandler.GetAllUsers)

	groupRoutes := app.Group("/group", authMiddleware.RequireAuth)
	groupRoutes.Post("/create", groupsHandler.Create)
	groupRoutes.Post("/addUser/:groupId", guard.RequireGroupAdmin("groupId", services.ActionManageMembers), groupsHandler.AddUser)
	groupRoutes.Post("/addAdmin/:groupId", guard.RequireGroupAdmin("groupId", services.ActionManageAdmins), groupsHandler.AddAdmin)
	groupRoutes.Get("/getGroups", groupsHandler.GetGroups)
	groupRoutes.Get("/getFiles/:id", groupsHandler.GetFiles)
	groupRoutes.Get("/getUsers/:groupId", groupsHandler.GetUsers)
	groupRoutes.Delete("/removeUser/:groupId", guard.RequireGroupAdmin("groupId", services.ActionManageMembers), groupsHandler.RemoveUser)
	groupRoutes.Post("/addFile/:groupId", guard.RequireGroupAdmin("groupId", services.ActionManageFiles), groupsHandler.AddFile)
	groupRoutes.Get("/getFileUrl/:id", groupsHandler.GetFileURL)
	groupRoutes.Delete("/deleteFile/:groupId/:fileId", guard.RequireGroupAdmin("groupId", services.ActionManageFiles), groupsHandler.DeleteFile)

	gapiRoutes := app.Group("/gapi")
	gapiRoutes.Get("/auth/google", gapiHandler.AuthURL)
	gapiRoutes.Get("/callback", gapiHandler.Callback)

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{Name: middleware.SessionCookieName, Value: token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var body io.Reader
	headers := map[string]string{}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
		headers["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, headers, cookies...)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
