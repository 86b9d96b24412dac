package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dms/backend/internal/config"
	"github.com/dms/backend/internal/database"
	"github.com/dms/backend/internal/handlers"
	"github.com/dms/backend/internal/middleware"
	"github.com/dms/backend/internal/services"
	"github.com/dms/backend/pkg/logger"
	"github.com/dms/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	accessService := services.NewAccessService(db)
	auditService := services.NewAuditService(db, cfg.Audit.QueueSize)
	driveService := services.NewDriveAuthService(cfg.Google)

	authMiddleware := middleware.NewAuthMiddleware(db)
	guard := middleware.NewGuardMiddleware(accessService)

	authHandler := handlers.NewAuthHandler(db, auditService, cfg.Server.SecureCookies)
	usersHandler := handlers.NewUsersHandler(db, authMiddleware)
	groupsHandler := handlers.NewGroupsHandler(db, accessService, auditService)
	gapiHandler := handlers.NewGAPIHandler(driveService, cfg.Server.FrontendURL, cfg.Server.SecureCookies, cfg.Google.ClientID != "")

	app := fiber.New(fiber.Config{})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
