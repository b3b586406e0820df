package auth

import (
	"os"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/args"
	"github.com/getevo/evo/v2/lib/db"
)

type App struct {
}

func (a App) Register() error {
	// Register auth models with GORM
	db.UseModel(User{})
	db.UseModel(UserLoginHistory{})

	// Set user interface for Evo framework
	evo.SetUserInterface(&User{})

	// Check for admin user creation command
	if args.Exists("--create-admin") {
		CreateAdminUser()
		os.Exit(0)
	}

	// Initialize JWT secret after settings are loaded
	InitializeJWTSecret()

	return nil
}

func (a App) Router() error {
	var controller Controller

	// Authentication endpoints
	evo.Post("/api/auth/login", controller.LoginHandler)
	evo.Post("/api/auth/refresh", controller.RefreshHandler)

	// Profile endpoints
	evo.Get("/api/auth/profile", controller.GetProfile)
	evo.Put("/api/auth/profile", controller.EditProfile)

	// API Key management endpoints
	evo.Post("/api/auth/api-key", controller.GenerateAPIKey)
	evo.Delete("/api/auth/api-key", controller.RevokeAPIKey)

	// User management endpoints (HR admin only)
	evo.Use("/api/admin/users", HRAdminMiddleware)
	evo.Get("/api/admin/users", controller.ListUsers)
	evo.Post("/api/admin/users", controller.CreateUser)
	evo.Get("/api/admin/users/:id", controller.GetUser)
	evo.Put("/api/admin/users/:id", controller.UpdateUser)
	evo.Delete("/api/admin/users/:id", controller.DeactivateUser)

	return nil
}

func (a App) WhenReady() error {
	return nil
}

func (a App) Name() string {
	return "auth"
}
