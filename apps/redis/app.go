package redis

import (
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/application"
	"github.com/getevo/evo/v2/lib/log"
)

// App represents the Redis application module
type App struct{}

// Register initializes the Redis module
func (App) Register() error {
	return nil
}

// Router attaches the login rate limiter. The remaining endpoint
// limits are checked inside their handlers, which know the key.
func (App) Router() error {
	evo.Use("/api/auth/login", EvoRateLimitMiddleware("auth.login"))
	return nil
}

// WhenReady connects to Redis after application is fully initialized
func (App) WhenReady() error {
	if err := Initialize(); err != nil {
		log.Error("Failed to connect to Redis: %v", err)
		return err
	}

	LoadRateLimitSettings()
	SubscribeToRateLimitReload()
	SubscribeToDepartmentInvalidation()

	return nil
}

// Name returns the app name
func (App) Name() string {
	return "redis"
}

// Shutdown gracefully closes the Redis connection
func (App) Shutdown() error {
	log.Info("Shutting down Redis connection...")
	return Close()
}

var _ application.Application = (*App)(nil)
