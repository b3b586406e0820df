package system

import (
	"strings"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/getevo/restify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
)

// Request limits
const (
	RateLimitRequests = 100 // requests per minute
)

var StartupTime = time.Now()

type App struct {
}

func (a App) Register() error {
	var logLevel = settings.Get("APP.LOG_LEVEL", "info").String()
	switch strings.ToLower(logLevel) {
	case "debug", "dev", "development":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarningLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "critical", "crit":
		log.SetLevel(log.CriticalLevel)
	default:
		log.SetLevel(log.WarningLevel)
	}

	var app = evo.GetFiber()

	if settings.Get("APP.LOG_REQUESTS").Bool() {
		app.Use(logger.New())
	}

	// Coarse per-IP limit in front of everything; the finer per-endpoint
	// limits live in the redis app.
	if settings.Get("APP.RATE_LIMIT", true).Bool() {
		app.Use(limiter.New(limiter.Config{
			Max:        RateLimitRequests,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(429).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
				})
			},
		}))
		log.Info("Rate limiting enabled: %d requests per minute", RateLimitRequests)
	}

	restify.SetPrefix("/api/restify")

	return nil
}

func (a App) Router() error {
	var controller Controller
	evo.Get("/health", controller.HealthHandler)
	evo.Get("/uptime", controller.UptimeHandler)

	// Catalogs for any authenticated client
	evo.Get("/api/system/departments", controller.GetDepartments)
	evo.Get("/api/system/task-status", controller.GetTaskStatuses)

	// Department management (HR admin only)
	evo.Use("/api/admin/departments", auth.HRAdminMiddleware)
	evo.Post("/api/admin/departments", controller.CreateDepartment)
	evo.Put("/api/admin/departments/:id", controller.UpdateDepartment)
	evo.Delete("/api/admin/departments/:id", controller.SuspendDepartment)

	// Settings APIs (HR admin only)
	evo.Use("/api/settings", auth.HRAdminMiddleware)
	evo.Get("/api/settings", controller.GetSettings)

	evo.Get("/api/settings/rate-limits", controller.GetRateLimitSettings)
	evo.Get("/api/settings/rate-limits/status", controller.GetRedisStatus)
	evo.Put("/api/settings/rate-limits/:key", controller.UpdateRateLimitSetting)

	evo.Get("/api/settings/:key", controller.GetSetting)
	evo.Put("/api/settings/:key", controller.SetSetting)
	evo.Delete("/api/settings/:key", controller.DeleteSetting)

	evo.Use("/api/restify", auth.HRAdminMiddleware)

	evo.Static("/uploads", "./uploads")

	return nil
}

func (a App) WhenReady() error {
	return nil
}

func (a App) Name() string {
	return "system"
}
