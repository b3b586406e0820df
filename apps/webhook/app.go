package webhook

import (
	"github.com/getevo/evo/v2"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

type App struct{}

func (a App) Register() error {
	// Hand the broadcaster to the models package so GORM hooks can emit
	// events without an import cycle.
	models.WebhookBroadcaster = BroadcastWebhook
	return nil
}

func (a App) Router() error {
	var controller Controller

	// Webhook CRUD is generated by restify on the model; management is
	// HR administrator territory.
	evo.Use("/api/admin/webhooks", auth.HRAdminMiddleware)
	evo.Post("/api/admin/webhooks/:id/test", controller.TestWebhook)
	evo.Get("/api/admin/webhooks/:id/deliveries", controller.ListDeliveries)

	return nil
}

func (a App) WhenReady() error {
	return nil
}

func (a App) Name() string {
	return "webhook"
}
