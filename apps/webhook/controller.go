package webhook

import (
	"errors"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/lib/response"
	"gorm.io/gorm"
)

type Controller struct{}

// ListDeliveries returns the delivery log of one webhook, newest
// first.
func (c Controller) ListDeliveries(request *evo.Request) any {
	webhookID := request.Param("id").Int()
	if webhookID == 0 {
		return response.Error(response.ErrInvalidInput)
	}

	limit := request.Query("limit").Int()
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var deliveries []models.WebhookDelivery
	err := db.Where("webhook_id = ?", webhookID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return response.Error(response.ErrDatabaseError)
	}
	return response.List(deliveries, len(deliveries))
}

// TestWebhook sends a test payload to the webhook so admins can verify
// the endpoint before subscribing it to real events.
func (c Controller) TestWebhook(request *evo.Request) any {
	webhookID := request.Param("id").Int()
	if webhookID == 0 {
		return response.Error(response.ErrInvalidInput)
	}

	var webhook models.Webhook
	if err := db.First(&webhook, webhookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Error(response.ErrNotFound)
		}
		return response.Error(response.ErrDatabaseError)
	}

	if err := SendWebhook(&webhook, models.WebhookEventWebhookTest, map[string]any{
		"message":    "This is a test webhook",
		"webhook_id": webhook.ID,
	}); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInternalError, "Failed to send test webhook", 500, err.Error()))
	}

	return response.Message("Test webhook sent successfully")
}
