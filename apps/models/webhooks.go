package models

import (
	"time"

	"github.com/getevo/restify"
)

// Webhook represents a webhook subscription
type Webhook struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	URL         string `gorm:"size:500;not null" json:"url"`
	Secret      string `gorm:"size:255" json:"-"` // Hidden from JSON responses for security
	Enabled     bool   `gorm:"default:1" json:"enabled"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Event subscriptions - boolean flags for each event type
	EventAll              bool `gorm:"default:0" json:"event_all"`
	EventTaskCreated      bool `gorm:"default:0" json:"event_task_created"`
	EventTaskUpdated      bool `gorm:"default:0" json:"event_task_updated"`
	EventTaskStatusChange bool `gorm:"default:0" json:"event_task_status_change"`
	EventTaskCompleted    bool `gorm:"default:0" json:"event_task_completed"`
	EventTaskAssigned     bool `gorm:"default:0" json:"event_task_assigned"`
	EventTaskRecurred     bool `gorm:"default:0" json:"event_task_recurred"`
	EventCommentCreated   bool `gorm:"default:0" json:"event_comment_created"`
	EventTaskDueSoon      bool `gorm:"default:0" json:"event_task_due_soon"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	restify.API
}

// IsSubscribedTo checks if the webhook is subscribed to a specific event
func (w *Webhook) IsSubscribedTo(event string) bool {
	// If subscribed to all events, return true
	if w.EventAll {
		return true
	}

	// Test events always pass through
	if event == WebhookEventWebhookTest {
		return true
	}

	switch event {
	case WebhookEventTaskCreated:
		return w.EventTaskCreated
	case WebhookEventTaskUpdated:
		return w.EventTaskUpdated
	case WebhookEventTaskStatusChange:
		return w.EventTaskStatusChange
	case WebhookEventTaskCompleted:
		return w.EventTaskCompleted
	case WebhookEventTaskAssigned:
		return w.EventTaskAssigned
	case WebhookEventTaskRecurred:
		return w.EventTaskRecurred
	case WebhookEventCommentCreated:
		return w.EventCommentCreated
	case WebhookEventTaskDueSoon:
		return w.EventTaskDueSoon
	default:
		return false
	}
}

// WebhookDelivery represents a webhook delivery attempt
type WebhookDelivery struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	WebhookID uint   `gorm:"not null;index;fk:webhooks" json:"webhook_id"`
	Event     string `gorm:"size:100;not null" json:"event"`
	Success   bool   `gorm:"not null" json:"success"`

	// Request details for debugging
	RequestURL     string `gorm:"size:500" json:"request_url,omitempty"`
	RequestBody    string `gorm:"type:text" json:"request_body,omitempty"`
	RequestHeaders string `gorm:"type:text" json:"request_headers,omitempty"`

	// Response details
	StatusCode int    `gorm:"default:0" json:"status_code"`
	Response   string `gorm:"type:text" json:"response,omitempty"`

	// Duration in milliseconds
	DurationMs int64     `gorm:"default:0" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Webhook Webhook `gorm:"foreignKey:WebhookID;references:ID" json:"webhook,omitempty"`

	restify.API
}

// WebhookEvents defines available webhook event types
const (
	WebhookEventTaskCreated      = "task.created"
	WebhookEventTaskUpdated      = "task.updated"
	WebhookEventTaskStatusChange = "task.status_changed"
	WebhookEventTaskCompleted    = "task.completed"
	WebhookEventTaskAssigned     = "task.assigned"
	WebhookEventTaskRecurred     = "task.recurred"
	WebhookEventCommentCreated   = "comment.created"
	WebhookEventTaskDueSoon      = "task.due_soon"
	WebhookEventWebhookTest      = "webhook.test"
	WebhookEventAll              = "*"
)
