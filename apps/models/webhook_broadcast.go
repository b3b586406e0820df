package models

// WebhookBroadcaster is set by the webhook app at startup. It lives
// here so model hooks can emit events without importing the webhook
// package and closing an import cycle.
var WebhookBroadcaster func(event string, data map[string]any)

// BroadcastWebhook forwards an event to the registered broadcaster.
// A nil broadcaster drops the event, which keeps model writes working
// before the webhook app is wired.
func BroadcastWebhook(event string, data map[string]any) {
	if WebhookBroadcaster != nil {
		WebhookBroadcaster(event, data)
	}
}
