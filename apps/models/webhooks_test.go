package models

import "testing"

func TestWebhookIsSubscribedTo(t *testing.T) {
	all := &Webhook{EventAll: true}
	if !all.IsSubscribedTo(WebhookEventTaskRecurred) {
		t.Fatal("event_all must subscribe to everything")
	}

	selective := &Webhook{EventTaskCompleted: true, EventTaskDueSoon: true}
	if !selective.IsSubscribedTo(WebhookEventTaskCompleted) {
		t.Fatal("expected subscription to task.completed")
	}
	if !selective.IsSubscribedTo(WebhookEventTaskDueSoon) {
		t.Fatal("expected subscription to task.due_soon")
	}
	if selective.IsSubscribedTo(WebhookEventTaskCreated) {
		t.Fatal("unexpected subscription to task.created")
	}
	if selective.IsSubscribedTo("unknown.event") {
		t.Fatal("unknown events must not match")
	}

	// Test deliveries always go through so admins can verify endpoints.
	if !selective.IsSubscribedTo(WebhookEventWebhookTest) {
		t.Fatal("webhook.test must always be delivered")
	}
}
