package tasks

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/apps/nats"
	"github.com/taskdesk/taskdesk-backend/apps/redis"
)

type App struct{}

var (
	defaultService *Service
	serviceOnce    sync.Once
)

// DefaultService returns the process-wide task service, wired to the
// database and the event fabric. Tests build their own Service with
// NewService instead.
func DefaultService() *Service {
	serviceOnce.Do(func() {
		defaultService = NewService(NewGormRepository(), models.DBDepartmentSource{}, eventNotifier{})
	})
	return defaultService
}

// UseDepartmentSource swaps the department source of the default
// service, letting infrastructure layer a cache over it.
func UseDepartmentSource(source models.DepartmentSource) {
	DefaultService().departments = source
}

// eventNotifier fans task events out to NATS and registered webhooks.
// Creation and plain updates are already broadcast by the model hooks,
// so it only forwards the semantic events the hooks cannot see.
type eventNotifier struct{}

func (eventNotifier) TaskEvent(event string, task *models.Task, metadata map[string]any) {
	if event == models.WebhookEventTaskCreated || event == models.WebhookEventTaskUpdated {
		return
	}
	payload := map[string]any{
		"task": task.ToWebhookData(),
	}
	for key, value := range metadata {
		payload[key] = value
	}
	go func() {
		data, _ := json.Marshal(map[string]any{
			"event": event,
			"task":  task,
			"meta":  metadata,
		})
		if err := nats.Publish(fmt.Sprintf("task.%d", task.ID), data); err != nil {
			log.Error("Failed to publish %s to NATS: %v", event, err)
		}
	}()
	go models.BroadcastWebhook(event, payload)
}

func (a App) Register() error {
	return nil
}

func (a App) Router() error {
	var controller Controller
	var dashboards DashboardController

	evo.Post("/api/tasks", controller.CreateTask)
	evo.Get("/api/tasks", controller.ListTasks)
	evo.Get("/api/tasks/:id", controller.GetTask)

	evo.Put("/api/tasks/:id/title", controller.UpdateTitle)
	evo.Put("/api/tasks/:id/description", controller.UpdateDescription)
	evo.Put("/api/tasks/:id/priority", controller.UpdatePriority)
	evo.Put("/api/tasks/:id/deadline", controller.UpdateDueDate)
	evo.Put("/api/tasks/:id/status", controller.UpdateStatus)
	evo.Put("/api/tasks/:id/recurring", controller.UpdateRecurring)

	evo.Post("/api/tasks/:id/tags", controller.AddTag)
	evo.Delete("/api/tasks/:id/tags/:name", controller.RemoveTag)

	evo.Post("/api/tasks/:id/assignees", controller.AddAssignee)
	evo.Delete("/api/tasks/:id/assignees/:user_id", controller.RemoveAssignee)

	evo.Post("/api/tasks/:id/comments", controller.AddComment)
	evo.Put("/api/tasks/comments/:comment_id", controller.UpdateComment)

	evo.Post("/api/tasks/:id/archive", controller.ArchiveTask)
	evo.Get("/api/tasks/:id/logs", controller.GetTaskLogs)

	evo.Get("/api/dashboard/personal", dashboards.Personal)
	evo.Get("/api/dashboard/department/:id", dashboards.Department)
	evo.Get("/api/dashboard/company", dashboards.Company)

	return nil
}

func (a App) WhenReady() error {
	// Route authorization closure lookups through the cache when the
	// redis app managed to connect.
	if redis.IsAvailable() {
		UseDepartmentSource(redis.CachedDepartmentSource{Inner: models.DBDepartmentSource{}})
	}
	return nil
}

func (a App) Name() string {
	return "tasks"
}
