package main

import (
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/application"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/jobs"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/apps/nats"
	"github.com/taskdesk/taskdesk-backend/apps/redis"
	"github.com/taskdesk/taskdesk-backend/apps/storage"
	"github.com/taskdesk/taskdesk-backend/apps/system"
	"github.com/taskdesk/taskdesk-backend/apps/tasks"
	"github.com/taskdesk/taskdesk-backend/apps/webhook"
)

func main() {
	evo.Setup()

	var apps = application.GetInstance()
	apps.Register(system.App{}, auth.App{}, models.App{}, nats.App{}, redis.App{}, webhook.App{}, storage.App{}, tasks.App{}, jobs.App{})

	evo.Run()
}
