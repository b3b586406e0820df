package jobs

import (
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/application"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
)

// App represents the background jobs module
type App struct{}

var _ application.Application = (*App)(nil)

// Register initializes the jobs module
func (App) Register() error {
	db.UseModel(JobExecution{})
	return nil
}

// Router registers HTTP routes for job management
func (App) Router() error {
	evo.Use("/api/admin/jobs", auth.HRAdminMiddleware)
	evo.Get("/api/admin/jobs", GetJobs)
	evo.Get("/api/admin/jobs/executions", GetJobExecutions)
	evo.Post("/api/admin/jobs/:name/run", RunJob)
	return nil
}

// WhenReady starts the scheduler after all apps are ready
func (App) WhenReady() error {
	if !settings.Get("JOBS.ENABLED", true).Bool() {
		log.Info("Jobs are disabled, skipping scheduler initialization")
		return nil
	}

	locks := NewLockManager(10 * time.Minute)
	s := NewScheduler(locks)
	RegisterAllJobs(s)
	s.Start()

	log.Info("Jobs app ready - scheduler running")
	return nil
}

// Shutdown gracefully stops the scheduler
func (App) Shutdown() error {
	if scheduler != nil {
		scheduler.Stop()
	}
	return nil
}

// Name returns the app name
func (App) Name() string {
	return "jobs"
}
