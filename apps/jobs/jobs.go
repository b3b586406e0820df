package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	appredis "github.com/taskdesk/taskdesk-backend/apps/redis"
	"github.com/taskdesk/taskdesk-backend/apps/webhook"
)

// RegisterAllJobs wires the background jobs into the scheduler.
func RegisterAllJobs(s *Scheduler) {
	register := func(job JobDefinition) {
		if err := s.RegisterJob(job); err != nil {
			log.Error("Failed to register job %s: %v", job.Name, err)
		}
	}

	register(JobDefinition{
		Name:        "due_soon_reminders",
		Description: "Broadcasts reminders for tasks approaching their deadline",
		Schedule:    "0 */15 * * * *",
		Timeout:     5 * time.Minute,
		Handler:     DueSoonReminders,
		Enabled:     settings.Get("JOBS.DUE_SOON_ENABLED", true).Bool(),
	})

	register(JobDefinition{
		Name:        "archive_completed",
		Description: "Archives completed non-recurring tasks after a retention period",
		Schedule:    "0 0 3 * * *",
		Timeout:     10 * time.Minute,
		Handler:     ArchiveCompleted,
		Enabled:     settings.Get("JOBS.ARCHIVE_ENABLED", true).Bool(),
	})

	register(JobDefinition{
		Name:        "cleanup_history",
		Description: "Removes old job execution and webhook delivery records",
		Schedule:    "0 30 4 * * *",
		Timeout:     10 * time.Minute,
		Handler:     CleanupHistory,
		Enabled:     true,
	})
}

// DueSoonReminders finds unfinished tasks whose deadline falls inside
// the configured window and broadcasts a reminder for each, once per
// task per window.
func DueSoonReminders(ctx *JobContext) error {
	hours := settings.Get("JOBS.DUE_SOON_HOURS").Int()
	if hours <= 0 {
		hours = 24
	}
	window := time.Duration(hours) * time.Hour

	now := time.Now()
	var tasks []models.Task
	err := db.Preload("Assignments").
		Where("archived = ?", false).
		Where("status <> ?", models.TaskStatusCompleted).
		Where("due_date BETWEEN ? AND ?", now, now.Add(window)).
		Find(&tasks).Error
	if err != nil {
		return err
	}

	for i := range tasks {
		task := &tasks[i]
		if !markReminded(task.ID, window) {
			continue
		}

		webhook.BroadcastWebhookWithRetry(models.WebhookEventTaskDueSoon, map[string]any{
			"task":      task.ToWebhookData(),
			"due_in":    task.DueDate.Sub(now).Round(time.Minute).String(),
			"assignees": task.AssigneeIDs(),
		})
		ctx.IncrementProcessed(1)
	}

	return nil
}

// markReminded records that a reminder went out for a task, returning
// false when one was already sent inside the window. Without Redis
// every run sends again; reminders are idempotent for consumers.
func markReminded(taskID uint, window time.Duration) bool {
	if !appredis.IsAvailable() {
		return true
	}
	markCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := appredis.Client.SetNX(markCtx, fmt.Sprintf("due_soon_sent:%d", taskID), "1", window).Result()
	if err != nil {
		return true
	}
	return ok
}

// ArchiveCompleted archives completed, non-recurring tasks whose
// completion is older than the retention period. Recurring tasks stay
// visible because their successors reference them.
func ArchiveCompleted(ctx *JobContext) error {
	days := settings.Get("JOBS.ARCHIVE_AFTER_DAYS").Int()
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var tasks []models.Task
	err := db.Where("archived = ?", false).
		Where("status = ?", models.TaskStatusCompleted).
		Where("recurring_interval IS NULL").
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Find(&tasks).Error
	if err != nil {
		return err
	}

	for i := range tasks {
		task := &tasks[i]
		if err := db.Model(&models.Task{}).Where("id = ?", task.ID).Update("archived", true).Error; err != nil {
			log.Error("Failed to archive task %d: %v", task.ID, err)
			continue
		}
		models.LogTask(models.TaskLogEntry{
			TaskID: task.ID,
			Action: models.ActionArchive,
			Metadata: map[string]any{
				"reason":         "retention sweep",
				"retention_days": days,
			},
		})
		ctx.IncrementProcessed(1)
	}

	return nil
}

// CleanupHistory prunes job execution records and webhook delivery
// logs past their retention.
func CleanupHistory(ctx *JobContext) error {
	if scheduler != nil {
		removed, err := scheduler.CleanupOldExecutions(30 * 24 * time.Hour)
		if err != nil {
			return err
		}
		ctx.IncrementProcessed(int(removed))
	}

	cutoff := time.Now().AddDate(0, 0, -14)
	result := db.Where("created_at < ?", cutoff).Delete(&models.WebhookDelivery{})
	if result.Error != nil {
		return result.Error
	}
	ctx.IncrementProcessed(int(result.RowsAffected))

	return nil
}
