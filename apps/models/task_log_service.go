package models

import (
	"encoding/json"

	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/google/uuid"
)

// LogTask creates a new task log entry asynchronously
func LogTask(entry TaskLogEntry) {
	go func() {
		if err := createTaskLog(entry); err != nil {
			log.Error("Failed to create task log: %v", err)
		}
	}()
}

// LogTaskSync creates a new task log entry synchronously
func LogTaskSync(entry TaskLogEntry) error {
	return createTaskLog(entry)
}

// createTaskLog is the internal function that actually creates the log entry
func createTaskLog(entry TaskLogEntry) error {
	taskLog := TaskLog{
		TaskID:  entry.TaskID,
		Action:  entry.Action,
		ActorID: entry.ActorID,
	}

	if entry.OldValues != nil {
		oldValuesJSON, err := json.Marshal(entry.OldValues)
		if err == nil {
			taskLog.OldValues = oldValuesJSON
		}
	}

	if entry.NewValues != nil {
		newValuesJSON, err := json.Marshal(entry.NewValues)
		if err == nil {
			taskLog.NewValues = newValuesJSON
		}
	}

	if entry.Metadata != nil {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err == nil {
			taskLog.Metadata = metadataJSON
		}
	}

	return db.Create(&taskLog).Error
}

// GetTaskLogs retrieves task logs with filtering and pagination
func GetTaskLogs(taskID uint, action string, actorID *uuid.UUID, limit, offset int) ([]TaskLog, int64, error) {
	var logs []TaskLog
	var total int64

	query := db.Model(&TaskLog{})

	if taskID != 0 {
		query = query.Where("task_id = ?", taskID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if actorID != nil {
		query = query.Where("actor_id = ?", actorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	err := query.
		Preload("Actor").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error

	return logs, total, err
}
