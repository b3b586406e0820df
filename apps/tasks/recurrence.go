package tasks

import (
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

// NextOccurrence builds the successor of a completed recurring task.
// The successor starts over in to_do, keeps the title, description,
// priority, department, project, interval, assignees and tags of the
// original, and is due the interval's number of days after the
// original deadline. It is never a subtask.
func NextOccurrence(task *models.Task) (*models.Task, error) {
	if !task.IsRecurring() {
		return nil, &ValidationError{Field: "recurring_interval", Reason: "task does not recur"}
	}
	interval := *task.RecurringInterval
	return &models.Task{
		Title:             task.Title,
		Description:       task.Description,
		Priority:          task.Priority,
		DueDate:           task.DueDate.AddDate(0, 0, interval),
		Status:            models.TaskStatusToDo,
		OwnerID:           task.OwnerID,
		DepartmentID:      task.DepartmentID,
		ProjectID:         task.ProjectID,
		RecurringInterval: &interval,
	}, nil
}
