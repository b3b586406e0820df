package tasks

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

func TestNextOccurrence(t *testing.T) {
	due := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	interval := 7
	project := uint(4)
	task := &models.Task{
		ID:                12,
		Title:             "Weekly report",
		Description:       "Summarise the sprint",
		Priority:          6,
		DueDate:           due,
		Status:            models.TaskStatusCompleted,
		OwnerID:           uuid.New(),
		DepartmentID:      2,
		ProjectID:         &project,
		RecurringInterval: &interval,
	}

	successor, err := NextOccurrence(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if successor.ID != 0 {
		t.Fatalf("successor must be unsaved, got id %d", successor.ID)
	}
	if !successor.DueDate.Equal(due.AddDate(0, 0, 7)) {
		t.Fatalf("expected due date %v, got %v", due.AddDate(0, 0, 7), successor.DueDate)
	}
	if successor.Status != models.TaskStatusToDo {
		t.Fatalf("expected status to_do, got %s", successor.Status)
	}
	if successor.Title != task.Title || successor.Description != task.Description || successor.Priority != task.Priority {
		t.Fatal("successor must copy title, description and priority")
	}
	if successor.OwnerID != task.OwnerID || successor.DepartmentID != task.DepartmentID {
		t.Fatal("successor must keep owner and department")
	}
	if successor.ProjectID == nil || *successor.ProjectID != project {
		t.Fatal("successor must keep the project")
	}
	if successor.ParentTaskID != nil {
		t.Fatal("a recurrence successor is never a subtask")
	}
	if successor.CompletedAt != nil {
		t.Fatal("successor must not carry a completion timestamp")
	}

	// The interval is copied, not shared.
	*successor.RecurringInterval = 14
	if *task.RecurringInterval != 7 {
		t.Fatal("changing the successor interval must not touch the original")
	}
}

func TestNextOccurrence_NonRecurring(t *testing.T) {
	task := &models.Task{ID: 3, Title: "One-off"}
	if _, err := NextOccurrence(task); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
