package tasks

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }

func validInput() NewTaskInput {
	return NewTaskInput{
		Title:       "Prepare quarterly report",
		Priority:    5,
		DueDate:     time.Now().AddDate(0, 0, 7),
		AssigneeIDs: []uuid.UUID{uuid.New()},
	}
}

func TestNewTask_Valid(t *testing.T) {
	owner := uuid.New()
	task, err := NewTask(validInput(), owner, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.TaskStatusToDo {
		t.Fatalf("expected initial status to_do, got %s", task.Status)
	}
	if task.OwnerID != owner {
		t.Fatalf("expected owner %s, got %s", owner, task.OwnerID)
	}
	if task.DepartmentID != 3 {
		t.Fatalf("expected department 3, got %d", task.DepartmentID)
	}
}

func TestNewTask_FieldValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewTaskInput)
	}{
		{"empty title", func(in *NewTaskInput) { in.Title = "   " }},
		{"title too long", func(in *NewTaskInput) { in.Title = strings.Repeat("x", 256) }},
		{"priority below range", func(in *NewTaskInput) { in.Priority = 0 }},
		{"priority above range", func(in *NewTaskInput) { in.Priority = 11 }},
		{"missing due date", func(in *NewTaskInput) { in.DueDate = time.Time{} }},
		{"zero interval", func(in *NewTaskInput) { in.RecurringInterval = intPtr(0) }},
		{"negative interval", func(in *NewTaskInput) { in.RecurringInterval = intPtr(-3) }},
		{"recurring subtask", func(in *NewTaskInput) {
			in.ParentTaskID = uintPtr(1)
			in.RecurringInterval = intPtr(7)
		}},
		{"no assignees", func(in *NewTaskInput) { in.AssigneeIDs = nil }},
		{"too many assignees", func(in *NewTaskInput) {
			in.AssigneeIDs = []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := NewTask(input, uuid.New(), 1)
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNewTask_DeduplicatesAssignees(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	input := validInput()
	// Six entries, but only two distinct users after dropping
	// duplicates and the nil id.
	input.AssigneeIDs = []uuid.UUID{a, b, a, b, a, uuid.Nil}

	_, err := NewTask(input, uuid.New(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetTitle(t *testing.T) {
	task := &models.Task{Title: "old"}
	if err := SetTitle(task, "  new title  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Title != "new title" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if err := SetTitle(task, ""); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetDueDate_SubtaskBoundByParent(t *testing.T) {
	parentDue := time.Now().AddDate(0, 0, 10)
	parent := &models.Task{ID: 1, DueDate: parentDue}
	subtask := &models.Task{ID: 2, ParentTaskID: uintPtr(1), DueDate: parentDue.AddDate(0, 0, -5)}

	if err := SetDueDate(subtask, parentDue.AddDate(0, 0, 1), parent); !IsValidation(err) {
		t.Fatalf("expected validation error for deadline past parent, got %v", err)
	}
	if err := SetDueDate(subtask, parentDue, parent); err != nil {
		t.Fatalf("deadline equal to parent should be allowed, got %v", err)
	}
	if err := SetDueDate(subtask, parentDue, nil); !IsNotFound(err) {
		t.Fatalf("expected not found when parent is missing, got %v", err)
	}
}

func TestSetStatus_CompletionTransitions(t *testing.T) {
	task := &models.Task{Status: models.TaskStatusInProgress}

	completedNow, err := SetStatus(task, models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !completedNow {
		t.Fatal("expected transition into completed to report completedNow")
	}
	if task.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	// Setting completed again is not a fresh completion.
	completedNow, err = SetStatus(task, models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completedNow {
		t.Fatal("re-completing must not report completedNow")
	}

	// Reopening clears the completion timestamp.
	completedNow, err = SetStatus(task, models.TaskStatusToDo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completedNow {
		t.Fatal("reopening must not report completedNow")
	}
	if task.CompletedAt != nil {
		t.Fatal("expected completed_at to be cleared on reopen")
	}
}

func TestSetStatus_RejectsUnknownStatus(t *testing.T) {
	task := &models.Task{Status: models.TaskStatusToDo}
	if _, err := SetStatus(task, "done"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if task.Status != models.TaskStatusToDo {
		t.Fatalf("status must not change on invalid input, got %s", task.Status)
	}
}

func TestSetRecurringInterval(t *testing.T) {
	task := &models.Task{}
	if err := SetRecurringInterval(task, intPtr(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := SetRecurringInterval(task, nil); err != nil {
		t.Fatalf("clearing recurrence should succeed, got %v", err)
	}
	if task.RecurringInterval != nil {
		t.Fatal("expected recurrence to be cleared")
	}

	subtask := &models.Task{ParentTaskID: uintPtr(1)}
	if err := SetRecurringInterval(subtask, intPtr(7)); !IsValidation(err) {
		t.Fatalf("expected validation error for recurring subtask, got %v", err)
	}
}
