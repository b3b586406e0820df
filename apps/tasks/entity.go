package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

// NewTaskInput carries the caller-supplied fields of a task creation
// request. Department and ownership are derived from the creator, never
// taken from input.
type NewTaskInput struct {
	Title             string
	Description       string
	Priority          int
	DueDate           time.Time
	ProjectID         *uint
	ParentTaskID      *uint
	RecurringInterval *int
	AssigneeIDs       []uuid.UUID
	Tags              []string
}

// NewTask builds an in-memory task from input after validating every
// field-level invariant. Cross-entity rules (parent depth, project
// existence, assignee existence) are the service's job.
func NewTask(input NewTaskInput, ownerID uuid.UUID, departmentID uint) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validatePriority(input.Priority); err != nil {
		return nil, err
	}
	if input.DueDate.IsZero() {
		return nil, &ValidationError{Field: "due_date", Reason: "due date is required"}
	}
	if err := validateInterval(input.RecurringInterval); err != nil {
		return nil, err
	}
	if input.ParentTaskID != nil && input.RecurringInterval != nil {
		return nil, &ValidationError{Field: "recurring_interval", Reason: "subtasks cannot recur"}
	}

	assignees := dedupeAssignees(input.AssigneeIDs)
	if len(assignees) < models.TaskAssigneesMin || len(assignees) > models.TaskAssigneesMax {
		return nil, &ValidationError{Field: "assignees", Reason: "a task needs between 1 and 5 assignees"}
	}

	return &models.Task{
		Title:             title,
		Description:       strings.TrimSpace(input.Description),
		Priority:          input.Priority,
		DueDate:           input.DueDate,
		Status:            models.TaskStatusToDo,
		OwnerID:           ownerID,
		DepartmentID:      departmentID,
		ProjectID:         input.ProjectID,
		ParentTaskID:      input.ParentTaskID,
		RecurringInterval: input.RecurringInterval,
	}, nil
}

// SetTitle replaces the task title.
func SetTitle(task *models.Task, title string) error {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return err
	}
	task.Title = title
	return nil
}

// SetDescription replaces the task description.
func SetDescription(task *models.Task, description string) {
	task.Description = strings.TrimSpace(description)
}

// SetPriority replaces the task priority.
func SetPriority(task *models.Task, priority int) error {
	if err := validatePriority(priority); err != nil {
		return err
	}
	task.Priority = priority
	return nil
}

// SetDueDate replaces the deadline. A subtask's deadline may never pass
// its parent's, so the parent must be supplied when the task has one.
func SetDueDate(task *models.Task, due time.Time, parent *models.Task) error {
	if due.IsZero() {
		return &ValidationError{Field: "due_date", Reason: "due date is required"}
	}
	if task.ParentTaskID != nil {
		if parent == nil {
			return &NotFoundError{Kind: "task", ID: *task.ParentTaskID}
		}
		if due.After(parent.DueDate) {
			return &ValidationError{Field: "due_date", Reason: "subtask deadline cannot pass the parent deadline"}
		}
	}
	task.DueDate = due
	return nil
}

// SetStatus moves the task to a new status and reports whether the
// change is a genuine transition into the completed state, which is
// what arms recurrence.
func SetStatus(task *models.Task, status string) (completedNow bool, err error) {
	if !models.ValidTaskStatus(status) {
		return false, &ValidationError{Field: "status", Reason: "unknown status " + status}
	}
	completedNow = status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted
	task.Status = status
	if completedNow {
		now := time.Now()
		task.CompletedAt = &now
	} else if status != models.TaskStatusCompleted {
		task.CompletedAt = nil
	}
	return completedNow, nil
}

// SetRecurringInterval replaces the recurrence interval. Subtasks never
// recur; pass nil to stop recurrence.
func SetRecurringInterval(task *models.Task, interval *int) error {
	if interval != nil && task.ParentTaskID != nil {
		return &ValidationError{Field: "recurring_interval", Reason: "subtasks cannot recur"}
	}
	if err := validateInterval(interval); err != nil {
		return err
	}
	task.RecurringInterval = interval
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if len(title) > models.TaskTitleMaxLength {
		return &ValidationError{Field: "title", Reason: "title cannot exceed 255 characters"}
	}
	return nil
}

func validatePriority(priority int) error {
	if priority < models.TaskPriorityMin || priority > models.TaskPriorityMax {
		return &ValidationError{Field: "priority", Reason: "priority must be between 1 and 10"}
	}
	return nil
}

func validateInterval(interval *int) error {
	if interval != nil && *interval < 1 {
		return &ValidationError{Field: "recurring_interval", Reason: "recurrence interval must be a positive number of days"}
	}
	return nil
}

func dedupeAssignees(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
