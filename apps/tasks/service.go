package tasks

import (
	"strings"
	"time"

	"github.com/getevo/evo/v2/lib/log"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

// Notifier receives task lifecycle events. Delivery is best-effort and
// must never fail a task operation.
type Notifier interface {
	TaskEvent(event string, task *models.Task, metadata map[string]any)
}

// noopNotifier swallows every event.
type noopNotifier struct{}

func (noopNotifier) TaskEvent(string, *models.Task, map[string]any) {}

// Service orchestrates task operations: validation first, then
// authorization, then persistence. Dependencies are injected so the
// whole flow runs against in-memory fakes in tests.
type Service struct {
	repo        Repository
	departments models.DepartmentSource
	notify      Notifier
}

// NewService wires a task service. A nil notifier disables event
// delivery.
func NewService(repo Repository, departments models.DepartmentSource, notifier Notifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{repo: repo, departments: departments, notify: notifier}
}

// TaskView is a task decorated with the caller's edit permission.
type TaskView struct {
	models.Task
	CanEdit bool `json:"can_edit"`
}

// StatusResult reports the outcome of a status change. Successor is
// set when the change completed a recurring task and the next
// occurrence was created; Warning explains a recurrence failure that
// did not undo the completion.
type StatusResult struct {
	Task      *TaskView    `json:"task"`
	Successor *models.Task `json:"successor,omitempty"`
	Warning   string       `json:"-"`
}

// scopeFor resolves the department closure a caller's role decisions
// depend on. Managers without an explicit managed department manage
// their home department.
func (s *Service) scopeFor(user *auth.User) (Scope, error) {
	var root uint
	switch {
	case user.ManagesDepartment():
		root = *user.ManagedDepartmentID
	case user.Role == auth.RoleManager:
		root = user.DepartmentID
	default:
		return Scope{}, nil
	}
	closure, err := models.SubordinateDepartments(s.departments, root)
	if err != nil {
		return Scope{}, err
	}
	subordinates := make(map[uint]bool, len(closure))
	for _, id := range closure {
		subordinates[id] = true
	}
	return Scope{Subordinates: subordinates}, nil
}

// editableTask loads a task and verifies the caller may modify it.
func (s *Service) editableTask(taskID uint, caller *auth.User) (*models.Task, error) {
	task, err := s.repo.TaskByID(taskID)
	if err != nil {
		return nil, err
	}
	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}
	if !CanEdit(caller, task, scope) {
		return nil, &AuthorizationError{}
	}
	return task, nil
}

func (s *Service) view(task *models.Task, caller *auth.User) (*TaskView, error) {
	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}
	return &TaskView{Task: *task, CanEdit: CanEdit(caller, task, scope)}, nil
}

// CreateTask validates input, applies the subtask rules, and persists
// the new task with its assignments and tags in one transaction.
func (s *Service) CreateTask(input NewTaskInput, creator *auth.User) (*TaskView, error) {
	task, err := NewTask(input, creator.UserID, creator.DepartmentID)
	if err != nil {
		return nil, err
	}

	if task.ParentTaskID != nil {
		parent, err := s.repo.TaskByID(*task.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if parent.ParentTaskID != nil {
			return nil, &DepthExceededError{ParentID: parent.ID}
		}
		if parent.OwnerID != creator.UserID && !parent.HasAssignee(creator.UserID) {
			return nil, &AuthorizationError{}
		}
		if task.DueDate.After(parent.DueDate) {
			return nil, &ValidationError{Field: "due_date", Reason: "subtask deadline cannot pass the parent deadline"}
		}
		// Subtasks always live where their parent lives.
		task.DepartmentID = parent.DepartmentID
		task.ProjectID = parent.ProjectID
	} else if input.ProjectID != nil {
		exists, err := s.repo.ProjectExists(*input.ProjectID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &NotFoundError{Kind: "project", ID: *input.ProjectID}
		}
	}

	assignees := dedupeAssignees(input.AssigneeIDs)
	for _, userID := range assignees {
		exists, err := s.repo.UserExists(userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &NotFoundError{Kind: "user", ID: userID}
		}
	}

	if err := s.repo.CreateTask(task, assignees, creator.UserID, input.Tags); err != nil {
		return nil, err
	}

	s.appendLog(models.TaskLogEntry{
		TaskID:  task.ID,
		Action:  models.ActionCreate,
		ActorID: &creator.UserID,
		NewValues: map[string]any{
			"title":    task.Title,
			"status":   task.Status,
			"priority": task.Priority,
			"due_date": task.DueDate,
		},
	})
	s.notify.TaskEvent(models.WebhookEventTaskCreated, task, nil)

	return s.view(task, creator)
}

// GetByID returns the task when the caller may see it. Absence and
// denial are indistinguishable to the caller.
func (s *Service) GetByID(taskID uint, caller *auth.User) (*TaskView, error) {
	task, err := s.repo.TaskByID(taskID)
	if err != nil {
		return nil, err
	}
	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}
	if !CanView(caller, task, scope) {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	return &TaskView{Task: *task, CanEdit: CanEdit(caller, task, scope)}, nil
}

// Filters narrows GetVisibleTasks beyond the caller's visibility.
type Filters struct {
	DepartmentID    *uint
	AssigneeID      *uuid.UUID
	ProjectID       *uint
	Status          string
	Tag             string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// GetVisibleTasks returns every task the caller may see, narrowed by
// filters, each row carrying the caller's edit permission.
func (s *Service) GetVisibleTasks(caller *auth.User, filters Filters) ([]TaskView, error) {
	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}

	filter := TaskFilter{
		AssigneeID:      filters.AssigneeID,
		ProjectID:       filters.ProjectID,
		Tag:             filters.Tag,
		IncludeArchived: filters.IncludeArchived,
		Limit:           filters.Limit,
		Offset:          filters.Offset,
	}
	if filters.Status != "" {
		if !models.ValidTaskStatus(filters.Status) {
			return nil, &ValidationError{Field: "status", Reason: "unknown status " + filters.Status}
		}
		filter.Statuses = []string{filters.Status}
	}

	var candidates []models.Task
	switch {
	case caller.Role == auth.RoleHRAdmin:
		if filters.DepartmentID != nil {
			filter.DepartmentIDs = []uint{*filters.DepartmentID}
		}
		candidates, err = s.repo.SearchTasks(filter)
	case len(scope.Subordinates) > 0:
		// A manager's pool is the managed closure plus tasks they own
		// or hold directly, fetched in two passes and merged.
		departments := make([]uint, 0, len(scope.Subordinates))
		for id := range scope.Subordinates {
			if filters.DepartmentID != nil && *filters.DepartmentID != id {
				continue
			}
			departments = append(departments, id)
		}
		closureFilter := filter
		closureFilter.DepartmentIDs = departments
		if len(departments) > 0 {
			candidates, err = s.repo.SearchTasks(closureFilter)
			if err != nil {
				return nil, err
			}
		}
		var own []models.Task
		own, err = s.personalPool(caller, filter)
		if err != nil {
			return nil, err
		}
		candidates = mergeTasks(candidates, own)
	default:
		candidates, err = s.personalPool(caller, filter)
	}
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(candidates))
	for i := range candidates {
		task := &candidates[i]
		if !CanView(caller, task, scope) {
			continue
		}
		if filters.DepartmentID != nil && task.DepartmentID != *filters.DepartmentID {
			continue
		}
		// The personal pool swaps the assignee constraint for the
		// caller's own id, so a requested filter must be re-applied
		// after the merge.
		if filters.AssigneeID != nil && !task.HasAssignee(*filters.AssigneeID) {
			continue
		}
		views = append(views, TaskView{Task: *task, CanEdit: CanEdit(caller, task, scope)})
	}
	return views, nil
}

// personalPool fetches tasks the caller owns or is assigned to.
func (s *Service) personalPool(caller *auth.User, filter TaskFilter) ([]models.Task, error) {
	owned := filter
	owned.OwnerID = &caller.UserID
	ownedTasks, err := s.repo.SearchTasks(owned)
	if err != nil {
		return nil, err
	}
	assigned := filter
	assigned.AssigneeID = &caller.UserID
	assignedTasks, err := s.repo.SearchTasks(assigned)
	if err != nil {
		return nil, err
	}
	return mergeTasks(ownedTasks, assignedTasks), nil
}

func mergeTasks(a, b []models.Task) []models.Task {
	seen := make(map[uint]bool, len(a))
	out := make([]models.Task, 0, len(a)+len(b))
	for _, t := range a {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	for _, t := range b {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// UpdateTitle changes the task title.
func (s *Service) UpdateTitle(taskID uint, title string, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	old := task.Title
	if err := SetTitle(task, title); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"title": old},
		NewValues: map[string]any{"title": task.Title},
	})
	s.notify.TaskEvent(models.WebhookEventTaskUpdated, task, nil)
	return s.view(task, caller)
}

// UpdateDescription changes the task description.
func (s *Service) UpdateDescription(taskID uint, description string, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	old := task.Description
	SetDescription(task, description)
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"description": old},
		NewValues: map[string]any{"description": task.Description},
	})
	s.notify.TaskEvent(models.WebhookEventTaskUpdated, task, nil)
	return s.view(task, caller)
}

// UpdatePriority changes the task priority.
func (s *Service) UpdatePriority(taskID uint, priority int, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	old := task.Priority
	if err := SetPriority(task, priority); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"priority": old},
		NewValues: map[string]any{"priority": task.Priority},
	})
	s.notify.TaskEvent(models.WebhookEventTaskUpdated, task, nil)
	return s.view(task, caller)
}

// UpdateDueDate changes the deadline, holding subtasks at or before
// their parent's deadline.
func (s *Service) UpdateDueDate(taskID uint, due time.Time, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	var parent *models.Task
	if task.ParentTaskID != nil {
		parent, err = s.repo.TaskByID(*task.ParentTaskID)
		if err != nil {
			return nil, err
		}
	}
	old := task.DueDate
	if err := SetDueDate(task, due, parent); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"due_date": old},
		NewValues: map[string]any{"due_date": task.DueDate},
	})
	s.notify.TaskEvent(models.WebhookEventTaskUpdated, task, nil)
	return s.view(task, caller)
}

// UpdateRecurring changes or clears the recurrence interval.
func (s *Service) UpdateRecurring(taskID uint, interval *int, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	old := task.RecurringInterval
	if err := SetRecurringInterval(task, interval); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"recurring_interval": old},
		NewValues: map[string]any{"recurring_interval": task.RecurringInterval},
	})
	s.notify.TaskEvent(models.WebhookEventTaskUpdated, task, nil)
	return s.view(task, caller)
}

// UpdateStatus moves the task through its status enum. Completing a
// recurring task spawns the next occurrence; a failure there is
// reported as a warning and never undoes the completion.
func (s *Service) UpdateStatus(taskID uint, status string, caller *auth.User) (*StatusResult, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	oldStatus := task.Status
	completedNow, err := SetStatus(task, status)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionStatusChange,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"status": oldStatus},
		NewValues: map[string]any{"status": task.Status},
	})
	s.notify.TaskEvent(models.WebhookEventTaskStatusChange, task, map[string]any{
		"old_status": oldStatus,
		"new_status": task.Status,
	})

	result := &StatusResult{}
	if completedNow {
		s.notify.TaskEvent(models.WebhookEventTaskCompleted, task, nil)
		if task.IsRecurring() {
			successor, warning := s.spawnSuccessor(task, caller)
			result.Successor = successor
			result.Warning = warning
		}
	}

	view, err := s.view(task, caller)
	if err != nil {
		return nil, err
	}
	result.Task = view
	return result, nil
}

// spawnSuccessor creates the next occurrence of a just-completed
// recurring task. The completion already committed, so any failure
// here only yields a warning for the caller.
func (s *Service) spawnSuccessor(task *models.Task, caller *auth.User) (*models.Task, string) {
	successor, err := NextOccurrence(task)
	if err != nil {
		log.Error("failed to build next occurrence of task %d: %v", task.ID, err)
		return nil, "task completed, but the next occurrence could not be scheduled"
	}
	tags := make([]string, 0, len(task.Tags))
	for _, tag := range task.Tags {
		tags = append(tags, tag.Name)
	}
	if err := s.repo.CreateTask(successor, task.AssigneeIDs(), task.OwnerID, tags); err != nil {
		log.Error("failed to persist next occurrence of task %d: %v", task.ID, err)
		return nil, "task completed, but the next occurrence could not be scheduled"
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:  task.ID,
		Action:  models.ActionRecurrence,
		ActorID: &caller.UserID,
		Metadata: map[string]any{
			"successor_task_id": successor.ID,
		},
	})
	s.appendLog(models.TaskLogEntry{
		TaskID:  successor.ID,
		Action:  models.ActionCreate,
		ActorID: &caller.UserID,
		Metadata: map[string]any{
			"predecessor_task_id": task.ID,
		},
	})
	s.notify.TaskEvent(models.WebhookEventTaskRecurred, successor, map[string]any{
		"predecessor_task_id": task.ID,
	})
	return successor, ""
}

// AddTag attaches a tag to the task, creating the tag on first use.
func (s *Service) AddTag(taskID uint, name string, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "tag", Reason: "tag name is required"}
	}
	if err := s.repo.AddTag(task.ID, name); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		NewValues: map[string]any{"tag": normalizeTag(name)},
	})
	return s.reload(task.ID, caller)
}

// RemoveTag detaches a tag from the task.
func (s *Service) RemoveTag(taskID uint, name string, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveTag(task.ID, name); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUpdate,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"tag": normalizeTag(name)},
	})
	return s.reload(task.ID, caller)
}

// AddAssignee assigns a user to the task.
func (s *Service) AddAssignee(taskID uint, userID uuid.UUID, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.UserExists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Kind: "user", ID: userID}
	}
	if task.HasAssignee(userID) {
		return s.view(task, caller)
	}
	if err := s.repo.AddAssignee(task.ID, userID, caller.UserID); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionAssign,
		ActorID:   &caller.UserID,
		NewValues: map[string]any{"user_id": userID},
	})
	s.notify.TaskEvent(models.WebhookEventTaskAssigned, task, map[string]any{
		"user_id": userID.String(),
	})
	return s.reload(task.ID, caller)
}

// RemoveAssignee removes a user from the task. A task always keeps at
// least one assignee.
func (s *Service) RemoveAssignee(taskID uint, userID uuid.UUID, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	if !task.HasAssignee(userID) {
		return nil, &NotFoundError{Kind: "assignment", ID: userID}
	}
	if len(task.Assignments) <= 1 {
		return nil, &ConflictError{Reason: "a task must keep at least one assignee"}
	}
	if err := s.repo.RemoveAssignee(task.ID, userID); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:    task.ID,
		Action:    models.ActionUnassign,
		ActorID:   &caller.UserID,
		OldValues: map[string]any{"user_id": userID},
	})
	return s.reload(task.ID, caller)
}

// AddComment appends a comment to a task the caller can see.
func (s *Service) AddComment(taskID uint, content string, caller *auth.User) (*models.TaskComment, error) {
	task, err := s.repo.TaskByID(taskID)
	if err != nil {
		return nil, err
	}
	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}
	if !CanView(caller, task, scope) {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Reason: "comment content is required"}
	}
	comment := &models.TaskComment{
		TaskID:   task.ID,
		AuthorID: caller.UserID,
		Content:  content,
	}
	if err := s.repo.AddComment(comment); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:  task.ID,
		Action:  models.ActionComment,
		ActorID: &caller.UserID,
		Metadata: map[string]any{
			"comment_id": comment.ID,
		},
	})
	return comment, nil
}

// UpdateComment edits a comment. Only its author may change it.
func (s *Service) UpdateComment(commentID uint, content string, caller *auth.User) (*models.TaskComment, error) {
	comment, err := s.repo.CommentByID(commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != caller.UserID {
		return nil, &AuthorizationError{}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Reason: "comment content is required"}
	}
	comment.Content = content
	if err := s.repo.UpdateComment(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Archive hides a task from default listings without deleting its
// history.
func (s *Service) Archive(taskID uint, caller *auth.User) (*TaskView, error) {
	task, err := s.editableTask(taskID, caller)
	if err != nil {
		return nil, err
	}
	if task.Archived {
		return s.view(task, caller)
	}
	task.Archived = true
	if err := s.repo.UpdateTask(task); err != nil {
		return nil, err
	}
	s.appendLog(models.TaskLogEntry{
		TaskID:  task.ID,
		Action:  models.ActionArchive,
		ActorID: &caller.UserID,
	})
	return s.view(task, caller)
}

// reload fetches the freshest row after a relation change.
func (s *Service) reload(taskID uint, caller *auth.User) (*TaskView, error) {
	task, err := s.repo.TaskByID(taskID)
	if err != nil {
		return nil, err
	}
	return s.view(task, caller)
}

// appendLog writes an audit entry, logging failures instead of
// surfacing them. The audit trail never fails a task operation.
func (s *Service) appendLog(entry models.TaskLogEntry) {
	if err := s.repo.AppendLog(entry); err != nil {
		log.Error("failed to append task log for task %d: %v", entry.TaskID, err)
	}
}
