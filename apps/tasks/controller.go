package tasks

import (
	"errors"
	"net/http"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/apps/redis"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

var validate = validator.New()

// Controller handles the task HTTP API.
type Controller struct{}

// currentUser extracts the authenticated user from the request.
func currentUser(request *evo.Request) (*auth.User, bool) {
	if request.User().Anonymous() {
		return nil, false
	}
	user, ok := request.User().Interface().(*auth.User)
	return user, ok
}

// clientIP resolves the caller address, honoring proxies.
func clientIP(request *evo.Request) string {
	if forwarded := request.Header("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return request.IP()
}

// errorResponse translates a domain error into an HTTP payload.
func errorResponse(err error) any {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeValidationError, ve.Error(), http.StatusBadRequest, ve.Field))
	}
	var de *DepthExceededError
	if errors.As(err, &de) {
		return response.Error(response.NewError(response.ErrorCodeDepthExceeded, de.Error(), http.StatusUnprocessableEntity))
	}
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		switch nfe.Kind {
		case "task":
			return response.Error(response.ErrTaskNotFound)
		case "project":
			return response.Error(response.ErrProjectNotFound)
		case "user":
			return response.Error(response.ErrUserNotFound)
		case "department":
			return response.Error(response.ErrDepartmentNotFound)
		default:
			return response.Error(response.ErrNotFound)
		}
	}
	var ae *AuthorizationError
	if errors.As(err, &ae) {
		return response.Error(response.ErrAccessDenied)
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return response.Error(response.NewError(response.ErrorCodeConflict, ce.Error(), http.StatusConflict))
	}
	log.Error("task operation failed: %v", err)
	return response.Error(response.ErrInternalError)
}

// CreateTaskRequest is the payload of POST /api/tasks.
type CreateTaskRequest struct {
	Title             string    `json:"title" validate:"required,max=255"`
	Description       string    `json:"description"`
	Priority          int       `json:"priority" validate:"required,min=1,max=10"`
	DueDate           time.Time `json:"due_date" validate:"required"`
	ProjectID         *uint     `json:"project_id"`
	ParentTaskID      *uint     `json:"parent_task_id"`
	RecurringInterval *int      `json:"recurring_interval"`
	AssigneeIDs       []string  `json:"assignee_ids" validate:"required,min=1,max=5"`
	Tags              []string  `json:"tags"`
}

// CreateTask handles POST /api/tasks.
func (c Controller) CreateTask(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	if !redis.CheckRateLimit("task.create", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	var body CreateTaskRequest
	if err := request.BodyParser(&body); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(body); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeValidationError, "Invalid task data", http.StatusBadRequest, err.Error()))
	}
	assignees := make([]uuid.UUID, 0, len(body.AssigneeIDs))
	for _, raw := range body.AssigneeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(response.ErrInvalidUserID)
		}
		assignees = append(assignees, id)
	}

	view, err := DefaultService().CreateTask(NewTaskInput{
		Title:             body.Title,
		Description:       body.Description,
		Priority:          body.Priority,
		DueDate:           body.DueDate,
		ProjectID:         body.ProjectID,
		ParentTaskID:      body.ParentTaskID,
		RecurringInterval: body.RecurringInterval,
		AssigneeIDs:       assignees,
		Tags:              body.Tags,
	}, user)
	if err != nil {
		return errorResponse(err)
	}
	return response.Created(view)
}

// GetTask handles GET /api/tasks/:id.
func (c Controller) GetTask(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	view, err := DefaultService().GetByID(taskID, user)
	if err != nil {
		return errorResponse(err)
	}
	return response.OK(view)
}

// ListTasks handles GET /api/tasks.
func (c Controller) ListTasks(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	filters := Filters{
		Status:          request.Query("status").String(),
		Tag:             request.Query("tag").String(),
		IncludeArchived: request.Query("archived").Bool(),
		Limit:           request.Query("limit").Int(),
		Offset:          request.Query("offset").Int(),
	}
	if id := uint(request.Query("department_id").Int()); id > 0 {
		filters.DepartmentID = &id
	}
	if id := uint(request.Query("project_id").Int()); id > 0 {
		filters.ProjectID = &id
	}
	if raw := request.Query("assignee_id").String(); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(response.ErrInvalidUserID)
		}
		filters.AssigneeID = &id
	}
	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}

	views, err := DefaultService().GetVisibleTasks(user, filters)
	if err != nil {
		return errorResponse(err)
	}
	return response.List(views, len(views))
}

// UpdateTitleRequest is the payload of PUT /api/tasks/:id/title.
type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// UpdateTitle handles PUT /api/tasks/:id/title.
func (c Controller) UpdateTitle(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body UpdateTitleRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		return DefaultService().UpdateTitle(taskID, body.Title, user)
	})
}

// UpdateDescriptionRequest is the payload of PUT /api/tasks/:id/description.
type UpdateDescriptionRequest struct {
	Description string `json:"description"`
}

// UpdateDescription handles PUT /api/tasks/:id/description.
func (c Controller) UpdateDescription(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body UpdateDescriptionRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		return DefaultService().UpdateDescription(taskID, body.Description, user)
	})
}

// UpdatePriorityRequest is the payload of PUT /api/tasks/:id/priority.
type UpdatePriorityRequest struct {
	Priority int `json:"priority" validate:"required,min=1,max=10"`
}

// UpdatePriority handles PUT /api/tasks/:id/priority.
func (c Controller) UpdatePriority(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body UpdatePriorityRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		return DefaultService().UpdatePriority(taskID, body.Priority, user)
	})
}

// UpdateDueDateRequest is the payload of PUT /api/tasks/:id/deadline.
type UpdateDueDateRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// UpdateDueDate handles PUT /api/tasks/:id/deadline.
func (c Controller) UpdateDueDate(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body UpdateDueDateRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		return DefaultService().UpdateDueDate(taskID, body.DueDate, user)
	})
}

// UpdateRecurringRequest is the payload of PUT /api/tasks/:id/recurring.
type UpdateRecurringRequest struct {
	RecurringInterval *int `json:"recurring_interval"`
}

// UpdateRecurring handles PUT /api/tasks/:id/recurring.
func (c Controller) UpdateRecurring(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body UpdateRecurringRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		return DefaultService().UpdateRecurring(taskID, body.RecurringInterval, user)
	})
}

// UpdateStatusRequest is the payload of PUT /api/tasks/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PUT /api/tasks/:id/status. Completing a
// recurring task also returns the spawned successor; a recurrence
// failure surfaces as a warning next to the completed task.
func (c Controller) UpdateStatus(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	var body UpdateStatusRequest
	if err := request.BodyParser(&body); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(body); err != nil {
		return response.Error(response.ErrMissingRequired)
	}
	result, err := DefaultService().UpdateStatus(taskID, body.Status, user)
	if err != nil {
		return errorResponse(err)
	}
	if result.Warning != "" {
		return response.OKWithWarning(result, result.Warning)
	}
	return response.OK(result)
}

// TagRequest is the payload of POST /api/tasks/:id/tags.
type TagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// AddTag handles POST /api/tasks/:id/tags.
func (c Controller) AddTag(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body TagRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		return DefaultService().AddTag(taskID, body.Name, user)
	})
}

// RemoveTag handles DELETE /api/tasks/:id/tags/:name.
func (c Controller) RemoveTag(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		name := request.Param("name").String()
		if name == "" {
			return nil, &ValidationError{Field: "tag", Reason: "tag name is required"}
		}
		return DefaultService().RemoveTag(taskID, name, user)
	})
}

// AssigneeRequest is the payload of POST /api/tasks/:id/assignees.
type AssigneeRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// AddAssignee handles POST /api/tasks/:id/assignees.
func (c Controller) AddAssignee(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		var body AssigneeRequest
		if err := request.BodyParser(&body); err != nil {
			return nil, &ValidationError{Reason: "malformed request body"}
		}
		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			return nil, &ValidationError{Field: "user_id", Reason: "invalid user id"}
		}
		return DefaultService().AddAssignee(taskID, userID, user)
	})
}

// RemoveAssignee handles DELETE /api/tasks/:id/assignees/:user_id.
func (c Controller) RemoveAssignee(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		userID, err := uuid.Parse(request.Param("user_id").String())
		if err != nil {
			return nil, &ValidationError{Field: "user_id", Reason: "invalid user id"}
		}
		return DefaultService().RemoveAssignee(taskID, userID, user)
	})
}

// CommentRequest is the payload of comment endpoints.
type CommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// AddComment handles POST /api/tasks/:id/comments.
func (c Controller) AddComment(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	if !redis.CheckRateLimit("task.comment", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	var body CommentRequest
	if err := request.BodyParser(&body); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	comment, err := DefaultService().AddComment(taskID, body.Content, user)
	if err != nil {
		return errorResponse(err)
	}
	return response.Created(comment)
}

// UpdateComment handles PUT /api/tasks/comments/:comment_id.
func (c Controller) UpdateComment(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	commentID := uint(request.Param("comment_id").Int())
	if commentID == 0 {
		return response.Error(response.ErrInvalidInput)
	}
	var body CommentRequest
	if err := request.BodyParser(&body); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	comment, err := DefaultService().UpdateComment(commentID, body.Content, user)
	if err != nil {
		return errorResponse(err)
	}
	return response.OK(comment)
}

// ArchiveTask handles POST /api/tasks/:id/archive.
func (c Controller) ArchiveTask(request *evo.Request) any {
	return c.mutate(request, func(taskID uint, user *auth.User) (any, error) {
		return DefaultService().Archive(taskID, user)
	})
}

// GetTaskLogs handles GET /api/tasks/:id/logs. Listing the audit
// trail requires edit permission over the task.
func (c Controller) GetTaskLogs(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	if _, err := DefaultService().GetByID(taskID, user); err != nil {
		return errorResponse(err)
	}
	var actorID *uuid.UUID
	if raw := request.Query("actor_id").String(); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(response.ErrInvalidUserID)
		}
		actorID = &id
	}
	logs, total, err := models.GetTaskLogs(taskID,
		request.Query("action").String(),
		actorID,
		request.Query("limit").Int(),
		request.Query("offset").Int())
	if err != nil {
		log.Error("failed to load task logs for task %d: %v", taskID, err)
		return response.Error(response.ErrDatabaseError)
	}
	return response.OKWithMeta(logs, &response.Meta{Total: total, Count: len(logs)})
}

// mutate wraps the shared plumbing of single-task mutation handlers.
func (c Controller) mutate(request *evo.Request, fn func(taskID uint, user *auth.User) (any, error)) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	result, err := fn(taskID, user)
	if err != nil {
		return errorResponse(err)
	}
	return response.OK(result)
}
