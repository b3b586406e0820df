package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/restify"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/nats"
	"gorm.io/gorm"
)

// Task status constants
const (
	TaskStatusToDo       = "to_do"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocked    = "blocked"
)

// Task priority bounds
const (
	TaskPriorityMin = 1
	TaskPriorityMax = 10
)

// Assignee count bounds at creation time
const (
	TaskAssigneesMin = 1
	TaskAssigneesMax = 5
)

// TaskTitleMaxLength bounds the title field
const TaskTitleMaxLength = 255

// TaskStatuses lists every status a task can hold.
var TaskStatuses = []string{TaskStatusToDo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked}

// ValidTaskStatus reports whether status is a member of the task status
// enumeration.
func ValidTaskStatus(status string) bool {
	for _, s := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Task struct {
	ID                uint       `gorm:"column:id;primaryKey" json:"id"`
	Title             string     `gorm:"column:title;size:255;not null" json:"title"`
	Description       string     `gorm:"column:description;type:text" json:"description"`
	Priority          int        `gorm:"column:priority;not null;check:priority BETWEEN 1 AND 10" json:"priority"`
	DueDate           time.Time  `gorm:"column:due_date;not null;index" json:"due_date"`
	Status            string     `gorm:"column:status;size:50;not null;check:status IN ('to_do','in_progress','completed','blocked')" json:"status"`
	OwnerID           uuid.UUID  `gorm:"column:owner_id;type:char(36);not null;index;fk:users" json:"owner_id"`
	DepartmentID      uint       `gorm:"column:department_id;not null;index;fk:departments" json:"department_id"`
	ProjectID         *uint      `gorm:"column:project_id;index;fk:projects" json:"project_id"`
	ParentTaskID      *uint      `gorm:"column:parent_task_id;index;fk:tasks" json:"parent_task_id"`
	RecurringInterval *int       `gorm:"column:recurring_interval" json:"recurring_interval"`
	Archived          bool       `gorm:"column:archived;not null;default:0;index" json:"archived"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CompletedAt       *time.Time `gorm:"column:completed_at" json:"completed_at"`

	// Relationships
	Owner       auth.User        `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
	Department  Department       `gorm:"foreignKey:DepartmentID;references:ID" json:"department,omitempty"`
	Project     *Project         `gorm:"foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Parent      *Task            `gorm:"foreignKey:ParentTaskID;references:ID" json:"parent,omitempty"`
	Subtasks    []Task           `gorm:"foreignKey:ParentTaskID;references:ID" json:"subtasks,omitempty"`
	Tags        []Tag            `gorm:"many2many:task_tags;foreignKey:ID;joinForeignKey:TaskID;references:ID;joinReferences:TagID" json:"tags,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID;references:ID" json:"assignments,omitempty"`
	Comments    []TaskComment    `gorm:"foreignKey:TaskID;references:ID" json:"comments,omitempty"`
	Attachments []TaskAttachment `gorm:"foreignKey:TaskID;references:ID" json:"attachments,omitempty"`

	restify.API
}

type TaskComment struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	TaskID    uint      `gorm:"column:task_id;not null;index;fk:tasks" json:"task_id"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:char(36);not null;index;fk:users" json:"author_id"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Task   Task      `gorm:"foreignKey:TaskID;references:ID" json:"task,omitempty"`
	Author auth.User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`

	restify.API
}

type Tag struct {
	ID   uint   `gorm:"column:id;primaryKey" json:"id"`
	Name string `gorm:"column:name;size:100;uniqueIndex;not null" json:"name"`

	// Relationships
	Tasks []Task `gorm:"many2many:task_tags;foreignKey:ID;joinForeignKey:TagID;references:ID;joinReferences:TaskID" json:"tasks,omitempty"`

	restify.API
}

// IsRecurring reports whether the task carries a recurrence interval.
func (t *Task) IsRecurring() bool {
	return t.RecurringInterval != nil && *t.RecurringInterval > 0
}

// IsSubtask reports whether the task sits under a parent task.
func (t *Task) IsSubtask() bool {
	return t.ParentTaskID != nil
}

// AssigneeIDs returns the ids of all assigned users.
func (t *Task) AssigneeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

// HasAssignee reports whether the given user is assigned to the task.
func (t *Task) HasAssignee(userID uuid.UUID) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// ToWebhookData creates a clean task map for webhook payloads,
// excluding unloaded relationships.
func (t *Task) ToWebhookData() map[string]any {
	data := map[string]any{
		"id":                 t.ID,
		"title":              t.Title,
		"description":        t.Description,
		"priority":           t.Priority,
		"due_date":           t.DueDate,
		"status":             t.Status,
		"owner_id":           t.OwnerID,
		"department_id":      t.DepartmentID,
		"project_id":         t.ProjectID,
		"parent_task_id":     t.ParentTaskID,
		"recurring_interval": t.RecurringInterval,
		"archived":           t.Archived,
		"created_at":         t.CreatedAt,
		"updated_at":         t.UpdatedAt,
		"completed_at":       t.CompletedAt,
	}

	if len(t.Assignments) > 0 {
		assignees := make([]string, 0, len(t.Assignments))
		for _, a := range t.Assignments {
			assignees = append(assignees, a.UserID.String())
		}
		data["assignees"] = assignees
	}
	if len(t.Tags) > 0 {
		tags := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			tags = append(tags, tag.Name)
		}
		data["tags"] = tags
	}

	return data
}

// GORM Hooks for Task

// AfterCreate hook - broadcast task creation to NATS and webhooks
func (t *Task) AfterCreate(tx *gorm.DB) error {
	go func() {
		subject := fmt.Sprintf("task.%d", t.ID)
		data, _ := json.Marshal(map[string]interface{}{
			"event": "task.created",
			"task":  t,
		})
		if err := nats.Publish(subject, data); err != nil {
			log.Error("Failed to publish task.created to NATS: %v", err)
		}
	}()

	go func() {
		BroadcastWebhook(WebhookEventTaskCreated, map[string]any{
			"task": t.ToWebhookData(),
		})
	}()

	return nil
}

// AfterUpdate hook - broadcast task update to NATS and webhooks
func (t *Task) AfterUpdate(tx *gorm.DB) error {
	go func() {
		subject := fmt.Sprintf("task.%d", t.ID)
		data, _ := json.Marshal(map[string]interface{}{
			"event": "task.updated",
			"task":  t,
		})
		if err := nats.Publish(subject, data); err != nil {
			log.Error("Failed to publish task.updated to NATS: %v", err)
		}
	}()

	go func() {
		BroadcastWebhook(WebhookEventTaskUpdated, map[string]any{
			"task": t.ToWebhookData(),
		})
	}()

	return nil
}

// GORM Hooks for TaskComment

// AfterCreate hook - broadcast comment creation to NATS and webhooks
func (c *TaskComment) AfterCreate(tx *gorm.DB) error {
	go func() {
		subject := fmt.Sprintf("task.%d", c.TaskID)
		data, _ := json.Marshal(map[string]interface{}{
			"event":   "comment.created",
			"comment": c,
		})
		if err := nats.Publish(subject, data); err != nil {
			log.Error("Failed to publish comment.created to NATS: %v", err)
		}
	}()

	go func() {
		BroadcastWebhook(WebhookEventCommentCreated, map[string]any{
			"comment": map[string]any{
				"id":         c.ID,
				"task_id":    c.TaskID,
				"author_id":  c.AuthorID,
				"content":    c.Content,
				"created_at": c.CreatedAt,
			},
		})
	}()

	return nil
}
