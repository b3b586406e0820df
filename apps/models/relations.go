package models

import (
	"time"

	"github.com/getevo/restify"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
)

// TaskAssignment joins a task and an assigned user, carrying who made
// the assignment and when. Rows are created and deleted alongside task
// mutations; the join has no lifecycle of its own.
type TaskAssignment struct {
	TaskID     uint      `gorm:"column:task_id;primaryKey;fk:tasks" json:"task_id"`
	UserID     uuid.UUID `gorm:"column:user_id;type:char(36);primaryKey;fk:users" json:"user_id"`
	AssignedBy uuid.UUID `gorm:"column:assigned_by;type:char(36);not null;fk:users" json:"assigned_by"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Task     Task      `gorm:"foreignKey:TaskID;references:ID" json:"task,omitempty"`
	User     auth.User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Assigner auth.User `gorm:"foreignKey:AssignedBy;references:UserID" json:"assigner,omitempty"`

	restify.API
}

func (TaskAssignment) TableName() string {
	return "task_assignments"
}

// TaskTag is the join row between tasks and tags.
type TaskTag struct {
	TaskID uint `gorm:"column:task_id;primaryKey;fk:tasks" json:"task_id"`
	TagID  uint `gorm:"column:tag_id;primaryKey;fk:tags" json:"tag_id"`

	// Relationships
	Task Task `gorm:"foreignKey:TaskID;references:ID" json:"task,omitempty"`
	Tag  Tag  `gorm:"foreignKey:TagID;references:ID" json:"tag,omitempty"`

	restify.API
}

func (TaskTag) TableName() string {
	return "task_tags"
}
