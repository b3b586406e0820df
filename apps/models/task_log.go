package models

import (
	"time"

	"github.com/getevo/restify"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"gorm.io/datatypes"
)

// Task log action constants
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionStatusChange = "status_change"
	ActionArchive      = "archive"
	ActionAssign       = "assign"
	ActionUnassign     = "unassign"
	ActionComment      = "comment"
	ActionAttach       = "attach"
	ActionRecurrence   = "recurrence"
)

// TaskLog is the append-only audit trail for task mutations. Business
// logic only ever inserts rows; nothing updates or deletes them.
type TaskLog struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TaskID    uint           `gorm:"column:task_id;not null;index;fk:tasks" json:"task_id"`
	Action    string         `gorm:"column:action;size:50;not null;index" json:"action"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:char(36);index;fk:users" json:"actor_id"`
	OldValues datatypes.JSON `gorm:"column:old_values;type:json" json:"old_values,omitempty"`
	NewValues datatypes.JSON `gorm:"column:new_values;type:json" json:"new_values,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:json" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`

	// Relationships
	Actor *auth.User `gorm:"foreignKey:ActorID;references:UserID" json:"actor,omitempty"`

	restify.API
}

func (TaskLog) TableName() string {
	return "task_logs"
}

// TaskLogEntry is a helper struct for creating task log entries
type TaskLogEntry struct {
	TaskID    uint
	Action    string
	ActorID   *uuid.UUID
	OldValues map[string]any
	NewValues map[string]any
	Metadata  map[string]any
}
