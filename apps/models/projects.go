package models

import (
	"time"

	"github.com/getevo/restify"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
)

// Project status constants
const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// Project groups related tasks. Subtasks always carry the project of
// their parent task.
type Project struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	Name         string    `gorm:"column:name;size:255;not null" json:"name"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	DepartmentID uint      `gorm:"column:department_id;not null;index;fk:departments" json:"department_id"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:char(36);not null;index;fk:users" json:"owner_id"`
	Status       string    `gorm:"column:status;size:20;not null;default:'active';check:status IN ('active','archived')" json:"status"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Department Department `gorm:"foreignKey:DepartmentID;references:ID" json:"department,omitempty"`
	Owner      auth.User  `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
	Tasks      []Task     `gorm:"foreignKey:ProjectID;references:ID" json:"tasks,omitempty"`

	restify.API
}
