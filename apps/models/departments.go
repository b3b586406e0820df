package models

import (
	"time"

	"github.com/getevo/restify"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
)

// Department status constants
const (
	DepartmentStatusActive    = "active"
	DepartmentStatusSuspended = "suspended"
)

// Department is a node in the organisational tree. ParentID is nil for
// top-level departments; the parent chain is expected to be acyclic.
type Department struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;size:255;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	ParentID    *uint     `gorm:"column:parent_id;index" json:"parent_id"`
	Status      string    `gorm:"column:status;size:20;not null;default:'active';check:status IN ('active','suspended')" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Parent   *Department  `gorm:"foreignKey:ParentID;references:ID" json:"parent,omitempty"`
	Children []Department `gorm:"foreignKey:ParentID;references:ID" json:"children,omitempty"`
	Tasks    []Task       `gorm:"foreignKey:DepartmentID" json:"tasks,omitempty"`
	Users    []auth.User  `gorm:"foreignKey:DepartmentID;references:ID" json:"users,omitempty"`

	restify.API
}
