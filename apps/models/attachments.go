package models

import (
	"time"

	"github.com/getevo/restify"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
)

// TaskAttachment records file metadata for objects stored in S3. The
// bytes themselves never pass through the task core; the storage app
// uploads via presigned URLs and registers the result here.
type TaskAttachment struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	TaskID       uint      `gorm:"column:task_id;not null;index;fk:tasks" json:"task_id"`
	UploadedBy   uuid.UUID `gorm:"column:uploaded_by;type:char(36);not null;fk:users" json:"uploaded_by"`
	FileName     string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	ContentType  string    `gorm:"column:content_type;size:100" json:"content_type"`
	Size         int64     `gorm:"column:size;not null" json:"size"`
	StorageKey   string    `gorm:"column:storage_key;size:500;not null;uniqueIndex" json:"storage_key"`
	ThumbnailKey *string   `gorm:"column:thumbnail_key;size:500" json:"thumbnail_key"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Task     Task      `gorm:"foreignKey:TaskID;references:ID" json:"task,omitempty"`
	Uploader auth.User `gorm:"foreignKey:UploadedBy;references:UserID" json:"uploader,omitempty"`

	restify.API
}

func (TaskAttachment) TableName() string {
	return "task_attachments"
}
