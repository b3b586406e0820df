package storage

import (
	"context"
	"errors"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/apps/redis"
	"github.com/taskdesk/taskdesk-backend/apps/tasks"
	"github.com/taskdesk/taskdesk-backend/lib/response"
	"gorm.io/gorm"
)

type Controller struct{}

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

// editableTask loads the task through the task service so the caller's
// edit permission is enforced the same way everywhere.
func editableTask(taskID uint, user *auth.User) (*tasks.TaskView, any) {
	view, err := tasks.DefaultService().GetByID(taskID, user)
	if err != nil {
		return nil, response.Error(response.ErrTaskNotFound)
	}
	if !view.CanEdit {
		return nil, response.Error(response.ErrAccessDenied)
	}
	return view, nil
}

// PresignUploadRequest asks for a presigned upload slot.
type PresignUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// PresignUploadResponse carries the upload URL and the object key the
// client must echo back when registering the attachment.
type PresignUploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignUpload handles POST /api/tasks/:id/attachments/presign. The
// client uploads straight to object storage and then registers the
// attachment.
func (c Controller) PresignUpload(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	if !redis.CheckRateLimit("attachment.upload", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	if !IsEnabled() {
		return response.Error(response.NewError(response.ErrorCodeInternalError, "Attachment storage is not configured", 503))
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	if _, errResp := editableTask(taskID, user); errResp != nil {
		return errResp
	}

	var body PresignUploadRequest
	if err := request.BodyParser(&body); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if body.Filename == "" || body.ContentType == "" {
		return response.Error(response.ErrMissingRequired)
	}

	key := GenerateKey(GetUploadPrefix(), body.Filename)
	presign := NewPresignClient()
	if presign == nil {
		return response.Error(response.NewError(response.ErrorCodeInternalError, "Attachment storage is not configured", 503))
	}
	url, err := presign.GenerateUploadURL(context.Background(), key, body.ContentType, PresignedURLExpiry)
	if err != nil {
		log.Error("Failed to presign attachment upload: %v", err)
		return response.Error(response.ErrInternalError)
	}
	return response.OK(PresignUploadResponse{URL: url, Key: key})
}

// RegisterAttachmentRequest records a finished upload.
type RegisterAttachmentRequest struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// RegisterAttachment handles POST /api/tasks/:id/attachments. It
// verifies the object actually arrived, records the attachment row,
// and schedules thumbnail generation for images.
func (c Controller) RegisterAttachment(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	if !redis.CheckRateLimit("attachment.upload", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	if !IsEnabled() {
		return response.Error(response.NewError(response.ErrorCodeInternalError, "Attachment storage is not configured", 503))
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	if _, errResp := editableTask(taskID, user); errResp != nil {
		return errResp
	}

	var body RegisterAttachmentRequest
	if err := request.BodyParser(&body); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if body.Key == "" || body.Filename == "" || body.ContentType == "" {
		return response.Error(response.ErrMissingRequired)
	}

	exists, err := Exists(context.Background(), body.Key)
	if err != nil {
		log.Error("Failed to verify uploaded object %s: %v", body.Key, err)
		return response.Error(response.ErrInternalError)
	}
	if !exists {
		return response.Error(response.NewError(response.ErrorCodeInvalidInput, "Uploaded object not found in storage", 400))
	}

	size, err := ObjectSize(context.Background(), body.Key)
	if err != nil {
		log.Error("Failed to read size of object %s: %v", body.Key, err)
	}

	attachment := models.TaskAttachment{
		TaskID:      taskID,
		UploadedBy:  user.UserID,
		FileName:    body.Filename,
		ContentType: body.ContentType,
		Size:        size,
		StorageKey:  body.Key,
	}
	if err := db.Create(&attachment).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	models.LogTask(models.TaskLogEntry{
		TaskID:  taskID,
		Action:  models.ActionAttach,
		ActorID: &user.UserID,
		Metadata: map[string]any{
			"attachment_id": attachment.ID,
			"filename":      attachment.FileName,
		},
	})

	go GenerateThumbnail(attachment.ID)

	return response.Created(attachment)
}

// ListAttachments handles GET /api/tasks/:id/attachments.
func (c Controller) ListAttachments(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	taskID := uint(request.Param("id").Int())
	if taskID == 0 {
		return response.Error(response.ErrInvalidTaskID)
	}
	if _, err := tasks.DefaultService().GetByID(taskID, user); err != nil {
		return response.Error(response.ErrTaskNotFound)
	}

	var attachments []models.TaskAttachment
	if err := db.Where("task_id = ?", taskID).Order("created_at DESC").Find(&attachments).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}
	return response.List(attachments, len(attachments))
}

// DownloadURL handles GET /api/attachments/:id/url and returns a
// short-lived presigned link.
func (c Controller) DownloadURL(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	attachment, errResp := c.loadAttachment(request)
	if errResp != nil {
		return errResp
	}
	if _, err := tasks.DefaultService().GetByID(attachment.TaskID, user); err != nil {
		return response.Error(response.ErrTaskNotFound)
	}

	presign := NewPresignClient()
	if presign == nil {
		return response.Error(response.NewError(response.ErrorCodeInternalError, "Attachment storage is not configured", 503))
	}
	url, err := presign.GenerateDownloadURL(context.Background(), attachment.StorageKey, 15*time.Minute)
	if err != nil {
		log.Error("Failed to presign attachment download: %v", err)
		return response.Error(response.ErrInternalError)
	}

	result := map[string]any{"url": url}
	if attachment.ThumbnailKey != nil {
		if thumbURL, err := presign.GenerateDownloadURL(context.Background(), *attachment.ThumbnailKey, 15*time.Minute); err == nil {
			result["thumbnail_url"] = thumbURL
		}
	}
	return response.OK(result)
}

// DeleteAttachment handles DELETE /api/attachments/:id.
func (c Controller) DeleteAttachment(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	attachment, errResp := c.loadAttachment(request)
	if errResp != nil {
		return errResp
	}
	if _, errResp := editableTask(attachment.TaskID, user); errResp != nil {
		return errResp
	}

	if err := db.Delete(attachment).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	// Remove the objects after the row so a storage hiccup never
	// leaves a dangling record.
	go func() {
		if err := Delete(context.Background(), attachment.StorageKey); err != nil {
			log.Error("Failed to delete attachment object %s: %v", attachment.StorageKey, err)
		}
		if attachment.ThumbnailKey != nil {
			if err := Delete(context.Background(), *attachment.ThumbnailKey); err != nil {
				log.Error("Failed to delete thumbnail object %s: %v", *attachment.ThumbnailKey, err)
			}
		}
	}()

	return response.Message("Attachment deleted")
}

func (c Controller) loadAttachment(request *evo.Request) (*models.TaskAttachment, any) {
	attachmentID := request.Param("id").Int()
	if attachmentID == 0 {
		return nil, response.Error(response.ErrInvalidInput)
	}
	var attachment models.TaskAttachment
	if err := db.First(&attachment, attachmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.Error(response.ErrNotFound)
		}
		return nil, response.Error(response.ErrDatabaseError)
	}
	return &attachment, nil
}
