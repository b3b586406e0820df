package storage

import (
	"context"
	"strings"

	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/lib/imageutil"
)

// GenerateThumbnail builds and stores a thumbnail for an image
// attachment. Non-image attachments and failures are skipped; the
// attachment stays usable without a thumbnail.
func GenerateThumbnail(attachmentID uint) {
	var attachment models.TaskAttachment
	if err := db.First(&attachment, attachmentID).Error; err != nil {
		log.Error("Thumbnail: attachment %d not found: %v", attachmentID, err)
		return
	}
	if !imageutil.IsImageContentType(attachment.ContentType) {
		return
	}

	ctx := context.Background()
	data, _, err := Download(ctx, attachment.StorageKey)
	if err != nil {
		log.Error("Thumbnail: failed to download %s: %v", attachment.StorageKey, err)
		return
	}

	thumb, err := imageutil.Thumbnail(data, imageutil.GetThumbnailSize())
	if err != nil {
		log.Warning("Thumbnail: failed to build thumbnail for %s: %v", attachment.StorageKey, err)
		return
	}

	thumbKey := thumbnailKey(attachment.StorageKey)
	if err := Upload(ctx, thumbKey, thumb, "image/jpeg"); err != nil {
		log.Error("Thumbnail: failed to upload %s: %v", thumbKey, err)
		return
	}

	if err := db.Model(&models.TaskAttachment{}).
		Where("id = ?", attachment.ID).
		Update("thumbnail_key", thumbKey).Error; err != nil {
		log.Error("Thumbnail: failed to record thumbnail for attachment %d: %v", attachment.ID, err)
	}
}

// thumbnailKey derives the thumbnail object key from the original key.
func thumbnailKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx > strings.LastIndex(key, "/") {
		key = key[:idx]
	}
	return key + "_thumb.jpg"
}
