package storage

import (
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/log"
)

// App wires attachment storage.
type App struct{}

func (app App) Register() error {
	if err := Initialize(); err != nil {
		log.Warning("Failed to initialize S3 storage: %v", err)
	}
	return nil
}

func (app App) Router() error {
	var controller Controller

	evo.Post("/api/tasks/:id/attachments/presign", controller.PresignUpload)
	evo.Post("/api/tasks/:id/attachments", controller.RegisterAttachment)
	evo.Get("/api/tasks/:id/attachments", controller.ListAttachments)
	evo.Get("/api/attachments/:id/url", controller.DownloadURL)
	evo.Delete("/api/attachments/:id", controller.DeleteAttachment)

	return nil
}

func (app App) WhenReady() error {
	return nil
}

func (app App) Name() string {
	return "storage"
}
