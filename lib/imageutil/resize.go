package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/getevo/evo/v2/lib/settings"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// GetStoragePath returns the local storage path from settings
func GetStoragePath() string {
	path := settings.Get("STORAGE.PATH").String()
	if path == "" {
		path = "uploads"
	}
	return path
}

// GetAvatarSize returns the avatar size from settings (default 64)
func GetAvatarSize() int {
	size := settings.Get("STORAGE.AVATAR_SIZE").Int()
	if size <= 0 {
		size = 64
	}
	return size
}

// GetThumbnailSize returns the attachment thumbnail bound from settings
// (default 320). Thumbnails keep aspect ratio inside this bound.
func GetThumbnailSize() int {
	size := settings.Get("STORAGE.THUMBNAIL_SIZE").Int()
	if size <= 0 {
		size = 320
	}
	return size
}

// Thumbnail scales an encoded image down so its longer edge fits
// maxEdge, preserving aspect ratio, and returns it re-encoded as JPEG.
// Images already inside the bound are still re-encoded so thumbnails
// have a uniform format.
func Thumbnail(data []byte, maxEdge int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	targetW, targetH := width, height
	if width > maxEdge || height > maxEdge {
		if width >= height {
			targetW = maxEdge
			targetH = height * maxEdge / width
		} else {
			targetH = maxEdge
			targetW = width * maxEdge / height
		}
		if targetW < 1 {
			targetW = 1
		}
		if targetH < 1 {
			targetH = 1
		}
	}

	resized := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// IsImageContentType reports whether contentType describes an image the
// thumbnailer can decode.
func IsImageContentType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}

// ProcessAvatarFromBase64 takes a base64 encoded image, resizes it to
// a square of the configured size, and saves it to disk. Returns the
// relative URL path.
func ProcessAvatarFromBase64(base64Data string, subdir string) (string, error) {
	// Expected format: data:image/jpeg;base64,<payload>
	parts := strings.Split(base64Data, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid base64 format")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	targetSize := GetAvatarSize()
	resizedImg := resizeAndCropToSquare(img, targetSize)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	filename := uuid.New().String() + ".jpg"
	storagePath := GetStoragePath()
	avatarDir := filepath.Join(storagePath, "avatars", subdir)

	if err := os.MkdirAll(avatarDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(avatarDir, filename)
	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return "/uploads/avatars/" + subdir + "/" + filename, nil
}

// resizeAndCropToSquare crops an image to a center square and resizes
// it to targetSize.
func resizeAndCropToSquare(img image.Image, targetSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var cropRect image.Rectangle
	if width > height {
		offset := (width - height) / 2
		cropRect = image.Rect(offset, 0, offset+height, height)
	} else if height > width {
		offset := (height - width) / 2
		cropRect = image.Rect(0, offset, width, offset+width)
	} else {
		cropRect = bounds
	}

	croppedSize := cropRect.Dx()
	cropped := image.NewRGBA(image.Rect(0, 0, croppedSize, croppedSize))
	draw.Copy(cropped, image.Point{}, img, cropRect, draw.Src, nil)

	resized := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.CatmullRom.Scale(resized, resized.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

	return resized
}

// DeleteAvatar removes an avatar file from disk
func DeleteAvatar(avatarURL string) error {
	if avatarURL == "" {
		return nil
	}

	relativePath := strings.TrimPrefix(avatarURL, "/uploads/")
	if relativePath == avatarURL {
		// External URL, nothing stored locally
		return nil
	}

	storagePath := GetStoragePath()
	filePath := filepath.Join(storagePath, relativePath)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(filePath)
}

func init() {
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
