package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnail_PreservesAspectRatio(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxEdge       int
		wantW, wantH  int
	}{
		{"wide image", 800, 400, 320, 320, 160},
		{"tall image", 400, 800, 320, 160, 320},
		{"square image", 600, 600, 320, 320, 320},
		{"already small", 100, 50, 320, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodePNG(t, tt.width, tt.height)
			out, err := Thumbnail(data, tt.maxEdge)
			if err != nil {
				t.Fatalf("Thumbnail: %v", err)
			}
			img, format, err := image.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("failed to decode thumbnail: %v", err)
			}
			if format != "jpeg" {
				t.Fatalf("expected jpeg output, got %s", format)
			}
			if img.Bounds().Dx() != tt.wantW || img.Bounds().Dy() != tt.wantH {
				t.Fatalf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, img.Bounds().Dx(), img.Bounds().Dy())
			}
		})
	}
}

func TestThumbnail_RejectsGarbage(t *testing.T) {
	if _, err := Thumbnail([]byte("not an image"), 320); err == nil {
		t.Fatal("expected an error for undecodable input")
	}
}

func TestIsImageContentType(t *testing.T) {
	for _, contentType := range []string{"image/jpeg", "image/jpg", "image/png", "IMAGE/PNG"} {
		if !IsImageContentType(contentType) {
			t.Fatalf("expected %s to be accepted", contentType)
		}
	}
	for _, contentType := range []string{"image/gif", "application/pdf", "text/html", ""} {
		if IsImageContentType(contentType) {
			t.Fatalf("expected %s to be rejected", contentType)
		}
	}
}
