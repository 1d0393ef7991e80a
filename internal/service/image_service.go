package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"openobservatory/internal/config"
	"openobservatory/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "./uploads/images"
	DefaultImageMaxUploadSizeMB = 10
	MaxImageEdge                = 1024
	WebPQuality                 = 80
	// MediaURLPrefix is where the upload directory is served.
	MediaURLPrefix = "/media/i/"
)

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadedImage describes a stored, normalized image.
type UploadedImage struct {
	Hash      string `json:"hash"`
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

type ImageService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadDir is the directory served under MediaURLPrefix.
func (s *ImageService) UploadDir() string { return s.uploadDir }

// MaxUploadSizeBytes is the largest accepted upload.
func (s *ImageService) MaxUploadSizeBytes() int64 { return s.maxUploadSizeBytes }

// Upload validates, downsizes and re-encodes an image to WebP. Files are
// content addressed, so uploading the same picture twice is idempotent.
func (s *ImageService) Upload(_ context.Context, in UploadImageInput) (*UploadedImage, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	if sniffedFormat(in.Content) == "" {
		return nil, models.NewValidationError("Invalid image type")
	}
	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	actual, ok := imageFormats[format]
	if !ok {
		return nil, models.NewValidationError("Unsupported image format")
	}
	if claimed := mediaType(in.ContentType); strings.HasPrefix(claimed, "image/") && canonicalMIME(claimed) != actual {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	resized := resizeToFit(decoded, MaxImageEdge, MaxImageEdge)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	sum := sha256.Sum256(encoded)
	hash := hex.EncodeToString(sum[:])
	name := hash + ".webp"
	if err := storeOnce(filepath.Join(s.uploadDir, name), encoded); err != nil {
		return nil, models.NewInternalError(err)
	}

	b := resized.Bounds()
	return &UploadedImage{
		Hash:      hash,
		URL:       MediaURLPrefix + name,
		Width:     b.Dx(),
		Height:    b.Dy(),
		SizeBytes: int64(len(encoded)),
	}, nil
}

// resizeToFit scales src down, keeping its aspect ratio, so that it fits
// in maxWidth x maxHeight. Smaller images are returned unchanged.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// imageFormats maps decoder names to the MIME type they accept.
var imageFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// sniffedFormat names the decoder for content, or "" when the bytes do
// not look like any supported image.
func sniffedFormat(content []byte) string {
	sniffed := http.DetectContentType(content)
	for format, mimeType := range imageFormats {
		if sniffed == mimeType {
			return format
		}
	}
	return ""
}

func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func canonicalMIME(mt string) string {
	if mt == "image/jpg" {
		return "image/jpeg"
	}
	return mt
}

// storeOnce writes data to path unless it already exists. The write goes
// through a temp file so readers never see a partial image.
func storeOnce(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
