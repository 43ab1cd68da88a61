package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/id"
)

// MaxCoverBytes caps an uploaded cover.
const MaxCoverBytes = 10 << 20

// coverPath is the public route covers are served from.
const coverPath = "/api/v1/covers/"

var formatContentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Cover is a stored cover image.
type Cover struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	BlurHash    string `json:"blurHash,omitempty"`
	ContentType string `json:"contentType"`
	ETag        string `json:"etag"`
}

// Covers uploads cover images and resolves them back from their URLs.
type Covers struct {
	backend   Backend
	publicURL string
	logger    *slog.Logger
}

// NewCovers creates a cover service. publicURL prefixes generated image URLs.
func NewCovers(backend Backend, publicURL string, logger *slog.Logger) *Covers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Covers{
		backend:   backend,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Upload validates and stores image data and returns where it can be fetched.
// Each upload gets a fresh id, so URLs never serve stale bytes.
func (c *Covers) Upload(ctx context.Context, data []byte) (*Cover, error) {
	if len(data) == 0 {
		return nil, domainerrors.Validation("cover image is empty")
	}
	if len(data) > MaxCoverBytes {
		return nil, domainerrors.Validationf("cover image exceeds %d bytes", MaxCoverBytes)
	}

	img, format, err := DecodeImage(data)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "cover is not a supported image")
	}
	contentType, ok := formatContentTypes[format]
	if !ok {
		return nil, domainerrors.Validationf("unsupported image format %q", format)
	}

	coverID, err := id.Generate("cover")
	if err != nil {
		return nil, fmt.Errorf("generate cover id: %w", err)
	}

	if err := c.backend.Save(ctx, coverID, data, contentType); err != nil {
		return nil, fmt.Errorf("save cover: %w", err)
	}

	// A missing placeholder is not worth failing the upload.
	hash, err := ComputeBlurHash(img)
	if err != nil {
		c.logger.Warn("blurhash computation failed", "cover_id", coverID, "error", err)
	}

	cover := &Cover{
		ID:          coverID,
		URL:         c.publicURL + coverPath + coverID,
		BlurHash:    hash,
		ContentType: contentType,
		ETag:        Hash(data),
	}

	c.logger.Info("cover uploaded",
		"cover_id", coverID,
		"format", format,
		"size", len(data))

	return cover, nil
}

// Open returns the bytes and content type of a stored cover.
func (c *Covers) Open(ctx context.Context, coverID string) ([]byte, string, error) {
	data, err := c.backend.Get(ctx, coverID)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

// Delete removes the cover an image URL points at. URLs that are not ours are ignored.
func (c *Covers) Delete(ctx context.Context, imageURL string) error {
	coverID, ok := CoverIDFromURL(imageURL)
	if !ok {
		return nil
	}
	if err := c.backend.Delete(ctx, coverID); err != nil {
		return fmt.Errorf("delete cover %s: %w", coverID, err)
	}
	c.logger.Info("cover deleted", "cover_id", coverID)
	return nil
}

// CoverIDFromURL extracts the cover id from a URL produced by Upload.
func CoverIDFromURL(imageURL string) (string, bool) {
	_, after, found := strings.Cut(imageURL, coverPath)
	if !found || after == "" || checkKey(after) != nil {
		return "", false
	}
	return after, true
}
