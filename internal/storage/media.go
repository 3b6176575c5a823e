package storage

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/recipeclip/internal/domain"
	_ "golang.org/x/image/webp"
)

// MediaKind is the folder an uploaded object is filed under.
type MediaKind string

const (
	MediaVideo     MediaKind = "videos"
	MediaThumbnail MediaKind = "thumbnails"
	MediaProfile   MediaKind = "profiles"
)

var videoTypes = map[string]string{
	".mp4": "video/mp4",
	".avi": "video/x-msvideo",
	".mov": "video/quicktime",
	".wmv": "video/x-ms-wmv",
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Upload is a file received from a client or read from disk.
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

// ContentType returns the MIME type for filename if kind accepts its
// extension, or domain.ErrUnsupportedMedia.
func ContentType(kind MediaKind, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := imageTypes
	if kind == MediaVideo {
		allowed = videoTypes
	}
	contentType, ok := allowed[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedMedia, ext)
	}
	return contentType, nil
}

// ObjectKey builds a collision-free key such as videos/<uuid>.mp4.
func ObjectKey(kind MediaKind, filename string) string {
	return fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

// DetectImage decodes the image header and rewinds r.
// Returns:
//   - string: decoded format (png, jpeg, gif, webp).
//   - error: wraps domain.ErrUnsupportedMedia if r is not a supported image.
func DetectImage(r io.ReadSeeker) (string, error) {
	_, format, err := image.DecodeConfig(r)
	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
		return "", seekErr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnsupportedMedia, err)
	}
	return format, nil
}

// Store validates up and uploads it under a fresh key of the given kind.
// Images are decoded before upload to reject disguised files.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - store: destination storage.
//   - kind: media folder, which also decides the accepted extensions.
//   - up: file to upload.
// Returns:
//   - string: object key of the stored file.
//   - error: domain.ErrUnsupportedMedia for rejected files, or the upload error.
func Store(ctx context.Context, store ObjectStorage, kind MediaKind, up *Upload) (string, error) {
	contentType, err := ContentType(kind, up.Filename)
	if err != nil {
		return "", err
	}
	if kind != MediaVideo {
		if _, err := DetectImage(up.Body); err != nil {
			return "", err
		}
	}

	key := ObjectKey(kind, up.Filename)
	if err := store.Upload(ctx, key, up.Body, up.Size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// KeyFromURL recovers the object key from a URL produced by store.GetURL.
func KeyFromURL(store ObjectStorage, url string) (string, bool) {
	prefix := store.GetURL("")
	if url == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// Remove deletes the given keys, skipping empty ones, and returns the
// first failure after attempting all of them.
func Remove(ctx context.Context, store ObjectStorage, keys ...string) error {
	var first error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil && first == nil {
			first = err
		}
	}
	return first
}
