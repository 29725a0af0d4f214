package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

// MaxImageSize is the largest accepted upload
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// FileStorage stores uploaded files and returns their public URL
type FileStorage interface {
	// Save stores the file under subPath and returns the URL it is served from
	Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (string, error)

	// Delete removes the file behind a URL returned by Save. Missing files are not an error.
	Delete(ctx context.Context, fileURL string) error
}

// DetectImage sniffs the upload and returns its content type and canonical extension.
// Only jpeg, png, webp and gif up to MaxImageSize are accepted.
func DetectImage(fileHeader *multipart.FileHeader) (contentType, ext string, err error) {
	if fileHeader == nil {
		return "", "", apperrors.NewBadRequestError("An image file is required")
	}
	if fileHeader.Size > MaxImageSize {
		return "", "", apperrors.NewBadRequestError(fmt.Sprintf("Image exceeds the %d MB limit", MaxImageSize>>20))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	contentType = http.DetectContentType(head[:n])
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", apperrors.NewBadRequestError("Only JPEG, PNG, WebP or GIF images are allowed")
	}
	return contentType, ext, nil
}
