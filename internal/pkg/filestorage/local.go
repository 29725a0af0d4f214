package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/ekklesia/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory where files are stored
	baseURL  string // URL prefix the root directory is served under
}

// NewLocalStorage creates a new LocalStorage instance and ensures basePath exists.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save stores an image under subPath with a generated name
func (ls *LocalStorage) Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (string, error) {
	_, ext, err := DetectImage(fileHeader)
	if err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	subPath = strings.Trim(path.Clean("/"+subPath), "/")
	dir := filepath.Join(ls.basePath, filepath.FromSlash(subPath))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	name := uuid.New().String() + ext
	dstPath := filepath.Join(dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	key := name
	if subPath != "" {
		key = subPath + "/" + name
	}
	url := ls.baseURL + "/" + key

	logger.Ctx(ctx).Info().Str("filename", fileHeader.Filename).Str("url", url).Msg("File saved successfully")
	return url, nil
}

// Delete removes the file behind fileURL. Files outside the storage root are refused.
func (ls *LocalStorage) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}

	physical, err := ls.pathFor(fileURL)
	if err != nil {
		return err
	}

	if err := os.Remove(physical); err != nil {
		if os.IsNotExist(err) {
			logger.Ctx(ctx).Warn().Str("path", physical).Msg("File to delete does not exist")
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Ctx(ctx).Info().Str("path", physical).Msg("File deleted successfully")
	return nil
}

func (ls *LocalStorage) pathFor(fileURL string) (string, error) {
	key := strings.TrimPrefix(fileURL, ls.baseURL)
	key = strings.Trim(path.Clean("/"+key), "/")
	if key == "" {
		return "", fmt.Errorf("invalid file path: %s", fileURL)
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(key)), nil
}
