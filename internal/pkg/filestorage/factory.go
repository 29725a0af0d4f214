package filestorage

import (
	"context"
	"fmt"
	"strings"

	"github.com/yigit/ekklesia/internal/config"
)

// LocalURLPath is where the local driver's files are served
const LocalURLPath = "/uploads"

// New builds the storage driver selected in the configuration
func New(ctx context.Context, cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			PublicURL: cfg.Storage.S3PublicURL,
		})
	case "", "local":
		baseURL := strings.TrimRight(cfg.Server.PublicBaseURL, "/") + LocalURLPath
		return NewLocalStorage(cfg.Server.StoragePath, baseURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
