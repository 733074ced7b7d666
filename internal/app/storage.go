package app

import (
	"context"
	"fmt"

	"github.com/tallyform/tallyform/internal/shared"
	"github.com/tallyform/tallyform/internal/storage"
)

// NewStore builds the container store selected by STORAGE_DRIVER.
func NewStore(ctx context.Context, cfg *Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "memory":
		return storage.NewMemory("submissions"), nil
	case "fs":
		return storage.NewFS(cfg.StorageRoot)
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Root:            "submissions",
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrConfiguration, cfg.StorageDriver)
	}
}
