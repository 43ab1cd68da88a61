package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
)

// ProvideCovers provides cover storage on the configured backend.
func ProvideCovers(i do.Injector) (*images.Covers, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var backend images.Backend
	switch cfg.Covers.Backend {
	case config.CoversBackendS3:
		client, err := images.NewS3Client(context.Background(), images.S3Config{
			Bucket:    cfg.Covers.S3Bucket,
			Prefix:    cfg.Covers.S3Prefix,
			Region:    cfg.Covers.S3Region,
			Endpoint:  cfg.Covers.S3Endpoint,
			AccessKey: cfg.Covers.S3AccessKey,
			SecretKey: cfg.Covers.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("cover storage: %w", err)
		}
		s3Storage, err := images.NewS3Storage(client, cfg.Covers.S3Bucket, cfg.Covers.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("cover storage: %w", err)
		}
		backend = s3Storage
		log.Info("Cover storage initialized", "backend", "s3", "bucket", cfg.Covers.S3Bucket)

	default:
		fsStorage, err := images.NewStorage(cfg.Data.BasePath)
		if err != nil {
			return nil, fmt.Errorf("cover storage: %w", err)
		}
		backend = fsStorage
		log.Info("Cover storage initialized", "backend", "fs", "path", cfg.Data.BasePath)
	}

	return images.NewCovers(backend, cfg.Server.PublicURL, log.Component("covers")), nil
}
