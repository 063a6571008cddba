package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"sengketa/internal/blob/core"
	"sengketa/internal/blob/fs"
	"sengketa/internal/blob/memory"
	"sengketa/internal/blob/s3"
	"sengketa/internal/config"
	"sengketa/internal/metrics"
)

// OpenStore builds the blob backend selected by cfg. The fs driver defaults
// to <stateDir>/documents when no root is configured.
func OpenStore(ctx context.Context, cfg config.DocumentsConfig, stateDir string) (core.Store, error) {
	switch core.Driver(cfg.Driver) {
	case core.DriverMemory:
		return memory.New(), nil
	case "", core.DriverFilesystem:
		root := cfg.Root
		if root == "" {
			root = filepath.Join(stateDir, "documents")
		}
		return fs.New(root)
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown document driver %q", cfg.Driver)
	}
}

// Open returns a Service over the configured backend.
func Open(ctx context.Context, cfg config.DocumentsConfig, stateDir string, m *metrics.Metrics, logger *slog.Logger) (Service, error) {
	store, err := OpenStore(ctx, cfg, stateDir)
	if err != nil {
		return Service{}, err
	}
	return Service{Store: store, Metrics: m, Logger: logger, AllowedTypes: cfg.AllowedTypes}, nil
}
