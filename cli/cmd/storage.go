package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/narrator/cli/config"
	"github.com/pithecene-io/narrator/lode"
)

// loadConfig loads --config (or the defaults) and applies storage flag
// overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyStorageFlags(c, &cfg.Report)
	return cfg, nil
}

func applyStorageFlags(c *cli.Context, rc *config.ReportConfig) {
	if c.IsSet("storage-backend") {
		rc.Backend = c.String("storage-backend")
	}
	if c.IsSet("storage-path") {
		rc.Path = c.String("storage-path")
	}
	if c.IsSet("storage-region") {
		rc.Region = c.String("storage-region")
	}
	if c.IsSet("storage-endpoint") {
		rc.Endpoint = c.String("storage-endpoint")
	}
	if c.IsSet("storage-path-style") {
		rc.S3PathStyle = c.Bool("storage-path-style")
	}
}

// buildStoreFactory creates the Lode store factory for the configured
// backend. With create set, a missing fs root is created; otherwise it is an
// error.
func buildStoreFactory(ctx context.Context, rc config.ReportConfig, create bool) (lodelibrary.StoreFactory, error) {
	if rc.Path == "" {
		return nil, errors.New("storage path is required")
	}

	switch rc.Backend {
	case config.BackendFS:
		if create {
			if err := os.MkdirAll(rc.Path, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		} else if _, err := os.Stat(rc.Path); err != nil {
			return nil, fmt.Errorf("storage path not readable: %w", err)
		}
		return lodelibrary.NewFSFactory(rc.Path), nil

	case config.BackendS3:
		bucket, prefix := lode.ParseS3Path(rc.Path)
		return lode.NewS3Factory(ctx, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       rc.Region,
			Endpoint:     rc.Endpoint,
			UsePathStyle: rc.S3PathStyle,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be fs or s3)", rc.Backend)
	}
}
