// Package artifact stores rendered outputs. Every chart run ends with a
// handful of write-once files (SVG, HTML, CSV); the Store interface keeps
// the renderers indifferent to whether those land on local disk, in memory
// during tests, or in an S3 bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthline/chartpress/internal/config"
	"github.com/hearthline/chartpress/internal/domain"
)

// ErrNotFound reports a missing artifact key.
var ErrNotFound = errors.New("artifact not found")

// Store persists rendered artifacts. Put overwrites: re-running a chart
// replaces its outputs.
type Store interface {
	Put(ctx context.Context, a domain.Artifact) error
	Get(ctx context.Context, key string) (domain.Artifact, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Driver() string
}

// Open builds the Store named by the config driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.ArtifactDriver {
	case config.DriverFS:
		return NewFilesystem(cfg.ArtifactRoot)
	case config.DriverS3:
		return NewS3(ctx, S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.S3Region,
		})
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown artifact driver %q", cfg.ArtifactDriver)
	}
}
