// Package cmdutil provides shared utilities for sstablectl commands: flag
// state and the object-store/Store construction every subcommand needs.
package cmdutil

import (
	"context"
	"fmt"
	"os"

	"github.com/brookdb/brookdb/pkg/objstore"
	"github.com/brookdb/brookdb/pkg/objstore/fsstore"
	"github.com/brookdb/brookdb/pkg/objstore/memstore"
	"github.com/brookdb/brookdb/pkg/objstore/s3store"
	"github.com/brookdb/brookdb/pkg/sstable/store"
	"github.com/brookdb/brookdb/pkg/sstconfig"
	"github.com/brookdb/brookdb/pkg/sstmetrics"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigPath string
}

// memoryStore is shared across commands invoked within a single process so
// that, e.g., a scripted "put" followed by "get" against the memory backend
// observes the same in-memory objects. Real backends (fs, s3) don't need
// this since they persist externally.
var memoryStore = memstore.New()

// LoadConfig loads configuration from the --config flag (or its default
// location, when a file exists there) without constructing an object-store
// backend.
func LoadConfig() (*sstconfig.Config, error) {
	path := Flags.ConfigPath
	if path == "" {
		if _, err := os.Stat(sstconfig.DefaultConfigPath()); err == nil {
			path = sstconfig.DefaultConfigPath()
		}
	}
	return sstconfig.Load(path)
}

// BuildStore loads configuration from the --config flag (or its default
// location) and constructs the object-store backend plus the SSTable store
// facade wired to it.
func BuildStore(ctx context.Context) (*store.Store, *sstconfig.Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.New(objects, store.Config{
		PathPrefix:      cfg.PathPrefix,
		BlockCacheBytes: int64(cfg.BlockCacheBytes),
		MetaCacheBytes:  int64(cfg.MetaCacheBytes),
	}, sstmetrics.NoopStore, sstmetrics.NoopCache)
	if err != nil {
		return nil, nil, fmt.Errorf("build sstable store: %w", err)
	}
	return s, cfg, nil
}

func buildObjectStore(ctx context.Context, cfg *sstconfig.Config) (objstore.Store, error) {
	switch cfg.Backend {
	case sstconfig.BackendMemory:
		return memoryStore, nil
	case sstconfig.BackendFS:
		return fsstore.New(cfg.FS.Root)
	case sstconfig.BackendS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3.Bucket,
			KeyPrefix:       cfg.S3.KeyPrefix,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}
