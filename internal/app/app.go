// Package app opens the backing services selected by configuration: the
// record store (PostgreSQL or in-memory) and the blob store (local
// directory or Cloud Storage). Both commands start through it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/journalimport/internal/blob"
	"github.com/JonMunkholm/journalimport/internal/config"
	"github.com/JonMunkholm/journalimport/internal/core"
	"github.com/JonMunkholm/journalimport/internal/store/memory"
	"github.com/JonMunkholm/journalimport/internal/store/postgres"
)

// Deps holds the opened stores. Close releases them.
type Deps struct {
	Store   core.Store
	Blobs   core.BlobStore
	closers []func()
}

// Open connects the stores described by cfg.
func Open(ctx context.Context, cfg *config.Config) (*Deps, error) {
	d := &Deps{}

	if cfg.Database.UsesMemoryStore() {
		slog.Warn("DATABASE_URL not set, using the in-memory store; data is lost on restart")
		d.Store = memory.New()
	} else {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)

		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				d.Close()
				return nil, err
			}
		}
		d.Store = postgres.New(pool)
	}

	blobs, closeBlobs, err := openBlobs(ctx, cfg.Storage)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Blobs = blobs
	if closeBlobs != nil {
		d.closers = append(d.closers, closeBlobs)
	}
	return d, nil
}

// Close releases the stores in reverse opening order.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

func openBlobs(ctx context.Context, cfg config.StorageConfig) (core.BlobStore, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "local":
		s, err := blob.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storing uploads on local disk", "dir", cfg.Dir)
		return s, nil, nil
	case "gcs":
		s, err := blob.NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storing uploads in Cloud Storage", "bucket", cfg.Bucket)
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("close storage client", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
