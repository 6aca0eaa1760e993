package dataset

import (
	"context"
	"fmt"

	"github.com/thomhuang/PharmacyFinder/internal/config"
)

// Open returns the Source selected by cfg.DatasetSource. The returned close
// function releases its connections and is never nil.
func Open(ctx context.Context, cfg config.Config) (Source, func(), error) {
	noop := func() {}
	switch cfg.DatasetSource {
	case config.SourceFile:
		return FileSource{
			PostalCodesPath: cfg.PostalCodesFile,
			PharmaciesPath:  cfg.PharmaciesFile,
			InventoryPath:   cfg.InventoryFile,
		}, noop, nil
	case config.SourceMinio:
		src, err := NewObjectSource(minioConfig(cfg), DefaultObjectKeys())
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	case config.SourcePostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return NewPostgresSource(pool), pool.Close, nil
	case config.SourceSQLite:
		store, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown dataset source %q", cfg.DatasetSource)
	}
}

func minioConfig(cfg config.Config) MinioConfig {
	return MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
	}
}

// NewObjectSourceFromConfig builds the bucket source from cfg regardless of
// DatasetSource, for publishing datasets.
func NewObjectSourceFromConfig(cfg config.Config) (*ObjectSource, error) {
	return NewObjectSource(minioConfig(cfg), DefaultObjectKeys())
}
