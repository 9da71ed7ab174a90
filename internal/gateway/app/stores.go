package app

import (
	"fmt"
	"log/slog"
	"strings"

	"zentra/internal/catalog"
	"zentra/internal/gateway/config"
	userrepo "zentra/internal/gateway/repository/user"
)

func initUserStore(cfg *config.Config, logger *slog.Logger) (userrepo.Store, error) {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		s, err := userrepo.NewPostgresStore(dsn, cfg.UserCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open user store: %w", err)
		}
		logger.Info("user store: postgres", "cache_size", cfg.UserCacheSize)
		return s, nil
	}
	logger.Warn("user store: in-memory (DATABASE_URL not set); data is lost on restart")
	return userrepo.NewMemoryStore(), nil
}

func initCatalogSource(cfg *config.Config, logger *slog.Logger) (catalog.Source, error) {
	if cfg.Catalog.UseS3() {
		s3 := cfg.Catalog.S3
		src, err := catalog.NewS3Source(catalog.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			Key:       s3.Key,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize catalog s3 source: %w", err)
		}
		logger.Info("card catalog: s3", "bucket", s3.Bucket, "key", s3.Key, "endpoint", s3.Endpoint)
		return src, nil
	}
	logger.Info("card catalog: file", "path", cfg.Catalog.Path)
	return catalog.FileSource{Path: cfg.Catalog.Path}, nil
}
