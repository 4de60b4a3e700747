package publish

import (
	"context"
	"fmt"
)

// NewStorage builds the backend named by cfg.Type.
func NewStorage(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	case "local":
		return NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Type)
	}
}
