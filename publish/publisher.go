package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"splicer/models"
)

const stage = "publish"

// Publisher uploads the final output under <prefix>/<output base name>.
type Publisher struct {
	storage Storage
	bucket  string
	prefix  string
	logger  *zap.Logger
}

func NewPublisher(storage Storage, cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		storage: storage,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		logger:  logger,
	}
}

// Key returns the object key an output file is published under.
func (p *Publisher) Key(outputPath string) string {
	return Key(p.prefix, outputPath)
}

// Key joins prefix and the base name of outputPath with forward slashes.
func Key(prefix, outputPath string) string {
	prefix = strings.Trim(prefix, "/")
	base := filepath.Base(outputPath)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// Publish uploads outputPath and returns the key it was stored under.
func (p *Publisher) Publish(ctx context.Context, outputPath string) (string, error) {
	key := p.Key(outputPath)

	f, err := os.Open(outputPath)
	if err != nil {
		return "", models.NewStageError(stage, outputPath, models.ErrPublish,
			fmt.Errorf("failed to open output: %w", err))
	}
	defer f.Close()

	p.logger.Info("publishing output",
		zap.String("bucket", p.bucket),
		zap.String("key", key))

	if err := p.storage.Upload(ctx, p.bucket, key, f); err != nil {
		return "", models.NewStageError(stage, outputPath, models.ErrPublish,
			fmt.Errorf("upload %s: %w", key, err))
	}
	return key, nil
}
