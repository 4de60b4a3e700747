package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage copies files under a root directory. The bucket, when set, is
// a subdirectory of the root.
type LocalStorage struct {
	rootPath string
}

func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("base_path required for local storage")
	}
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root path: %w", err)
	}
	return &LocalStorage{rootPath: cfg.BasePath}, nil
}

func (l *LocalStorage) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	fullPath := l.resolve(bucket, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	return out.Close()
}

func (l *LocalStorage) resolve(bucket, key string) string {
	if bucket != "" {
		key = filepath.Join(bucket, key)
	}
	return filepath.Join(l.rootPath, filepath.FromSlash(key))
}
