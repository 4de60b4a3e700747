// Package publish uploads the finished output to a storage backend.
package publish

import (
	"context"
	"io"
)

// Storage is a destination for finished files.
type Storage interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
}

// Config selects and configures a storage backend.
type Config struct {
	Type   string      `mapstructure:"type" yaml:"type"`
	Bucket string      `mapstructure:"bucket" yaml:"bucket"`
	Prefix string      `mapstructure:"prefix" yaml:"prefix"`
	Local  LocalConfig `mapstructure:"local" yaml:"local"`
	S3     S3Config    `mapstructure:"s3" yaml:"s3"`
}

// LocalConfig configures the local directory backend.
type LocalConfig struct {
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// S3Config configures the S3 backend. Empty keys fall back to the default
// AWS credential chain.
type S3Config struct {
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// Enabled reports whether a backend is configured.
func (c Config) Enabled() bool {
	return c.Type != "" && c.Type != "none"
}
