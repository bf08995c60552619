package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ivarnor/akidsy/internal/pkg/env"
)

// Config holds the object store configuration for the content library
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadConfig loads object store configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}

	return config, nil
}

// ObjectKey generates a standardized object key for a content item.
// Format: content/<category>/<uuid>.<ext>
func (c *Config) ObjectKey(category, contentUUID, fileExtension string) string {
	ext := strings.TrimPrefix(fileExtension, ".")
	if ext == "" {
		return fmt.Sprintf("content/%s/%s", category, contentUUID)
	}
	return fmt.Sprintf("content/%s/%s.%s", category, contentUUID, ext)
}

// ThumbnailKey generates the object key for a content item's thumbnail
func (c *Config) ThumbnailKey(category, contentUUID string) string {
	return fmt.Sprintf("thumbnails/%s/%s.jpg", category, contentUUID)
}
