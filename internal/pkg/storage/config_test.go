package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresCredentials(t *testing.T) {
	t.Setenv("S3_ACCESS_KEY_ID", "")
	t.Setenv("S3_SECRET_ACCESS_KEY", "")
	t.Setenv("S3_BUCKET_NAME", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET_NAME", "akidsy-content")
	t.Setenv("S3_ENDPOINT_URL", "https://minio.local:9000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "akidsy-content", cfg.BucketName)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "https://minio.local:9000", cfg.EndpointURL)
}

func TestObjectKey(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, "content/videos/abc-123.mp4", cfg.ObjectKey("videos", "abc-123", "mp4"))
	assert.Equal(t, "content/coloring/abc-123.pdf", cfg.ObjectKey("coloring", "abc-123", ".pdf"))
	assert.Equal(t, "content/ebooks/abc-123", cfg.ObjectKey("ebooks", "abc-123", ""))
}

func TestThumbnailKey(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "thumbnails/puzzles/abc-123.jpg", cfg.ThumbnailKey("puzzles", "abc-123"))
}
