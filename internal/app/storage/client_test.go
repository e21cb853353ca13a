package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) StorageService {
	t.Helper()

	svc, err := NewStorageService(context.Background(), ServiceConfig{
		S3BucketName:      "media",
		S3Endpoint:        "http://127.0.0.1:9000",
		S3AccessKeyID:     "test-key",
		S3SecretAccessKey: "test-secret",
	})
	require.NoError(t, err)
	return svc
}

func TestPresignUpload_SignsPathStyleURL(t *testing.T) {
	svc := newTestClient(t)

	raw, err := svc.PresignUpload(context.Background(), "images/42/a.png", "image/png", 1024, 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/media/images/42/a.png", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "AWS4-HMAC-SHA256", u.Query().Get("X-Amz-Algorithm"))
	assert.True(t, strings.HasPrefix(u.Query().Get("X-Amz-Credential"), "test-key/"))
}

func TestPresignDownload_SignsGet(t *testing.T) {
	svc := newTestClient(t)

	raw, err := svc.PresignDownload(context.Background(), "audios/42/b.webm", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/media/audios/42/b.webm", u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
