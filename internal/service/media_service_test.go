package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/storage"
)

type expiredSigner struct{}

func (expiredSigner) Generate(key string) (string, time.Time, error) {
	return "tok", time.Now(), nil
}

func (expiredSigner) Parse(token string) (string, error) {
	return "", storage.ErrExpiredToken
}

func newMediaFixture(t *testing.T, maxBytes int64) *MediaService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return NewMediaService(store, storage.NewSignedURLSigner("media-secret", time.Hour), "https://api.test/", nil)
}

func TestMediaUploadAndOpen(t *testing.T) {
	svc := newMediaFixture(t, 1024)

	upload, err := svc.Upload(context.Background(), MediaFolderAvatars, "Me.PNG", strings.NewReader("fake-png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.URL, "https://api.test/media/"))
	assert.True(t, strings.HasPrefix(upload.Key, "avatars/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Equal(t, int64(8), upload.Size)

	token := strings.TrimPrefix(upload.URL, "https://api.test/media/")
	file, contentType, err := svc.Open(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(body))
	assert.Equal(t, "image/png", contentType)
}

func TestMediaUploadRejections(t *testing.T) {
	svc := newMediaFixture(t, 4)

	_, err := svc.Upload(context.Background(), MediaFolderVideos, "clip.exe", strings.NewReader("x"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(context.Background(), "secrets", "a.png", strings.NewReader("x"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(context.Background(), MediaFolderVideos, "clip.mp4", strings.NewReader("too large"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMediaOpenBadTokens(t *testing.T) {
	svc := newMediaFixture(t, 1024)

	_, _, err := svc.Open(context.Background(), "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	store, err := storage.NewLocalStorage(t.TempDir(), 1024)
	require.NoError(t, err)
	expired := NewMediaService(store, expiredSigner{}, "https://api.test", nil)
	_, _, err = expired.Open(context.Background(), "tok")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
