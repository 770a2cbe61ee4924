package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/storage"
)

// Media folders and the file extensions each accepts.
const (
	MediaFolderAvatars    = "avatars"
	MediaFolderThumbnails = "thumbnails"
	MediaFolderVideos     = "videos"
)

var mediaExtensions = map[string][]string{
	MediaFolderAvatars:    {".jpg", ".jpeg", ".png", ".webp"},
	MediaFolderThumbnails: {".jpg", ".jpeg", ".png", ".webp"},
	MediaFolderVideos:     {".mp4", ".webm", ".mov", ".mkv"},
}

type objectStore interface {
	Put(key string, r io.Reader) (int64, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
}

type urlSigner interface {
	Generate(key string) (string, time.Time, error)
	Parse(token string) (string, error)
}

// MediaService stores uploads and hands out signed links served by the media endpoint.
type MediaService struct {
	store         objectStore
	signer        urlSigner
	publicBaseURL string
	logger        *zap.Logger
}

// NewMediaService constructs MediaService.
func NewMediaService(store objectStore, signer urlSigner, publicBaseURL string, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{store: store, signer: signer, publicBaseURL: strings.TrimRight(publicBaseURL, "/"), logger: logger}
}

// Upload saves r under folder and returns its signed URL.
func (s *MediaService) Upload(ctx context.Context, folder, filename string, r io.Reader) (*dto.MediaUploadResponse, error) {
	allowed, ok := mediaExtensions[folder]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown media folder")
	}
	ext := strings.ToLower(path.Ext(filename))
	if !containsString(allowed, ext) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported file type "+ext)
	}

	key := path.Join(folder, uuid.NewString()+ext)
	size, err := s.store.Put(key, r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds upload limit")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	token, expiresAt, err := s.signer.Generate(key)
	if err != nil {
		if delErr := s.store.Delete(key); delErr != nil {
			s.logger.Warn("failed to remove unsigned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign media url")
	}

	s.logger.Info("media stored", zap.String("key", key), zap.Int64("bytes", size))
	return &dto.MediaUploadResponse{
		URL:       s.publicBaseURL + "/media/" + token,
		Key:       key,
		Size:      size,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

// Open resolves a signed token to the stored file and its content type. The caller closes the file.
func (s *MediaService) Open(ctx context.Context, token string) (*os.File, string, error) {
	key, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrExpiredToken) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "media link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "media not found")
	}

	file, err := s.store.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "media not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open media")
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return file, contentType, nil
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
