package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

type structureReader interface {
	Structure(ctx context.Context, courseID string) (*models.CourseStructure, error)
}

// StructureProvider serves the section to lesson layout of a course from cache, falling back to
// the database. Section and lesson writes invalidate the cached entry.
type StructureProvider struct {
	courses structureReader
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStructureProvider constructs a StructureProvider. cache may be nil.
func NewStructureProvider(courses structureReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StructureProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructureProvider{courses: courses, cache: cache, ttl: ttl, logger: logger}
}

func structureKey(courseID string) string {
	return fmt.Sprintf("course:structure:%s", courseID)
}

// Load returns the structure of courseID.
func (p *StructureProvider) Load(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	return readThrough(ctx, p.cache, structureKey(courseID), p.ttl, func(ctx context.Context) (*models.CourseStructure, error) {
		structure, err := p.courses.Structure(ctx, courseID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course structure")
		}
		return structure, nil
	})
}

// Invalidate drops the cached structure of courseID. Failures only log; the entry expires anyway.
func (p *StructureProvider) Invalidate(ctx context.Context, courseID string) {
	if err := p.cache.Forget(ctx, structureKey(courseID)); err != nil {
		p.logger.Warn("course structure invalidation failed", zap.String("course_id", courseID), zap.Error(err))
	}
}
