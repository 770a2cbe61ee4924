package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/internal/repository"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/htmlsanitize"
)

const (
	categoryListCacheKey = "catalog:categories"
	categoryPageSize     = 20
	topSellingLimit      = 10
)

type categoryStore interface {
	categoryFinder
	Create(ctx context.Context, category *models.Category) error
	List(ctx context.Context) ([]models.Category, error)
}

type catalogCourseReader interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	TopSelling(ctx context.Context, limit int) ([]models.Course, error)
}

// CategoryService manages catalog categories and the category landing page.
type CategoryService struct {
	categories categoryStore
	courses    catalogCourseReader
	cache      *CacheService
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCategoryService constructs CategoryService. cache may be nil.
func NewCategoryService(categories categoryStore, courses catalogCourseReader, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, courses: courses, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create adds a category. Names are unique.
func (s *CategoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid category payload")
	}
	category := &models.Category{
		Name:        htmlsanitize.PlainText(req.Name),
		Description: htmlsanitize.PlainText(req.Description),
	}
	if category.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category name cannot be empty")
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "category already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	if err := s.cache.Forget(ctx, categoryListCacheKey); err != nil {
		s.logger.Warn("category list invalidation failed", zap.Error(err))
	}
	return category, nil
}

// List returns every category.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return readThrough(ctx, s.cache, categoryListCacheKey, s.cacheTTL, func(ctx context.Context) ([]models.Category, error) {
		categories, err := s.categories.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
		}
		if categories == nil {
			categories = []models.Category{}
		}
		return categories, nil
	})
}

// Page returns the published courses of a category, published courses from other categories and
// the overall best sellers.
func (s *CategoryService) Page(ctx context.Context, categoryID string) (*dto.CategoryPage, error) {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, notFoundOrInternal(err, "category not found", "failed to load category")
	}

	inCategory, _, err := s.courses.List(ctx, models.CourseFilter{CategoryID: categoryID, Status: models.CourseStatusPublished, PageSize: categoryPageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list category courses")
	}
	published, _, err := s.courses.List(ctx, models.CourseFilter{Status: models.CourseStatusPublished, PageSize: categoryPageSize})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	others := make([]models.Course, 0, len(published))
	for _, c := range published {
		if c.CategoryID == nil || *c.CategoryID != categoryID {
			others = append(others, c)
		}
	}
	top, err := s.courses.TopSelling(ctx, topSellingLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list top selling courses")
	}

	if inCategory == nil {
		inCategory = []models.Course{}
	}
	if top == nil {
		top = []models.Course{}
	}
	return &dto.CategoryPage{Category: *category, Courses: inCategory, Others: others, TopSelling: top}, nil
}
