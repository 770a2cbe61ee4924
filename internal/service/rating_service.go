package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/internal/repository"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/htmlsanitize"
)

type ratingStore interface {
	ratingAverager
	Create(ctx context.Context, rating *models.Rating) error
	List(ctx context.Context, courseID string, limit int) ([]dto.RatingView, error)
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Rating, error)
}

// RatingService records course reviews from enrolled students.
type RatingService struct {
	ratings   ratingStore
	courses   courseFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRatingService constructs RatingService.
func NewRatingService(ratings ratingStore, courses courseFinder, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{ratings: ratings, courses: courses, validator: validate, logger: logger}
}

// Create stores userID's review of a course they are enrolled in. One review per user and course.
func (s *RatingService) Create(ctx context.Context, userID string, req dto.CreateRatingRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid rating payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if !course.IsEnrolled(userID) {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this course")
	}
	if existing, err := s.ratings.FindByUserAndCourse(ctx, userID, req.CourseID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "course already reviewed")
	}

	rating := &models.Rating{
		UserID:   userID,
		CourseID: req.CourseID,
		Rating:   req.Rating,
		Review:   htmlsanitize.PlainText(req.Review),
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "course already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
	}
	return rating, nil
}

// Average returns the mean rating of a course, 0 when it has no reviews.
func (s *RatingService) Average(ctx context.Context, courseID string) (*dto.AverageRatingResponse, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	avg, err := s.ratings.AverageForCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average rating")
	}
	return &dto.AverageRatingResponse{CourseID: courseID, AverageRating: roundTwo(avg)}, nil
}

// List returns reviews, optionally for one course, best rated first.
func (s *RatingService) List(ctx context.Context, courseID string, limit int) ([]dto.RatingView, error) {
	views, err := s.ratings.List(ctx, courseID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	if views == nil {
		views = []dto.RatingView{}
	}
	return views, nil
}
