package service

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/htmlsanitize"
)

type lessonStore interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	DeleteCascade(ctx context.Context, lessonID, sectionID, courseID string) error
}

type sectionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// LessonService manages lessons (sub-sections) of instructor-owned courses.
type LessonService struct {
	lessons    lessonStore
	sections   sectionFinder
	courses    courseFinder
	structures structureInvalidator
	media      mediaUploader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLessonService constructs LessonService.
func NewLessonService(lessons lessonStore, sections sectionFinder, courses courseFinder, structures structureInvalidator, media mediaUploader, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		lessons:    lessons,
		sections:   sections,
		courses:    courses,
		structures: structures,
		media:      media,
		validator:  validate,
		logger:     logger,
	}
}

// UploadVideo stores a lesson video and returns the URL to put on the lesson.
func (s *LessonService) UploadVideo(ctx context.Context, filename string, r io.Reader) (*dto.MediaUploadResponse, error) {
	return s.media.Upload(ctx, MediaFolderVideos, filename, r)
}

// Create appends a lesson to a section of a course owned by instructorID.
func (s *LessonService) Create(ctx context.Context, instructorID string, req dto.CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid lesson payload")
	}
	section, err := s.ownedSection(ctx, instructorID, req.SectionID)
	if err != nil {
		return nil, err
	}
	title := htmlsanitize.PlainText(req.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson title cannot be empty")
	}

	lesson := &models.Lesson{
		SectionID:       section.ID,
		Title:           title,
		Description:     htmlsanitize.Sanitize(req.Description),
		VideoURL:        req.VideoURL,
		DurationSeconds: req.DurationSeconds,
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, notFoundOrInternal(err, "section not found", "failed to create lesson")
	}
	s.structures.Invalidate(ctx, section.CourseID)
	return lesson, nil
}

// Update patches a lesson's title, description, video or duration.
func (s *LessonService) Update(ctx context.Context, instructorID, lessonID string, req dto.UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid lesson payload")
	}
	lesson, section, err := s.ownedLesson(ctx, instructorID, lessonID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := htmlsanitize.PlainText(*req.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lesson title cannot be empty")
		}
		lesson.Title = title
	}
	if req.Description != nil {
		lesson.Description = htmlsanitize.Sanitize(*req.Description)
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.DurationSeconds != nil {
		lesson.DurationSeconds = *req.DurationSeconds
	}

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, notFoundOrInternal(err, "lesson not found", "failed to update lesson")
	}
	if req.DurationSeconds != nil {
		s.structures.Invalidate(ctx, section.CourseID)
	}
	return lesson, nil
}

// Delete removes a lesson and drops it from every completed set of the course.
func (s *LessonService) Delete(ctx context.Context, instructorID, lessonID string) error {
	_, section, err := s.ownedLesson(ctx, instructorID, lessonID)
	if err != nil {
		return err
	}
	if err := s.lessons.DeleteCascade(ctx, lessonID, section.ID, section.CourseID); err != nil {
		return notFoundOrInternal(err, "lesson not found", "failed to delete lesson")
	}
	s.structures.Invalidate(ctx, section.CourseID)
	s.logger.Info("lesson deleted", zap.String("lesson_id", lessonID), zap.String("course_id", section.CourseID))
	return nil
}

func (s *LessonService) ownedSection(ctx context.Context, instructorID, sectionID string) (*models.Section, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "section not found", "failed to load section")
	}
	if _, err := loadOwnedCourse(ctx, s.courses, instructorID, section.CourseID); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *LessonService) ownedLesson(ctx context.Context, instructorID, lessonID string) (*models.Lesson, *models.Section, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, nil, notFoundOrInternal(err, "lesson not found", "failed to load lesson")
	}
	section, err := s.ownedSection(ctx, instructorID, lesson.SectionID)
	if err != nil {
		return nil, nil, err
	}
	return lesson, section, nil
}
