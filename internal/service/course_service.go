package service

import (
	"context"
	"io"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/htmlsanitize"
)

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type courseStore interface {
	courseFinder
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course, previousCategory *string) error
	DeleteCascade(ctx context.Context, courseID string) error
}

type categoryFinder interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

type sectionLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Section, error)
}

type lessonLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Lesson, error)
}

type ratingAverager interface {
	AverageForCourse(ctx context.Context, courseID string) (float64, error)
}

// CourseService manages instructor-owned courses and the public catalog views.
type CourseService struct {
	courses    courseStore
	categories categoryFinder
	sections   sectionLister
	lessons    lessonLister
	ratings    ratingAverager
	structures structureInvalidator
	media      mediaUploader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseStore, categories categoryFinder, sections sectionLister, lessons lessonLister, ratings ratingAverager, structures structureInvalidator, media mediaUploader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:    courses,
		categories: categories,
		sections:   sections,
		lessons:    lessons,
		ratings:    ratings,
		structures: structures,
		media:      media,
		validator:  validate,
		logger:     logger,
	}
}

// Create stores a new course authored by instructorID.
func (s *CourseService) Create(ctx context.Context, instructorID string, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid course payload")
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	categoryID := req.CategoryID
	course := &models.Course{
		Name:             htmlsanitize.PlainText(req.Name),
		Description:      htmlsanitize.Sanitize(req.Description),
		InstructorID:     instructorID,
		WhatYouWillLearn: htmlsanitize.Sanitize(req.WhatYouWillLearn),
		Price:            req.Price,
		ThumbnailURL:     req.ThumbnailURL,
		Tags:             pq.StringArray(htmlsanitize.PlainTextAll(req.Tags)),
		CategoryID:       &categoryID,
		Instructions:     pq.StringArray(htmlsanitize.PlainTextAll(req.Instructions)),
		Status:           models.CourseStatus(req.Status),
	}
	if course.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course name cannot be empty")
	}
	if len(course.Tags) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one tag is required")
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("instructor_id", instructorID))
	return course, nil
}

// Update patches a course owned by instructorID.
func (s *CourseService) Update(ctx context.Context, instructorID, courseID string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid course payload")
	}
	course, err := loadOwnedCourse(ctx, s.courses, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	previousCategory := course.CategoryID

	if req.Name != nil {
		name := htmlsanitize.PlainText(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course name cannot be empty")
		}
		course.Name = name
	}
	if req.Description != nil {
		course.Description = htmlsanitize.Sanitize(*req.Description)
	}
	if req.WhatYouWillLearn != nil {
		course.WhatYouWillLearn = htmlsanitize.Sanitize(*req.WhatYouWillLearn)
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Tags != nil {
		course.Tags = pq.StringArray(htmlsanitize.PlainTextAll(req.Tags))
	}
	if req.Instructions != nil {
		course.Instructions = pq.StringArray(htmlsanitize.PlainTextAll(req.Instructions))
	}
	if req.Status != nil {
		course.Status = models.CourseStatus(*req.Status)
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = *req.ThumbnailURL
	}
	if req.CategoryID != nil {
		categoryID := strings.TrimSpace(*req.CategoryID)
		if categoryID == "" {
			course.CategoryID = nil
		} else {
			if err := s.ensureCategory(ctx, categoryID); err != nil {
				return nil, err
			}
			course.CategoryID = &categoryID
		}
	}

	if err := s.courses.Update(ctx, course, previousCategory); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to update course")
	}
	return course, nil
}

// UploadThumbnail stores a new thumbnail image and points the course at it.
func (s *CourseService) UploadThumbnail(ctx context.Context, instructorID, courseID, filename string, r io.Reader) (*models.Course, error) {
	course, err := loadOwnedCourse(ctx, s.courses, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	upload, err := s.media.Upload(ctx, MediaFolderThumbnails, filename, r)
	if err != nil {
		return nil, err
	}
	course.ThumbnailURL = upload.URL
	if err := s.courses.Update(ctx, course, course.CategoryID); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to update thumbnail")
	}
	return course, nil
}

// Delete removes a course owned by instructorID together with everything that references it.
func (s *CourseService) Delete(ctx context.Context, instructorID, courseID string) error {
	if _, err := loadOwnedCourse(ctx, s.courses, instructorID, courseID); err != nil {
		return err
	}
	if err := s.courses.DeleteCascade(ctx, courseID); err != nil {
		return notFoundOrInternal(err, "course not found", "failed to delete course")
	}
	s.structures.Invalidate(ctx, courseID)
	s.logger.Info("course deleted", zap.String("course_id", courseID), zap.String("instructor_id", instructorID))
	return nil
}

// Detail returns a course with its sections and lessons in order. Draft courses are only visible
// to their instructor.
func (s *CourseService) Detail(ctx context.Context, courseID, viewerID string) (*dto.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if course.Status != models.CourseStatusPublished && course.InstructorID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	sections, err := s.sections.ListByIDs(ctx, course.Sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	var lessonIDs []string
	for _, sec := range sections {
		lessonIDs = append(lessonIDs, sec.Lessons...)
	}
	lessons, err := s.lessons.ListByIDs(ctx, lessonIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	byID := make(map[string]models.Lesson, len(lessons))
	for _, l := range lessons {
		byID[l.ID] = l
	}

	detail := &dto.CourseDetail{
		Course:           *course,
		Sections:         make([]dto.SectionDetail, 0, len(sections)),
		StudentsEnrolled: len(course.EnrolledStudents),
	}
	totalSeconds := 0
	for _, sec := range sections {
		item := dto.SectionDetail{Section: sec, SubSections: make([]models.Lesson, 0, len(sec.Lessons))}
		for _, id := range sec.Lessons {
			lesson, ok := byID[id]
			if !ok {
				continue
			}
			item.SubSections = append(item.SubSections, lesson)
			totalSeconds += lesson.DurationSeconds
		}
		detail.TotalLessons += len(item.SubSections)
		detail.Sections = append(detail.Sections, item)
	}
	detail.TotalDuration = FormatDuration(totalSeconds)

	avg, err := s.ratings.AverageForCourse(ctx, courseID)
	if err != nil {
		s.logger.Warn("failed to load average rating", zap.String("course_id", courseID), zap.Error(err))
	}
	detail.AverageRating = roundTwo(avg)
	return detail, nil
}

// List returns published courses matching filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	filter.Status = models.CourseStatusPublished
	return s.list(ctx, filter)
}

// InstructorCourses lists every course authored by instructorID, drafts included.
func (s *CourseService) InstructorCourses(ctx context.Context, instructorID string, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	filter.InstructorID = instructorID
	filter.Status = ""
	return s.list(ctx, filter)
}

func (s *CourseService) list(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *CourseService) ensureCategory(ctx context.Context, categoryID string) error {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return notFoundOrInternal(err, "category not found", "failed to load category")
	}
	return nil
}

// loadOwnedCourse returns the course when instructorID authored it.
func loadOwnedCourse(ctx context.Context, courses courseFinder, instructorID, courseID string) (*models.Course, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	course, err := courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if course.InstructorID != instructorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
	}
	return course, nil
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
