package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/export"
)

type progressStore interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.ProgressRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	AddCompletedLesson(ctx context.Context, userID, courseID, lessonID string) (bool, error)
}

type lessonLocator interface {
	CourseIDOf(ctx context.Context, lessonID string) (string, error)
}

type structureLoader interface {
	Load(ctx context.Context, courseID string) (*models.CourseStructure, error)
}

type progressCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type progressUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ProgressService records completed lessons and reports completion per course.
type ProgressService struct {
	progress   progressStore
	lessons    lessonLocator
	structures structureLoader
	courses    progressCourseReader
	users      progressUserReader
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewProgressService constructs ProgressService.
func NewProgressService(progress progressStore, lessons lessonLocator, structures structureLoader, courses progressCourseReader, users progressUserReader, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		progress:   progress,
		lessons:    lessons,
		structures: structures,
		courses:    courses,
		users:      users,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// MarkLessonComplete adds a lesson to the student's completed set for its course.
func (s *ProgressService) MarkLessonComplete(ctx context.Context, userID string, req dto.MarkLessonRequest) (*dto.ProgressResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid progress payload")
	}

	courseID, err := s.lessons.CourseIDOf(ctx, req.LessonID)
	if err != nil {
		return nil, notFoundOrInternal(err, "lesson not found", "failed to load lesson")
	}
	if courseID != req.CourseID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson does not belong to course")
	}

	record, err := s.loadRecord(ctx, userID, req.CourseID)
	if err != nil {
		return nil, err
	}
	if record.HasCompleted(req.LessonID) {
		return nil, appErrors.ErrAlreadyCompleted
	}

	changed, err := s.progress.AddCompletedLesson(ctx, userID, req.CourseID, req.LessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotEnrolled
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	if !changed {
		return nil, appErrors.ErrAlreadyCompleted
	}

	return s.Percentage(ctx, userID, req.CourseID)
}

// Percentage reports how much of courseID the student has completed, rounded to two decimals.
func (s *ProgressService) Percentage(ctx context.Context, userID, courseID string) (*dto.ProgressResponse, error) {
	resp, _, err := s.percentage(ctx, userID, courseID)
	return resp, err
}

func (s *ProgressService) percentage(ctx context.Context, userID, courseID string) (*dto.ProgressResponse, *models.ProgressRecord, error) {
	structure, err := s.structures.Load(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.loadRecord(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}

	completed := []string(record.CompletedVideos)
	if completed == nil {
		completed = []string{}
	}
	total := structure.TotalLessons()
	return &dto.ProgressResponse{
		CourseID:        courseID,
		CompletedVideos: completed,
		TotalLessons:    total,
		Percentage:      models.CompletionPercentage(len(completed), total),
	}, record, nil
}

// EnrolledCourses lists the student's courses with duration and completion.
func (s *ProgressService) EnrolledCourses(ctx context.Context, userID string) ([]dto.EnrolledCourse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to load user")
	}
	if len(user.Courses) == 0 {
		return []dto.EnrolledCourse{}, nil
	}

	courses, err := s.courses.ListByIDs(ctx, user.Courses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled courses")
	}
	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	completedByCourse := make(map[string]int, len(records))
	for _, rec := range records {
		completedByCourse[rec.CourseID] = len(rec.CompletedVideos)
	}

	out := make([]dto.EnrolledCourse, 0, len(courses))
	for _, course := range courses {
		structure, err := s.structures.Load(ctx, course.ID)
		if err != nil {
			s.logger.Warn("skipping enrolled course without structure", zap.String("course_id", course.ID), zap.Error(err))
			continue
		}
		seconds := structure.TotalDurationSeconds()
		total := structure.TotalLessons()
		out = append(out, dto.EnrolledCourse{
			CourseID:        course.ID,
			Name:            course.Name,
			Description:     course.Description,
			ThumbnailURL:    course.ThumbnailURL,
			TotalLessons:    total,
			TotalDuration:   FormatDuration(seconds),
			DurationSeconds: seconds,
			Percentage:      models.CompletionPercentage(completedByCourse[course.ID], total),
		})
	}
	return out, nil
}

// Certificate renders a completion certificate once every lesson of the course is completed.
func (s *ProgressService) Certificate(ctx context.Context, userID, courseID string) ([]byte, error) {
	resp, record, err := s.percentage(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if resp.TotalLessons == 0 || resp.Percentage < 100 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not completed yet")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	student, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to load user")
	}
	instructorName := ""
	if instructor, err := s.users.FindByID(ctx, course.InstructorID); err == nil {
		instructorName = instructor.FullName()
	} else {
		s.logger.Warn("certificate without instructor name", zap.String("course_id", courseID), zap.Error(err))
	}

	pdf, err := export.RenderCertificate(export.Certificate{
		StudentName:    student.FullName(),
		CourseName:     course.Name,
		InstructorName: instructorName,
		IssuedAt:       s.now().UTC(),
		Serial:         record.ID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return pdf, nil
}

func (s *ProgressService) loadRecord(ctx context.Context, userID, courseID string) (*models.ProgressRecord, error) {
	record, err := s.progress.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotEnrolled
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress record")
	}
	return record, nil
}

// FormatDuration renders seconds as "1h 5m", "5m 3s" or "3s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
