package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/internal/repository"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

type enrollmentCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	AddEnrolledStudent(ctx context.Context, courseID, userID string) (bool, error)
}

type enrollmentUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	AddCourse(ctx context.Context, userID, courseID string) (bool, error)
	AddProgress(ctx context.Context, userID, progressID string) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type enrollmentProgressStore interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.ProgressRecord, error)
	Create(ctx context.Context, rec *models.ProgressRecord) error
}

type enrollmentNotifier interface {
	SendEnrollmentConfirmed(ctx context.Context, user *models.User, course *models.Course)
}

// EnrollmentService grants a paid course to a student. Every step is a conditional write so a
// redelivered or concurrent fulfilment converges on the same state without duplicates.
type EnrollmentService struct {
	courses  enrollmentCourseStore
	users    enrollmentUserStore
	progress enrollmentProgressStore
	notifier enrollmentNotifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. notifier may be nil.
func NewEnrollmentService(courses enrollmentCourseStore, users enrollmentUserStore, progress enrollmentProgressStore, notifier enrollmentNotifier, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{courses: courses, users: users, progress: progress, notifier: notifier, metrics: metrics, logger: logger}
}

// Fulfill enrolls userID into courseID and makes sure a progress record exists and is linked.
// Running it again after success changes nothing and reports AlreadyFulfilled.
func (s *EnrollmentService) Fulfill(ctx context.Context, courseID, userID string) (*dto.FulfillmentResult, error) {
	result, err := s.fulfill(ctx, courseID, userID)
	switch {
	case err != nil:
		s.metrics.RecordFulfillment(OutcomeFailed)
	case result.AlreadyFulfilled:
		s.metrics.RecordFulfillment(OutcomeAlreadyFulfilled)
	default:
		s.metrics.RecordFulfillment(OutcomeFulfilled)
	}
	return result, err
}

func (s *EnrollmentService) fulfill(ctx context.Context, courseID, userID string) (*dto.FulfillmentResult, error) {
	if courseID == "" || userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id and user id are required")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to load user")
	}

	courseChanged, err := s.courses.AddEnrolledStudent(ctx, courseID, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to enroll student in course")
	}

	userChanged, err := s.users.AddCourse(ctx, userID, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to add course to user")
	}

	record, created, err := s.ensureProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	linked, err := s.users.AddProgress(ctx, userID, record.ID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to link progress record")
	}

	result := &dto.FulfillmentResult{
		CourseID:         courseID,
		UserID:           userID,
		ProgressID:       record.ID,
		AlreadyFulfilled: !courseChanged && !userChanged && !created && !linked,
	}
	if result.AlreadyFulfilled {
		s.logger.Info("enrollment already fulfilled", zap.String("course_id", courseID), zap.String("user_id", userID))
		return result, nil
	}

	s.audit(ctx, result)
	if s.notifier != nil {
		s.notifier.SendEnrollmentConfirmed(ctx, user, course)
	}
	s.logger.Info("enrollment fulfilled",
		zap.String("course_id", courseID),
		zap.String("user_id", userID),
		zap.String("progress_id", record.ID),
		zap.Bool("course_changed", courseChanged),
		zap.Bool("user_changed", userChanged),
		zap.Bool("progress_created", created),
	)
	return result, nil
}

// ensureProgress returns the progress record of (userID, courseID), creating it when missing. A lost
// creation race is resolved by re-reading the winner's record.
func (s *EnrollmentService) ensureProgress(ctx context.Context, userID, courseID string) (*models.ProgressRecord, bool, error) {
	existing, err := s.progress.FindByUserAndCourse(ctx, userID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress record")
	}

	record := &models.ProgressRecord{UserID: userID, CourseID: courseID}
	err = s.progress.Create(ctx, record)
	if err == nil {
		return record, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create progress record")
	}

	existing, err = s.progress.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		s.logger.Error("progress record vanished after duplicate insert",
			zap.String("course_id", courseID), zap.String("user_id", userID), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, "progress record inconsistent")
	}
	return existing, false, nil
}

func (s *EnrollmentService) audit(ctx context.Context, result *dto.FulfillmentResult) {
	payload, _ := json.Marshal(result)
	userID, courseID := result.UserID, result.CourseID
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionEnrollmentGranted,
		Resource:   "course",
		ResourceID: &courseID,
		NewValues:  payload,
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write enrollment audit log", zap.String("course_id", courseID), zap.Error(err))
	}
}

func notFoundOrInternal(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internalMsg)
}
