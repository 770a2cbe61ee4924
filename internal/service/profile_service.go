package service

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/export"
	"github.com/noah-isme/studynotion-api/pkg/htmlsanitize"
)

type profileUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, profile models.Profile) error
	UpdateImage(ctx context.Context, id, imageURL string) error
	DeleteCascade(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type instructorStatsReader interface {
	InstructorStats(ctx context.Context, instructorID string) ([]dto.InstructorCourseStats, error)
}

type mediaUploader interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader) (*dto.MediaUploadResponse, error)
}

type structureInvalidator interface {
	Invalidate(ctx context.Context, courseID string)
}

// ProfileService manages the caller's own account.
type ProfileService struct {
	users      profileUserStore
	stats      instructorStatsReader
	media      mediaUploader
	structures structureInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(users profileUserStore, stats instructorStatsReader, media mediaUploader, structures structureInvalidator, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, stats: stats, media: media, structures: structures, validator: validate, logger: logger}
}

// Get returns the user's full account.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Update applies the non-nil fields of req.
func (s *ProfileService) Update(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid profile payload")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := models.Profile{
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Gender:        user.Gender,
		DateOfBirth:   user.DateOfBirth,
		About:         user.About,
		ContactNumber: user.ContactNumber,
	}
	if req.FirstName != nil {
		profile.FirstName = htmlsanitize.PlainText(strings.TrimSpace(*req.FirstName))
	}
	if req.LastName != nil {
		profile.LastName = htmlsanitize.PlainText(strings.TrimSpace(*req.LastName))
	}
	if req.Gender != nil {
		profile.Gender = plainTextPtr(*req.Gender)
	}
	if req.DateOfBirth != nil {
		profile.DateOfBirth = plainTextPtr(*req.DateOfBirth)
	}
	if req.About != nil {
		profile.About = plainTextPtr(*req.About)
	}
	if req.ContactNumber != nil {
		profile.ContactNumber = plainTextPtr(*req.ContactNumber)
	}
	if profile.FirstName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "first name cannot be empty")
	}

	if err := s.users.UpdateProfile(ctx, userID, profile); err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to update profile")
	}
	return s.Get(ctx, userID)
}

// UpdateDisplayPicture uploads a new avatar and stores its URL.
func (s *ProfileService) UpdateDisplayPicture(ctx context.Context, userID, filename string, r io.Reader) (*models.User, error) {
	upload, err := s.media.Upload(ctx, MediaFolderAvatars, filename, r)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateImage(ctx, userID, upload.URL); err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to update display picture")
	}
	return s.Get(ctx, userID)
}

// DeleteAccount removes the user and every reference to them. Instructors lose their authored
// courses along with those courses' enrollments and progress.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.DeleteCascade(ctx, userID); err != nil {
		return notFoundOrInternal(err, "user not found", "failed to delete account")
	}

	if user.Role == models.RoleInstructor && s.structures != nil {
		for _, courseID := range user.Courses {
			s.structures.Invalidate(ctx, courseID)
		}
	}

	oldValues, _ := json.Marshal(map[string]string{"email": user.Email, "role": string(user.Role)})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		Action:     models.AuditActionAccountDelete,
		Resource:   "user",
		ResourceID: &userID,
		OldValues:  oldValues,
	}); err != nil {
		s.logger.Warn("failed to record account deletion audit log", zap.Error(err))
	}
	s.logger.Info("account deleted", zap.String("user_id", userID), zap.String("role", string(user.Role)))
	return nil
}

// InstructorDashboard lists the instructor's courses with enrolled students and revenue.
func (s *ProfileService) InstructorDashboard(ctx context.Context, instructorID string) ([]dto.InstructorCourseStats, error) {
	stats, err := s.stats.InstructorStats(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor dashboard")
	}
	if stats == nil {
		stats = []dto.InstructorCourseStats{}
	}
	return stats, nil
}

// ExportDashboard renders the instructor dashboard as CSV or PDF.
func (s *ProfileService) ExportDashboard(ctx context.Context, instructorID, format string) ([]byte, string, error) {
	format = strings.ToLower(format)
	if format != export.FormatCSV && format != export.FormatPDF {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	stats, err := s.InstructorDashboard(ctx, instructorID)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{Headers: []string{"Course", "Students", "Price", "Revenue"}}
	for _, row := range stats {
		data.Rows = append(data.Rows, map[string]string{
			"Course":   row.CourseName,
			"Students": strconv.Itoa(row.StudentsEnrolled),
			"Price":    strconv.FormatInt(row.Price, 10),
			"Revenue":  strconv.FormatInt(row.AmountGenerated, 10),
		})
	}
	out, err := export.Render(format, data, "Instructor dashboard")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render dashboard export")
	}
	return out, export.ContentType(format), nil
}

func plainTextPtr(v string) *string {
	clean := htmlsanitize.PlainText(strings.TrimSpace(v))
	if clean == "" {
		return nil
	}
	return &clean
}
