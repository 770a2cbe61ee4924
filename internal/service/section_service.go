package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/htmlsanitize"
)

type sectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	Rename(ctx context.Context, id, name string) error
	DeleteCascade(ctx context.Context, sectionID, courseID string) error
}

// SectionService manages the sections of instructor-owned courses.
type SectionService struct {
	sections   sectionStore
	courses    courseFinder
	structures structureInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(sections sectionStore, courses courseFinder, structures structureInvalidator, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{sections: sections, courses: courses, structures: structures, validator: validate, logger: logger}
}

// Create appends a new empty section to the course.
func (s *SectionService) Create(ctx context.Context, instructorID string, req dto.CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid section payload")
	}
	if _, err := loadOwnedCourse(ctx, s.courses, instructorID, req.CourseID); err != nil {
		return nil, err
	}
	name := htmlsanitize.PlainText(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section name cannot be empty")
	}

	section := &models.Section{CourseID: req.CourseID, Name: name}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to create section")
	}
	s.structures.Invalidate(ctx, req.CourseID)
	return section, nil
}

// Rename changes a section's name.
func (s *SectionService) Rename(ctx context.Context, instructorID, sectionID string, req dto.UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid section payload")
	}
	section, err := s.ownedSection(ctx, instructorID, sectionID)
	if err != nil {
		return nil, err
	}
	name := htmlsanitize.PlainText(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section name cannot be empty")
	}
	if err := s.sections.Rename(ctx, sectionID, name); err != nil {
		return nil, notFoundOrInternal(err, "section not found", "failed to rename section")
	}
	section.Name = name
	return section, nil
}

// Delete removes a section with its lessons and prunes them from every progress record.
func (s *SectionService) Delete(ctx context.Context, instructorID, sectionID string) error {
	section, err := s.ownedSection(ctx, instructorID, sectionID)
	if err != nil {
		return err
	}
	if err := s.sections.DeleteCascade(ctx, sectionID, section.CourseID); err != nil {
		return notFoundOrInternal(err, "section not found", "failed to delete section")
	}
	s.structures.Invalidate(ctx, section.CourseID)
	s.logger.Info("section deleted", zap.String("section_id", sectionID), zap.String("course_id", section.CourseID))
	return nil
}

func (s *SectionService) ownedSection(ctx context.Context, instructorID, sectionID string) (*models.Section, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "section not found", "failed to load section")
	}
	if _, err := loadOwnedCourse(ctx, s.courses, instructorID, section.CourseID); err != nil {
		return nil, err
	}
	return section, nil
}
