package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/dto"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

type progressService interface {
	MarkLessonComplete(ctx context.Context, userID string, req dto.MarkLessonRequest) (*dto.ProgressResponse, error)
	Percentage(ctx context.Context, userID, courseID string) (*dto.ProgressResponse, error)
	EnrolledCourses(ctx context.Context, userID string) ([]dto.EnrolledCourse, error)
	Certificate(ctx context.Context, userID, courseID string) ([]byte, error)
}

// ProgressHandler exposes lesson completion and course progress for students.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// MarkLessonComplete godoc
// @Summary Mark lesson completed
// @Tags Progress
// @Accept json
// @Produce json
// @Param payload body dto.MarkLessonRequest true "Course and lesson"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /progress/lessons [post]
func (h *ProgressHandler) MarkLessonComplete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.MarkLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}
	progress, err := h.service.MarkLessonComplete(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Course progress updated", progress, nil)
}

// Percentage godoc
// @Summary Course progress percentage
// @Tags Progress
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/courses/{courseId} [get]
func (h *ProgressHandler) Percentage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	progress, err := h.service.Percentage(c.Request.Context(), userID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// EnrolledCourses godoc
// @Summary Enrolled courses with progress
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progress/courses [get]
func (h *ProgressHandler) EnrolledCourses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courses, err := h.service.EnrolledCourses(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Certificate godoc
// @Summary Completion certificate
// @Tags Progress
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Success 200 {file} binary
// @Failure 412 {object} response.Envelope
// @Router /progress/courses/{courseId}/certificate [get]
func (h *ProgressHandler) Certificate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courseID := c.Param("courseId")
	pdf, err := h.service.Certificate(c.Request.Context(), userID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "application/pdf", "certificate-"+courseID+".pdf", pdf)
}
