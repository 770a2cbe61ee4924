package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/service"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

// ContentHandler exposes section and lesson management for course instructors.
type ContentHandler struct {
	sections *service.SectionService
	lessons  *service.LessonService
}

// NewContentHandler constructs the handler.
func NewContentHandler(sections *service.SectionService, lessons *service.LessonService) *ContentHandler {
	return &ContentHandler{sections: sections, lessons: lessons}
}

// CreateSection godoc
// @Summary Add section
// @Tags Course Content
// @Accept json
// @Produce json
// @Param payload body dto.CreateSectionRequest true "Section"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *ContentHandler) CreateSection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// RenameSection godoc
// @Summary Rename section
// @Tags Course Content
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.UpdateSectionRequest true "Name"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *ContentHandler) RenameSection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	section, err := h.sections.Rename(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// DeleteSection godoc
// @Summary Delete section
// @Tags Course Content
// @Param id path string true "Section ID"
// @Success 204
// @Router /sections/{id} [delete]
func (h *ContentHandler) DeleteSection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.sections.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadVideo godoc
// @Summary Upload lesson video
// @Tags Course Content
// @Accept multipart/form-data
// @Produce json
// @Param video formData file true "Video"
// @Success 201 {object} response.Envelope
// @Router /lessons/video [post]
func (h *ContentHandler) UploadVideo(c *gin.Context) {
	file, filename, ok := openUpload(c, "video")
	if !ok {
		return
	}
	defer file.Close()

	upload, err := h.lessons.UploadVideo(c.Request.Context(), filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, upload)
}

// CreateLesson godoc
// @Summary Add lesson
// @Tags Course Content
// @Accept json
// @Produce json
// @Param payload body dto.CreateLessonRequest true "Lesson"
// @Success 201 {object} response.Envelope
// @Router /lessons [post]
func (h *ContentHandler) CreateLesson(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update lesson
// @Tags Course Content
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.UpdateLessonRequest true "Lesson fields"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *ContentHandler) UpdateLesson(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary Delete lesson
// @Tags Course Content
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id} [delete]
func (h *ContentHandler) DeleteLesson(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
