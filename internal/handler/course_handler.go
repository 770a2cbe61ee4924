package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/internal/service"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

// CourseHandler exposes the catalog and instructor course management.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary Published courses
// @Tags Courses
// @Produce json
// @Param categoryId query string false "Category ID"
// @Param q query string false "Name search"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, page, err := h.courses.List(c.Request.Context(), courseFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, page)
}

// Mine godoc
// @Summary Courses authored by the caller
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/mine [get]
func (h *CourseHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	courses, page, err := h.courses.InstructorCourses(c.Request.Context(), userID, courseFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, page)
}

// Detail godoc
// @Summary Course details
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Detail(c *gin.Context) {
	detail, err := h.courses.Detail(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course fields"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// UploadThumbnail godoc
// @Summary Upload course thumbnail
// @Tags Courses
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param thumbnail formData file true "Image"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/thumbnail [put]
func (h *CourseHandler) UploadThumbnail(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	file, filename, ok := openUpload(c, "thumbnail")
	if !ok {
		return
	}
	defer file.Close()

	course, err := h.courses.UploadThumbnail(c.Request.Context(), userID, c.Param("id"), filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Description Removes the course with its sections, lessons, ratings and every enrollment reference
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func courseFilterFromQuery(c *gin.Context) models.CourseFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return models.CourseFilter{
		CategoryID: c.Query("categoryId"),
		Search:     c.Query("q"),
		Page:       page,
		PageSize:   size,
	}
}
