package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/service"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

// ProfileHandler exposes the caller's own account.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get godoc
// @Summary Current user details
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Update godoc
// @Summary Update profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	user, err := h.service.Update(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Profile updated successfully", user, nil)
}

// UpdateDisplayPicture godoc
// @Summary Upload display picture
// @Tags Profile
// @Accept multipart/form-data
// @Produce json
// @Param displayPicture formData file true "Image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile/display-picture [put]
func (h *ProfileHandler) UpdateDisplayPicture(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	file, filename, ok := openUpload(c, "displayPicture")
	if !ok {
		return
	}
	defer file.Close()

	user, err := h.service.UpdateDisplayPicture(c.Request.Context(), userID, filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Image updated successfully", user, nil)
}

// Delete godoc
// @Summary Delete account
// @Description Removes the account with its enrollments, progress and ratings. Instructors also lose their courses.
// @Tags Profile
// @Success 204
// @Router /profile [delete]
func (h *ProfileHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// InstructorDashboard godoc
// @Summary Instructor dashboard
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile/instructor-dashboard [get]
func (h *ProfileHandler) InstructorDashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	stats, err := h.service.InstructorDashboard(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ExportDashboard godoc
// @Summary Export instructor dashboard
// @Tags Profile
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /profile/instructor-dashboard/export [get]
func (h *ProfileHandler) ExportDashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	body, contentType, err := h.service.ExportDashboard(c.Request.Context(), userID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, contentType, "instructor-dashboard."+format, body)
}
