package handler

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/middleware"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUserID writes a 401 and reports false when the request carries no claims.
func currentUserID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

// viewerID returns the caller's id on routes where authentication is optional.
func viewerID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// openUpload opens the multipart file in field. The caller closes it.
func openUpload(c *gin.Context, field string) (multipart.File, string, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, field+" file is required"))
		return nil, "", false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return nil, "", false
	}
	return file, header.Filename, true
}
