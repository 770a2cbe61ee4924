package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/pkg/response"
)

type mediaOpener interface {
	Open(ctx context.Context, token string) (*os.File, string, error)
}

// MediaHandler serves uploaded files behind signed tokens.
type MediaHandler struct {
	media mediaOpener
}

// NewMediaHandler constructs the handler.
func NewMediaHandler(media mediaOpener) *MediaHandler {
	return &MediaHandler{media: media}
}

// Serve godoc
// @Summary Fetch uploaded media
// @Tags Media
// @Param token path string true "Signed media token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	file, contentType, err := h.media.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
