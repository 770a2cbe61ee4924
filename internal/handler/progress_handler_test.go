package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/middleware"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

type fakeProgressSrv struct {
	markErr  error
	lastMark dto.MarkLessonRequest
	pct      *dto.ProgressResponse
	certErr  error
}

func (f *fakeProgressSrv) MarkLessonComplete(_ context.Context, userID string, req dto.MarkLessonRequest) (*dto.ProgressResponse, error) {
	f.lastMark = req
	if f.markErr != nil {
		return nil, f.markErr
	}
	return &dto.ProgressResponse{CourseID: req.CourseID, CompletedVideos: []string{req.LessonID}, TotalLessons: 3, Percentage: 33.33}, nil
}

func (f *fakeProgressSrv) Percentage(_ context.Context, userID, courseID string) (*dto.ProgressResponse, error) {
	return f.pct, nil
}

func (f *fakeProgressSrv) EnrolledCourses(_ context.Context, userID string) ([]dto.EnrolledCourse, error) {
	return []dto.EnrolledCourse{}, nil
}

func (f *fakeProgressSrv) Certificate(_ context.Context, userID, courseID string) ([]byte, error) {
	if f.certErr != nil {
		return nil, f.certErr
	}
	return []byte("%PDF-1.3 test"), nil
}

func studentContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "S1", Role: models.RoleStudent})
	return c, rec
}

func TestMarkLessonCompleteHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeProgressSrv{}
	handler := NewProgressHandler(srv)

	c, rec := studentContext(http.MethodPost, "/api/v1/progress/lessons", `{"courseId":"C1","lessonId":"L1"}`)
	handler.MarkLessonComplete(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "L1", srv.lastMark.LessonID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 33.33, envelope.Data["percentage"])
}

func TestMarkLessonCompleteConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgressHandler(&fakeProgressSrv{markErr: appErrors.Clone(appErrors.ErrAlreadyCompleted, "lesson already completed")})

	c, rec := studentContext(http.MethodPost, "/api/v1/progress/lessons", `{"courseId":"C1","lessonId":"L1"}`)
	handler.MarkLessonComplete(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCertificateHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgressHandler(&fakeProgressSrv{})

	c, rec := studentContext(http.MethodGet, "/api/v1/progress/courses/C1/certificate", "")
	c.Params = gin.Params{{Key: "courseId", Value: "C1"}}
	handler.Certificate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "certificate-C1.pdf")

	incomplete := NewProgressHandler(&fakeProgressSrv{certErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "course not completed")})
	c, rec = studentContext(http.MethodGet, "/api/v1/progress/courses/C1/certificate", "")
	incomplete.Certificate(c)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}
