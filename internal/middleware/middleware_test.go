package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

type recordingAudit struct{ logs []*models.AuditLog }

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func withClaims(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "U1", Role: role})
		c.Next()
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		role   models.UserRole
		status int
	}{
		{"instructor allowed", models.RoleInstructor, http.StatusOK},
		{"student forbidden", models.RoleStudent, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/courses", withClaims(tc.role), RequireRoles(models.RoleInstructor), func(c *gin.Context) { c.Status(http.StatusOK) })
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/courses", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	r := gin.New()
	r.POST("/courses", RequireRoles(models.RoleInstructor), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/courses", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &recordingAudit{}

	r := gin.New()
	r.DELETE("/courses/:id", withClaims(models.RoleInstructor), Audit(audit, nil, models.AuditActionCourseDelete, "course"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/failing/:id", withClaims(models.RoleInstructor), Audit(audit, nil, models.AuditActionCourseDelete, "course"), func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/courses/C1", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/failing/C2", nil))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCourseDelete, audit.logs[0].Action)
	require.NotNil(t, audit.logs[0].ResourceID)
	assert.Equal(t, "C1", *audit.logs[0].ResourceID)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, "U1", *audit.logs[0].UserID)
}

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func TestJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := staticTokens{"good": {UserID: "S1", Role: models.RoleStudent}}

	r := gin.New()
	r.GET("/me", JWT(tokens), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"case insensitive scheme", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "S1", rec.Body.String())
			}
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := staticTokens{"good": {UserID: "I1", Role: models.RoleInstructor}}

	r := gin.New()
	r.GET("/courses/:id", OptionalJWT(tokens), func(c *gin.Context) {
		if _, ok := c.Get(ContextUserKey); ok {
			c.String(http.StatusOK, "viewer")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	for header, want := range map[string]string{"": "anonymous", "Bearer bad": "anonymous", "Bearer good": "viewer"} {
		req := httptest.NewRequest(http.MethodGet, "/courses/C1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String(), header)
	}
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type recordingObserver struct{ seen []recordedRequest }

func (o *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	o.seen = append(o.seen, recordedRequest{method: method, route: route, status: status})
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}

	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/media/:token", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/media/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin.php", nil))

	require.Len(t, observer.seen, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/media/:token", http.StatusOK}, observer.seen[0])
	assert.Equal(t, recordedRequest{http.MethodGet, unmatchedRoute, http.StatusNotFound}, observer.seen[1])
}
