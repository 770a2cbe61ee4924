package handler

import (
	"bytes"
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

type responseEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   *appErrors.Error       `json:"error"`
}

type fakePaymentSrv struct {
	order         *dto.OrderResponse
	orderErr      error
	lastUserID    string
	result        *dto.WebhookResult
	webhookErr    error
	lastBody      []byte
	lastSignature string
}

func (f *fakePaymentSrv) CreateOrder(_ context.Context, userID string, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	f.lastUserID = userID
	return f.order, f.orderErr
}

func (f *fakePaymentSrv) HandleWebhook(_ context.Context, raw []byte, signature string) (*dto.WebhookResult, error) {
	f.lastBody = raw
	f.lastSignature = signature
	return f.result, f.webhookErr
}

func newWebhookContext(body string, header, signature string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	if header != "" {
		c.Request.Header.Set(header, signature)
	}
	return c, rec
}

func TestWebhookPassesRawBodyAndSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{result: &dto.WebhookResult{Outcome: dto.WebhookFulfilled, Event: "payment.captured", CourseID: "C1", UserID: "S1"}}
	handler := NewPaymentHandler(srv, "", 0)

	body := `{"event":"payment.captured",  "payload":{}}`
	c, rec := newWebhookContext(body, "X-Razorpay-Signature", "abc123")
	handler.Webhook(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, string(srv.lastBody))
	assert.Equal(t, "abc123", srv.lastSignature)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "fulfilled", envelope.Data["outcome"])
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{webhookErr: appErrors.Clone(appErrors.ErrInvalidSignature, "invalid webhook signature")}
	handler := NewPaymentHandler(srv, "X-Signature", 0)

	c, rec := newWebhookContext(`{}`, "X-Signature", "bad")
	handler.Webhook(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad", srv.lastSignature)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, appErrors.ErrInvalidSignature.Code, envelope.Error.Code)
}

func TestWebhookFailuresAreNon2xx(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{webhookErr: appErrors.Clone(appErrors.ErrInternal, "failed to record enrollment")}
	handler := NewPaymentHandler(srv, "", 0)

	c, rec := newWebhookContext(`{}`, "X-Razorpay-Signature", "sig")
	handler.Webhook(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{}
	handler := NewPaymentHandler(srv, "", 16)

	c, rec := newWebhookContext(string(bytes.Repeat([]byte("a"), 64)), "X-Razorpay-Signature", "sig")
	handler.Webhook(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, srv.lastBody)
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(&fakePaymentSrv{}, "", 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/order", strings.NewReader(`{"courseId":"C1"}`))
	handler.CreateOrder(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrderSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{order: &dto.OrderResponse{OrderID: "order_1", Currency: "INR", Amount: 50000, CourseID: "C1", KeyID: "rzp"}}
	handler := NewPaymentHandler(srv, "", 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/order", strings.NewReader(`{"courseId":"C1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "S1", Role: models.RoleStudent})
	handler.CreateOrder(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S1", srv.lastUserID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(50000), envelope.Data["amount"])
}

func TestCreateOrderAlreadyEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{orderErr: appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student is already enrolled")}
	handler := NewPaymentHandler(srv, "", 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments/order", strings.NewReader(`{"courseId":"C1"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "S1", Role: models.RoleStudent})
	handler.CreateOrder(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
