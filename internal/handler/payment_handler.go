package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/dto"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

const (
	defaultSignatureHeader = "X-Razorpay-Signature"
	defaultWebhookBytes    = 1 << 20
)

type paymentService interface {
	CreateOrder(ctx context.Context, userID string, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	HandleWebhook(ctx context.Context, raw []byte, signature string) (*dto.WebhookResult, error)
}

// PaymentHandler exposes order creation and the processor webhook.
type PaymentHandler struct {
	service         paymentService
	signatureHeader string
	maxWebhookBytes int64
}

// NewPaymentHandler constructs the handler. Empty header and non-positive limit fall back to the
// processor defaults.
func NewPaymentHandler(service paymentService, signatureHeader string, maxWebhookBytes int64) *PaymentHandler {
	if signatureHeader == "" {
		signatureHeader = defaultSignatureHeader
	}
	if maxWebhookBytes <= 0 {
		maxWebhookBytes = defaultWebhookBytes
	}
	return &PaymentHandler{service: service, signatureHeader: signatureHeader, maxWebhookBytes: maxWebhookBytes}
}

// CreateOrder godoc
// @Summary Create payment order
// @Description Open a processor order for a course the student is not enrolled in
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrderRequest true "Course"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payments/order [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid order payload"))
		return
	}
	order, err := h.service.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Webhook godoc
// @Summary Payment webhook
// @Description Processor notification. The signature header carries the hex HMAC-SHA256 of the raw body.
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "webhook body exceeds limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read webhook body"))
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader(h.signatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "webhook processed", result, nil)
}
