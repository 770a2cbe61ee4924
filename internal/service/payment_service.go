package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/payment"
)

type paymentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type paymentAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type signatureVerifier interface {
	Verify(body []byte, signature string) error
}

type enrollmentFulfiller interface {
	Fulfill(ctx context.Context, courseID, userID string) (*dto.FulfillmentResult, error)
}

// PaymentConfig configures order creation.
type PaymentConfig struct {
	KeyID    string
	Currency string
}

// PaymentService opens payment orders and turns verified processor notifications into enrollments.
type PaymentService struct {
	courses   paymentCourseReader
	gateway   payment.Gateway
	verifier  signatureVerifier
	fulfiller enrollmentFulfiller
	audit     paymentAuditWriter
	metrics   *MetricsService
	cfg       PaymentConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(courses paymentCourseReader, gateway payment.Gateway, verifier signatureVerifier, fulfiller enrollmentFulfiller, audit paymentAuditWriter, metrics *MetricsService, cfg PaymentConfig, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &PaymentService{
		courses:   courses,
		gateway:   gateway,
		verifier:  verifier,
		fulfiller: fulfiller,
		audit:     audit,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// CreateOrder opens a processor order for the course price. Only published, priced courses can be
// bought, never by their own instructor and never twice.
func (s *PaymentService) CreateOrder(ctx context.Context, userID string, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid order payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	if course.Status != models.CourseStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if course.InstructorID == userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors cannot buy their own course")
	}
	if course.IsEnrolled(userID) {
		return nil, appErrors.ErrAlreadyEnrolled
	}
	if course.Price <= 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course has no price to charge")
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: course.Price * 100,
		Currency:    s.cfg.Currency,
		Receipt:     uuid.NewString(),
		Notes: map[string]string{
			"courseId": course.ID,
			"userId":   userID,
		},
	})
	if err != nil {
		s.logger.Warn("payment order creation failed", zap.String("course_id", course.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "could not initiate order")
	}

	return &dto.OrderResponse{
		OrderID:  order.ID,
		Currency: order.Currency,
		Amount:   order.Amount,
		CourseID: course.ID,
		KeyID:    s.cfg.KeyID,
	}, nil
}

// HandleWebhook authenticates a processor notification against the exact raw body and fulfils the
// enrollment it confirms. Enrollment state is never touched for an unauthenticated body.
func (s *PaymentService) HandleWebhook(ctx context.Context, raw []byte, signature string) (*dto.WebhookResult, error) {
	if err := s.verifier.Verify(raw, signature); err != nil {
		s.reject(ctx, raw, err)
		return nil, appErrors.ErrInvalidSignature
	}

	note, err := payment.ParseNotification(raw)
	if err != nil {
		s.metrics.RecordWebhook(OutcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed payment notification")
	}

	if !note.Confirms() {
		s.metrics.RecordWebhook(OutcomeIgnored)
		s.logger.Info("payment notification ignored", zap.String("event", note.Event))
		return &dto.WebhookResult{Outcome: dto.WebhookIgnored, Event: note.Event}, nil
	}

	if note.CourseID == "" || note.UserID == "" {
		s.metrics.RecordWebhook(OutcomeFailed)
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment notification is missing course or user notes")
	}

	result, err := s.fulfiller.Fulfill(ctx, note.CourseID, note.UserID)
	if err != nil {
		s.metrics.RecordWebhook(OutcomeFailed)
		s.logger.Error("enrollment fulfilment failed",
			zap.String("event", note.Event),
			zap.String("order_id", note.OrderID),
			zap.String("payment_id", note.PaymentID),
			zap.Error(err),
		)
		return nil, err
	}

	outcome := dto.WebhookFulfilled
	if result.AlreadyFulfilled {
		outcome = dto.WebhookAlreadyFulfilled
	}
	s.metrics.RecordWebhook(string(outcome))
	return &dto.WebhookResult{Outcome: outcome, Event: note.Event, CourseID: result.CourseID, UserID: result.UserID}, nil
}

func (s *PaymentService) reject(ctx context.Context, raw []byte, cause error) {
	s.metrics.RecordWebhook(OutcomeRejected)
	s.logger.Warn("payment webhook rejected", zap.Int("body_bytes", len(raw)), zap.Error(cause))

	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(map[string]interface{}{
		"reason":    cause.Error(),
		"bodyBytes": len(raw),
		"missing":   errors.Is(cause, payment.ErrMissingSignature),
	})
	entry := &models.AuditLog{
		Action:    models.AuditActionWebhookRejected,
		Resource:  "payment_webhook",
		NewValues: details,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write webhook audit log", zap.Error(err))
	}
}
