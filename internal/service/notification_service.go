package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/pkg/jobs"
	"github.com/noah-isme/studynotion-api/pkg/mailer"
)

type mailDispatcher interface {
	Enqueue(job jobs.Job) (string, error)
}

// NotificationConfig carries the links embedded in outgoing email.
type NotificationConfig struct {
	FrontendURL   string
	ResetTokenTTL time.Duration
}

// NotificationService renders transactional email and delivers it through the mail queue. Without a
// queue it delivers inline.
type NotificationService struct {
	sender  mailer.Sender
	queue   mailDispatcher
	metrics *MetricsService
	cfg     NotificationConfig
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(sender mailer.Sender, metrics *MetricsService, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, cfg: cfg, logger: logger}
}

// UseQueue routes deliveries through q. The queue handler must be Handle.
func (s *NotificationService) UseQueue(q mailDispatcher) {
	s.queue = q
}

// SendOTP delivers a signup verification code. The caller needs to know when it was not accepted.
func (s *NotificationService) SendOTP(ctx context.Context, email, code string, validFor time.Duration) error {
	return s.dispatch(ctx, mailer.TemplateOTP, mail.Address{Address: email}, map[string]string{
		"OTP":      code,
		"ValidFor": humanDuration(validFor),
	})
}

// SendPasswordReset delivers the reset link carrying the plaintext token.
func (s *NotificationService) SendPasswordReset(ctx context.Context, user *models.User, token string) {
	link := fmt.Sprintf("%s/update-password/%s", s.cfg.FrontendURL, token)
	s.notify(ctx, mailer.TemplatePasswordReset, user, map[string]string{
		"Name":     user.FullName(),
		"Link":     link,
		"ValidFor": humanDuration(s.cfg.ResetTokenTTL),
	})
}

// SendPasswordUpdated tells the user their password changed.
func (s *NotificationService) SendPasswordUpdated(ctx context.Context, user *models.User) {
	s.notify(ctx, mailer.TemplatePasswordUpdated, user, map[string]string{
		"Name":  user.FullName(),
		"Email": user.Email,
	})
}

// SendEnrollmentConfirmed tells a student their purchase went through.
func (s *NotificationService) SendEnrollmentConfirmed(ctx context.Context, user *models.User, course *models.Course) {
	s.notify(ctx, mailer.TemplateEnrollmentConfirmed, user, map[string]string{
		"Name":       user.FullName(),
		"CourseName": course.Name,
		"Link":       fmt.Sprintf("%s/view-course/%s", s.cfg.FrontendURL, course.ID),
	})
}

func (s *NotificationService) notify(ctx context.Context, template string, user *models.User, data map[string]string) {
	to := mail.Address{Name: user.FullName(), Address: user.Email}
	if err := s.dispatch(ctx, template, to, data); err != nil {
		s.logger.Warn("email not delivered",
			zap.String("template", template), zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *NotificationService) dispatch(ctx context.Context, template string, to mail.Address, data interface{}) error {
	if s == nil || s.sender == nil {
		return errors.New("mail delivery not configured")
	}
	msg, err := mailer.Render(template, to, data)
	if err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if s.queue == nil {
		err := s.sender.Send(ctx, msg)
		s.record(template, err)
		return err
	}
	_, err = s.queue.Enqueue(jobs.Job{Type: template, Payload: msg})
	return err
}

// Handle is the mail queue handler.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("unexpected mail payload %T", job.Payload)
	}
	return s.sender.Send(ctx, msg)
}

// OnResult records final delivery outcomes.
func (s *NotificationService) OnResult(job jobs.Job, err error, final bool) {
	if !final {
		return
	}
	s.record(job.Type, err)
	if err != nil {
		s.logger.Warn("email delivery abandoned",
			zap.String("template", job.Type), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	}
}

func (s *NotificationService) record(template string, err error) {
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
	}
	s.metrics.RecordMail(template, outcome)
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0:
		return pluralize(int(d/time.Hour), "hour")
	default:
		return pluralize(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
