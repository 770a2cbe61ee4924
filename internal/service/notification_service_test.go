package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/models"
	"github.com/noah-isme/studynotion-api/pkg/jobs"
	"github.com/noah-isme/studynotion-api/pkg/mailer"
)

type failingSender struct{ calls int }

func (s *failingSender) Send(ctx context.Context, msg mailer.Message) error {
	s.calls++
	return errors.New("smtp down")
}

func TestNotificationInlineDelivery(t *testing.T) {
	sender := mailer.NewLogSender(zap.NewNop())
	metrics := NewMetricsService()
	svc := NewNotificationService(sender, metrics, NotificationConfig{FrontendURL: "https://app.test", ResetTokenTTL: time.Hour}, nil)

	require.NoError(t, svc.SendOTP(context.Background(), "new@example.com", "123456", 5*time.Minute))
	user := &models.User{ID: "u1", FirstName: "Ada", LastName: "L", Email: "ada@example.com"}
	svc.SendPasswordReset(context.Background(), user, "tok123")

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "123456")
	assert.Contains(t, sent[0].Text, "5 minutes")
	assert.Contains(t, sent[1].Text, "https://app.test/update-password/tok123")
	assert.Contains(t, sent[1].Text, "1 hour")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mailTotal.WithLabelValues(mailer.TemplateOTP, OutcomeSent)))
}

func TestNotificationFailuresAreSwallowed(t *testing.T) {
	sender := &failingSender{}
	metrics := NewMetricsService()
	svc := NewNotificationService(sender, metrics, NotificationConfig{}, nil)

	user := &models.User{ID: "u1", FirstName: "Ada", Email: "ada@example.com"}
	svc.SendPasswordUpdated(context.Background(), user)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mailTotal.WithLabelValues(mailer.TemplatePasswordUpdated, OutcomeFailed)))

	assert.Error(t, svc.SendOTP(context.Background(), "", "000000", time.Minute))
}

func TestNotificationThroughQueue(t *testing.T) {
	sender := mailer.NewLogSender(zap.NewNop())
	svc := NewNotificationService(sender, NewMetricsService(), NotificationConfig{FrontendURL: "https://app.test"}, nil)

	done := make(chan struct{}, 1)
	queue := jobs.NewQueue("mail", svc.Handle, jobs.QueueConfig{
		Workers: 1,
		OnResult: func(job jobs.Job, err error, final bool) {
			svc.OnResult(job, err, final)
			if final {
				done <- struct{}{}
			}
		},
	})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.UseQueue(queue)

	user := &models.User{ID: "S1", FirstName: "Sam", Email: "sam@example.com"}
	svc.SendEnrollmentConfirmed(context.Background(), user, &models.Course{ID: "C1", Name: "Go"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mail job not processed")
	}
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sam@example.com", sent[0].To.Address)
	assert.Contains(t, sent[0].Text, "https://app.test/view-course/C1")
}
