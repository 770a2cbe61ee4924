package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/payment"
)

func TestCreateOrderChargesPriceInMinorUnits(t *testing.T) {
	f := newEnrollmentFixture(t)

	order, err := f.payments.CreateOrder(context.Background(), "S1", dto.CreateOrderRequest{CourseID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "order_test", order.OrderID)
	assert.Equal(t, int64(50000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_key", order.KeyID)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, "C1", req.Notes["courseId"])
	assert.Equal(t, "S1", req.Notes["userId"])
	assert.NotEmpty(t, req.Receipt)
}

func TestCreateOrderRejectsEnrolledStudent(t *testing.T) {
	f := newEnrollmentFixture(t)
	_, err := f.enroll.Fulfill(context.Background(), "C1", "S1")
	require.NoError(t, err)

	_, err = f.payments.CreateOrder(context.Background(), "S1", dto.CreateOrderRequest{CourseID: "C1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyEnrolled))
	assert.Empty(t, f.gateway.requests)
}

func TestCreateOrderRefusesIneligibleCourses(t *testing.T) {
	f := newEnrollmentFixture(t)
	draft := f.store.seedCourse("D1", "I1", 300, map[string][]string{"A": {"L9"}}, "A")
	draft.Status = models.CourseStatusDraft
	f.store.seedCourse("F1", "I1", 0, map[string][]string{"A": {"L8"}}, "A")

	cases := []struct {
		name   string
		userID string
		course string
		want   *appErrors.Error
	}{
		{name: "draft course", userID: "S1", course: "D1", want: appErrors.ErrNotFound},
		{name: "own course", userID: "I1", course: "C1", want: appErrors.ErrForbidden},
		{name: "free course", userID: "S1", course: "F1", want: appErrors.ErrPreconditionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.payments.CreateOrder(context.Background(), tc.userID, dto.CreateOrderRequest{CourseID: tc.course})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Equal(t, tc.want.Status, appErrors.FromError(err).Status)
		})
	}
	assert.Empty(t, f.gateway.requests)
}

func TestCreateOrderErrors(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.payments.CreateOrder(context.Background(), "S1", dto.CreateOrderRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.payments.CreateOrder(context.Background(), "S1", dto.CreateOrderRequest{CourseID: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	f.gateway.err = payment.ErrGatewayTimeout
	_, err = f.payments.CreateOrder(context.Background(), "S1", dto.CreateOrderRequest{CourseID: "C1"})
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.True(t, errors.Is(err, payment.ErrGatewayTimeout))
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.deliver(t, webhookBody("payment.failed", "C1", "S1"))
	require.NoError(t, err)
	assert.Equal(t, dto.WebhookIgnored, result.Outcome)
	assert.Equal(t, 0, f.store.progressCount())
}

func TestWebhookWithoutNotesIsInvalid(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.deliver(t, []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","notes":[]}}}}`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.deliver(t, []byte(`not json`))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWebhookSurfacesFulfilmentFailure(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.deliver(t, webhookBody(payment.EventPaymentCaptured, "C1", "ghost"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.store.courses["C1"].EnrolledStudents)
}
