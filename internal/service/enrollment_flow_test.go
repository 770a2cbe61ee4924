package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/payment"
)

const webhookSecret = "whsec_test"

type enrollmentFixture struct {
	store     *memStore
	notifier  *recordingNotifier
	gateway   *fakeGateway
	metrics   *MetricsService
	verifier  *payment.HMACVerifier
	enroll    *EnrollmentService
	payments  *PaymentService
	progress  *ProgressService
	structure *StructureProvider
}

// newEnrollmentFixture seeds student S1 and course C1 (price 500) with sections A [L1, L2] and B [L3].
func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	store := newMemStore()
	store.seedUser("S1", models.RoleStudent)
	store.seedUser("I1", models.RoleInstructor)
	store.seedCourse("C1", "I1", 500, map[string][]string{"A": {"L1", "L2"}, "B": {"L3"}}, "A", "B")

	f := &enrollmentFixture{
		store:    store,
		notifier: &recordingNotifier{},
		gateway:  &fakeGateway{},
		metrics:  NewMetricsService(),
		verifier: payment.NewHMACVerifier(webhookSecret),
	}
	f.structure = NewStructureProvider(memCourses{store}, nil, 0, zap.NewNop())
	f.enroll = NewEnrollmentService(memCourses{store}, memUsers{store}, memProgress{store}, f.notifier, f.metrics, zap.NewNop())
	f.payments = NewPaymentService(memCourses{store}, f.gateway, f.verifier, f.enroll, memUsers{store}, f.metrics,
		PaymentConfig{KeyID: "rzp_key", Currency: "INR"}, nil, zap.NewNop())
	f.progress = NewProgressService(memProgress{store}, memLessons{store}, f.structure, memCourses{store}, memUsers{store}, nil, zap.NewNop())
	return f
}

func webhookBody(event, courseID, userID string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":50000,"currency":"INR","notes":{"courseId":%q,"userId":%q}}}}}`,
		event, courseID, userID))
}

func (f *enrollmentFixture) deliver(t *testing.T, body []byte) (*dto.WebhookResult, error) {
	t.Helper()
	return f.payments.HandleWebhook(context.Background(), body, f.verifier.Sign(body))
}

func TestWebhookDeliveredTwiceEnrollsOnce(t *testing.T) {
	f := newEnrollmentFixture(t)
	body := webhookBody(payment.EventPaymentCaptured, "C1", "S1")

	first, err := f.deliver(t, body)
	require.NoError(t, err)
	assert.Equal(t, dto.WebhookFulfilled, first.Outcome)

	second, err := f.deliver(t, body)
	require.NoError(t, err)
	assert.Equal(t, dto.WebhookAlreadyFulfilled, second.Outcome)

	course := f.store.courses["C1"]
	assert.Equal(t, []string{"S1"}, []string(course.EnrolledStudents))
	user := f.store.users["S1"]
	assert.Equal(t, []string{"C1"}, []string(user.Courses))
	assert.Len(t, user.CourseProgress, 1)
	assert.Equal(t, 1, f.store.progressCount())
	assert.Equal(t, []string{"S1->C1"}, f.notifier.confirmed)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.webhookTotal.WithLabelValues(OutcomeFulfilled)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.webhookTotal.WithLabelValues(OutcomeAlreadyFulfilled)))
}

func TestProgressAfterTwoOfThreeLessons(t *testing.T) {
	f := newEnrollmentFixture(t)
	_, err := f.deliver(t, webhookBody(payment.EventOrderPaid, "C1", "S1"))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.progress.MarkLessonComplete(ctx, "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "L1"})
	require.NoError(t, err)
	resp, err := f.progress.MarkLessonComplete(ctx, "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "L2"})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalLessons)
	assert.Equal(t, 66.67, resp.Percentage)
	assert.ElementsMatch(t, []string{"L1", "L2"}, resp.CompletedVideos)

	_, err = f.progress.MarkLessonComplete(ctx, "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "L2"})
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyCompleted))
	assert.Len(t, f.store.progress[progressKey("S1", "C1")].CompletedVideos, 2)
}

func TestProgressOfCourseWithoutLessonsIsZero(t *testing.T) {
	f := newEnrollmentFixture(t)
	f.store.seedCourse("C2", "I1", 0, map[string][]string{"A": {}}, "A")
	_, err := f.enroll.Fulfill(context.Background(), "C2", "S1")
	require.NoError(t, err)

	resp, err := f.progress.Percentage(context.Background(), "S1", "C2")
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp.Percentage)
	assert.Equal(t, 0, resp.TotalLessons)
}

func TestTamperedWebhookIsRejected(t *testing.T) {
	f := newEnrollmentFixture(t)
	body := webhookBody(payment.EventPaymentCaptured, "C1", "S1")
	signature := f.verifier.Sign(body)
	tampered := webhookBody(payment.EventPaymentCaptured, "C1", "S2")

	_, err := f.payments.HandleWebhook(context.Background(), tampered, signature)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidSignature))

	assert.Empty(t, f.store.courses["C1"].EnrolledStudents)
	assert.Equal(t, 0, f.store.progressCount())
	require.Len(t, f.store.audits, 1)
	assert.Equal(t, models.AuditActionWebhookRejected, f.store.audits[0].Action)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.webhookTotal.WithLabelValues(OutcomeRejected)))

	_, err = f.payments.HandleWebhook(context.Background(), body, "")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidSignature))
}

func TestConcurrentFulfilmentConverges(t *testing.T) {
	f := newEnrollmentFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.enroll.Fulfill(context.Background(), "C1", "S1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"S1"}, []string(f.store.courses["C1"].EnrolledStudents))
	assert.Equal(t, 1, f.store.progressCount())
	assert.Len(t, f.store.users["S1"].CourseProgress, 1)
}

func TestFulfilmentRereadsRecordAfterLostRace(t *testing.T) {
	f := newEnrollmentFixture(t)
	_, err := f.enroll.Fulfill(context.Background(), "C1", "S1")
	require.NoError(t, err)
	existing := f.store.progress[progressKey("S1", "C1")].ID

	f.store.hideProgressReads = 1
	result, err := f.enroll.Fulfill(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.Equal(t, existing, result.ProgressID)
	assert.True(t, result.AlreadyFulfilled)
	assert.Equal(t, 1, f.store.progressCount())
}

func TestFulfilmentRepairsPartialState(t *testing.T) {
	f := newEnrollmentFixture(t)
	// A crash after step 1 left the course set updated but nothing else.
	_, err := memCourses{f.store}.AddEnrolledStudent(context.Background(), "C1", "S1")
	require.NoError(t, err)

	result, err := f.enroll.Fulfill(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyFulfilled)
	assert.Equal(t, []string{"C1"}, []string(f.store.users["S1"].Courses))
	assert.Equal(t, 1, f.store.progressCount())
}

func TestFulfilmentUnknownCourse(t *testing.T) {
	f := newEnrollmentFixture(t)
	_, err := f.enroll.Fulfill(context.Background(), "missing", "S1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 0, f.store.progressCount())
}
