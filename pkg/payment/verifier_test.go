package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifierRoundTrip(t *testing.T) {
	v := NewHMACVerifier("whsec")
	body := []byte(`{"event":"payment.captured"}`)

	sig := v.Sign(body)
	require.Len(t, sig, 64)
	assert.NoError(t, v.Verify(body, sig))
	assert.NoError(t, v.Verify(body, strings.ToUpper(sig)))
}

func TestHMACVerifierRejects(t *testing.T) {
	v := NewHMACVerifier("whsec")
	body := []byte(`{"event":"payment.captured","amount":49900}`)
	sig := v.Sign(body)

	tampered := []byte(`{"event":"payment.captured","amount":100}`)
	assert.ErrorIs(t, v.Verify(tampered, sig), ErrSignatureMismatch)
	assert.ErrorIs(t, v.Verify(body, ""), ErrMissingSignature)
	assert.ErrorIs(t, v.Verify(body, "zz-not-hex"), ErrSignatureMismatch)
	assert.ErrorIs(t, NewHMACVerifier("other").Verify(body, sig), ErrSignatureMismatch)
	assert.ErrorIs(t, NewHMACVerifier("").Verify(body, sig), ErrSignatureMismatch)
}

func TestParseNotificationPaymentNotes(t *testing.T) {
	body := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_1", "order_id": "order_1", "amount": 49900, "currency": "INR",
			"notes": {"courseId": "C1", "userId": "S1"}
		}}}
	}`)

	n, err := ParseNotification(body)
	require.NoError(t, err)
	assert.True(t, n.Confirms())
	assert.Equal(t, "pay_1", n.PaymentID)
	assert.Equal(t, "order_1", n.OrderID)
	assert.Equal(t, int64(49900), n.Amount)
	assert.Equal(t, "C1", n.CourseID)
	assert.Equal(t, "S1", n.UserID)
}

func TestParseNotificationFallsBackToOrder(t *testing.T) {
	body := []byte(`{
		"event": "order.paid",
		"payload": {
			"payment": {"entity": {"id": "pay_2", "notes": []}},
			"order": {"entity": {"id": "order_2", "amount": 100, "currency": "INR", "notes": {"courseId": "C2", "userId": "S2"}}}
		}
	}`)

	n, err := ParseNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "order_2", n.OrderID)
	assert.Equal(t, int64(100), n.Amount)
	assert.Equal(t, "C2", n.CourseID)
	assert.Equal(t, "S2", n.UserID)
}

func TestNotificationIgnoresOtherEvents(t *testing.T) {
	n, err := ParseNotification([]byte(`{"event":"payment.failed"}`))
	require.NoError(t, err)
	assert.False(t, n.Confirms())
}
