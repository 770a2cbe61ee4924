package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Events that confirm a captured payment.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

// Notification is the decoded, already verified webhook payload.
type Notification struct {
	Event     string
	PaymentID string
	OrderID   string
	Amount    int64
	Currency  string
	CourseID  string
	UserID    string
}

// Confirms reports whether the event represents a successful payment.
func (n Notification) Confirms() bool {
	return n.Event == EventPaymentCaptured || n.Event == EventOrderPaid
}

type entityNotes struct {
	CourseID string `json:"courseId"`
	UserID   string `json:"userId"`
}

// UnmarshalJSON accepts the empty array the processor sends when an entity has no notes.
func (n *entityNotes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*n = entityNotes{}
		return nil
	}
	type plain entityNotes
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*n = entityNotes(p)
	return nil
}

type webhookEntity struct {
	ID       string      `json:"id"`
	OrderID  string      `json:"order_id"`
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
	Notes    entityNotes `json:"notes"`
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity webhookEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseNotification decodes a webhook body. Notes are read from the payment entity first and
// from the order entity when the payment carries none.
func ParseNotification(body []byte) (*Notification, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	payment := env.Payload.Payment.Entity
	order := env.Payload.Order.Entity

	n := &Notification{
		Event:     env.Event,
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		CourseID:  payment.Notes.CourseID,
		UserID:    payment.Notes.UserID,
	}
	if n.OrderID == "" {
		n.OrderID = order.ID
	}
	if n.Amount == 0 {
		n.Amount = order.Amount
		n.Currency = order.Currency
	}
	if n.CourseID == "" {
		n.CourseID = order.Notes.CourseID
	}
	if n.UserID == "" {
		n.UserID = order.Notes.UserID
	}
	return n, nil
}
