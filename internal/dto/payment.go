package dto

// CreateOrderRequest asks for a payment order for one course.
type CreateOrderRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// OrderResponse is what the client needs to open the processor checkout.
type OrderResponse struct {
	OrderID  string `json:"orderId"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
	CourseID string `json:"courseId"`
	KeyID    string `json:"keyId"`
}

// WebhookOutcome reports how a verified notification was handled.
type WebhookOutcome string

const (
	WebhookFulfilled        WebhookOutcome = "fulfilled"
	WebhookAlreadyFulfilled WebhookOutcome = "already_fulfilled"
	WebhookIgnored          WebhookOutcome = "ignored"
)

// WebhookResult is returned to the processor on a 2xx answer.
type WebhookResult struct {
	Outcome  WebhookOutcome `json:"outcome"`
	Event    string         `json:"event"`
	CourseID string         `json:"courseId,omitempty"`
	UserID   string         `json:"userId,omitempty"`
}

// FulfillmentResult describes the enrollment state after fulfilment.
type FulfillmentResult struct {
	CourseID         string `json:"courseId"`
	UserID           string `json:"userId"`
	ProgressID       string `json:"progressId"`
	AlreadyFulfilled bool   `json:"alreadyFulfilled"`
}
