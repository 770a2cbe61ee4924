package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// ErrGatewayTimeout is returned when the processor did not answer within the configured timeout.
var ErrGatewayTimeout = errors.New("payment: gateway timeout")

// OrderRequest describes a payment order to open with the processor.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the processor's view of a created order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// Gateway creates payment orders with an external processor.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway opens orders through the Razorpay orders API.
type RazorpayGateway struct {
	orders  orderCreator
	timeout time.Duration
}

// NewRazorpayGateway builds a gateway from API credentials.
func NewRazorpayGateway(keyID, keySecret string, timeout time.Duration) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return newRazorpayGateway(client.Order, timeout)
}

func newRazorpayGateway(orders orderCreator, timeout time.Duration) *RazorpayGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RazorpayGateway{orders: orders, timeout: timeout}
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder opens an order. The SDK call is synchronous, so the deadline is enforced here.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("payment: amount must be positive, got %d", req.AmountMinor)
	}
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrGatewayTimeout
		}
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("create razorpay order: %w", res.err)
		}
		return decodeOrder(res.body)
	}
}

func decodeOrder(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("payment: order response missing id")
	}
	order := &Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	case int:
		order.Amount = int64(amount)
	}
	return order, nil
}
