package order

import (
	"context"
	"time"

	"orderhub/infrastructure/payment"
)

// Notifier receives state-change notifications after a transition committed.
// Implementations must not block for long and never fail the caller.
type Notifier interface {
	PaymentSuccess(userID int64, orderNumber string, data any)
	NewOrder(data any)
	OrderCancel(userID int64, data any)
}

type PaymentGateway interface {
	Pay(ctx context.Context, req payment.PayRequest) (*payment.Intent, error)
}

// Config holds the lifecycle timings.
type Config struct {
	PaymentTimeout     time.Duration
	DeliveryLead       time.Duration
	PaymentDescription string
}
