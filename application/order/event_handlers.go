package order

import (
	"context"

	"orderhub/domain/order"
	"orderhub/domain/shared"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

// RegisterAuditHandlers subscribes a structured audit log line for every
// order lifecycle event published after commit.
func RegisterAuditHandlers(bus *shared.EventBus) error {
	log := logger.Named("audit")
	handler := shared.NewFuncHandler("order-audit", func(_ context.Context, event shared.DomainEvent) error {
		fields := []zap.Field{
			zap.String("event", event.EventName()),
			zap.String("order_number", event.AggregateID()),
			zap.Time("occurred_on", event.OccurredOn()),
		}
		switch e := event.(type) {
		case *order.OrderSubmittedEvent:
			fields = append(fields, zap.Int64("user_id", e.UserID()), zap.String("amount", e.Amount().StringFixed(2)))
		case *order.OrderPaidEvent:
			fields = append(fields, zap.Int64("order_id", e.OrderID()), zap.Int64("user_id", e.UserID()),
				zap.String("amount", e.Amount().StringFixed(2)))
		case *order.OrderCancelledEvent:
			fields = append(fields, zap.Int64("order_id", e.OrderID()), zap.String("reason", e.Reason()))
		}
		log.Info("order event", fields...)
		return nil
	})

	for _, name := range []string{order.EventOrderSubmitted, order.EventOrderPaid, order.EventOrderCancelled} {
		if err := bus.Subscribe(name, handler); err != nil {
			return err
		}
	}
	return nil
}
