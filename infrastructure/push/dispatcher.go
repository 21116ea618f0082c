package push

import (
	"orderhub/pkg/clock"

	"go.uber.org/zap"
)

// Dispatcher turns notification kinds into envelopes and routes them through
// the registry. It holds no state of its own and never fails the caller.
type Dispatcher struct {
	registry *Registry
	clock    clock.Clock
}

func NewDispatcher(registry *Registry, clk clock.Clock) *Dispatcher {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Dispatcher{registry: registry, clock: clk}
}

func (d *Dispatcher) envelope(typ MessageType, data any, message string) Envelope {
	return NewEnvelope(typ, data, message, d.clock.Now())
}

func (d *Dispatcher) Connected(aud Audience, partyID int64) {
	d.registry.Send(aud, partyID, d.envelope(TypeConnected, nil, "connected"))
}

// PaymentSuccess tells the paying customer the order went through.
func (d *Dispatcher) PaymentSuccess(userID int64, orderNumber string, data any) {
	delivery := d.registry.Send(AudienceCustomer, userID, d.envelope(TypePaymentSuccess, data, "payment succeeded"))
	d.registry.log.Info("payment success dispatched",
		zap.Int64("user_id", userID),
		zap.String("order_number", orderNumber),
		zap.Stringer("delivery", delivery))
}

func (d *Dispatcher) OrderStatusChange(userID int64, data any) {
	d.registry.Send(AudienceCustomer, userID, d.envelope(TypeOrderStatusChange, data, "order status updated"))
}

// NewOrder alerts every connected merchant.
func (d *Dispatcher) NewOrder(data any) {
	d.registry.Broadcast(AudienceMerchant, d.envelope(TypeNewOrder, data, "you have a new order"))
}

func (d *Dispatcher) OrderCancel(userID int64, data any) {
	d.registry.Send(AudienceCustomer, userID, d.envelope(TypeOrderCancel, data, "order cancelled"))
}

func (d *Dispatcher) Pong(aud Audience, partyID int64) {
	d.registry.Send(aud, partyID, d.envelope(TypePong, nil, "pong"))
}
