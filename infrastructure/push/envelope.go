package push

import "time"

type MessageType string

const (
	TypeConnected         MessageType = "CONNECTED"
	TypePaymentSuccess    MessageType = "PAYMENT_SUCCESS"
	TypeOrderStatusChange MessageType = "ORDER_STATUS_CHANGE"
	TypeNewOrder          MessageType = "NEW_ORDER"
	TypeOrderCancel       MessageType = "ORDER_CANCEL"
	TypePong              MessageType = "PONG"
)

// Envelope is the JSON record written to a connection. Build one per send
// with NewEnvelope and do not modify it afterwards.
type Envelope struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Message   string      `json:"message"`
}

func NewEnvelope(typ MessageType, data any, message string, at time.Time) Envelope {
	return Envelope{Type: typ, Data: data, Timestamp: at.UnixMilli(), Message: message}
}
