package push

import (
	"strings"

	"go.uber.org/zap"
)

// Endpoint holds the session callbacks of one audience. Transports call it
// and stay ignorant of the registry and envelope formats.
type Endpoint struct {
	audience   Audience
	registry   *Registry
	dispatcher *Dispatcher
}

func NewEndpoint(aud Audience, registry *Registry, dispatcher *Dispatcher) *Endpoint {
	return &Endpoint{audience: aud, registry: registry, dispatcher: dispatcher}
}

func (e *Endpoint) Audience() Audience { return e.audience }

// OnOpen registers conn for the party and acknowledges with CONNECTED.
func (e *Endpoint) OnOpen(partyID int64, conn Conn) {
	e.registry.Register(e.audience, partyID, conn)
	e.dispatcher.Connected(e.audience, partyID)
}

func (e *Endpoint) OnClose(partyID int64, conn Conn) {
	e.registry.UnregisterConn(e.audience, partyID, conn)
}

// OnMessage answers the "ping" heartbeat; other text is logged and ignored.
func (e *Endpoint) OnMessage(partyID int64, text string) {
	if strings.TrimSpace(text) == "ping" {
		e.dispatcher.Pong(e.audience, partyID)
		return
	}
	e.registry.log.Debug("message received",
		zap.String("audience", string(e.audience)),
		zap.Int64("party_id", partyID),
		zap.Int("bytes", len(text)))
}

func (e *Endpoint) OnError(partyID int64, err error) {
	e.registry.log.Warn("connection error",
		zap.String("audience", string(e.audience)),
		zap.Int64("party_id", partyID),
		zap.Error(err))
}
