// Package push keeps the live client connections of this process and
// delivers notification envelopes to them. Delivery is best-effort: nothing
// here returns an error to the caller, failures are logged and counted.
package push

import (
	"encoding/json"
	"errors"
	"sync"

	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

// Audience partitions the registry. Party ids are only unique within one.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceMerchant Audience = "merchant"
)

// ErrConnClosed is returned by Conn.WriteMessage after the peer went away.
var ErrConnClosed = errors.New("push: connection closed")

// Conn is one live channel to a client. Implementations serialize their own
// writes; the registry may call WriteMessage from many goroutines.
type Conn interface {
	IsOpen() bool
	WriteMessage(data []byte) error
	Close() error
}

// Delivery is the outcome of a unicast, for logs and tests only.
type Delivery int

const (
	Delivered Delivery = iota
	Offline
	Failed
)

func (d Delivery) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case Offline:
		return "offline"
	default:
		return "failed"
	}
}

type partition struct {
	mu     sync.RWMutex
	conns  map[int64]Conn
	closed bool
}

// Registry maps (audience, party id) to the current connection.
type Registry struct {
	mu         sync.Mutex
	partitions map[Audience]*partition
	closed     bool
	log        *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		partitions: map[Audience]*partition{
			AudienceCustomer: {conns: make(map[int64]Conn)},
			AudienceMerchant: {conns: make(map[int64]Conn)},
		},
		log: logger.Named("push"),
	}
}

func (r *Registry) partition(aud Audience) *partition {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partitions[aud]
	if !ok {
		p = &partition{conns: make(map[int64]Conn), closed: r.closed}
		r.partitions[aud] = p
	}
	return p
}

// Register stores conn for the party, replacing any previous connection.
// The replaced connection is left open; its owner closes it. After Close,
// conn is closed instead of stored.
func (r *Registry) Register(aud Audience, partyID int64, conn Conn) {
	p := r.partition(aud)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		r.log.Info("connection rejected, registry closed",
			zap.String("audience", string(aud)),
			zap.Int64("party_id", partyID))
		_ = conn.Close()
		return
	}
	_, replaced := p.conns[partyID]
	p.conns[partyID] = conn
	online := len(p.conns)
	p.mu.Unlock()

	r.log.Info("connection registered",
		zap.String("audience", string(aud)),
		zap.Int64("party_id", partyID),
		zap.Bool("replaced", replaced),
		zap.Int("online", online))
}

func (r *Registry) Unregister(aud Audience, partyID int64) {
	p := r.partition(aud)
	p.mu.Lock()
	_, ok := p.conns[partyID]
	delete(p.conns, partyID)
	online := len(p.conns)
	p.mu.Unlock()

	if ok {
		r.log.Info("connection unregistered",
			zap.String("audience", string(aud)),
			zap.Int64("party_id", partyID),
			zap.Int("online", online))
	}
}

// UnregisterConn removes the entry only while it still holds conn, so a late
// close of a superseded connection keeps its replacement registered.
func (r *Registry) UnregisterConn(aud Audience, partyID int64, conn Conn) bool {
	p := r.partition(aud)
	p.mu.Lock()
	current, ok := p.conns[partyID]
	removed := ok && current == conn
	if removed {
		delete(p.conns, partyID)
	}
	online := len(p.conns)
	p.mu.Unlock()

	if removed {
		r.log.Info("connection unregistered",
			zap.String("audience", string(aud)),
			zap.Int64("party_id", partyID),
			zap.Int("online", online))
	}
	return removed
}

func (r *Registry) lookup(aud Audience, partyID int64) Conn {
	p := r.partition(aud)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns[partyID]
}

// Send writes env to the party's connection if it is registered and open.
func (r *Registry) Send(aud Audience, partyID int64, env Envelope) Delivery {
	fields := []zap.Field{
		zap.String("audience", string(aud)),
		zap.Int64("party_id", partyID),
		zap.String("type", string(env.Type)),
	}

	conn := r.lookup(aud, partyID)
	if conn == nil || !conn.IsOpen() {
		r.log.Warn("party offline, message dropped", fields...)
		return Offline
	}

	payload, err := json.Marshal(env)
	if err != nil {
		r.log.Error("failed to encode envelope", append(fields, zap.Error(err))...)
		return Failed
	}
	if err := conn.WriteMessage(payload); err != nil {
		r.log.Warn("failed to push message", append(fields, zap.Error(err))...)
		return Failed
	}

	r.log.Debug("message pushed", fields...)
	return Delivered
}

// Broadcast writes env to every open connection of aud and returns how many
// writes succeeded. Entries registered during the call may or may not be reached.
func (r *Registry) Broadcast(aud Audience, env Envelope) int {
	p := r.partition(aud)
	p.mu.RLock()
	targets := make(map[int64]Conn, len(p.conns))
	for id, conn := range p.conns {
		targets[id] = conn
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(env)
	if err != nil {
		r.log.Error("failed to encode envelope", zap.String("type", string(env.Type)), zap.Error(err))
		return 0
	}

	delivered := 0
	for id, conn := range targets {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.WriteMessage(payload); err != nil {
			r.log.Warn("failed to push broadcast message",
				zap.String("audience", string(aud)),
				zap.Int64("party_id", id),
				zap.String("type", string(env.Type)),
				zap.Error(err))
			continue
		}
		delivered++
	}

	r.log.Info("broadcast finished",
		zap.String("audience", string(aud)),
		zap.String("type", string(env.Type)),
		zap.Int("delivered", delivered),
		zap.Int("registered", len(targets)))
	return delivered
}

func (r *Registry) IsOnline(aud Audience, partyID int64) bool {
	conn := r.lookup(aud, partyID)
	return conn != nil && conn.IsOpen()
}

func (r *Registry) Count(aud Audience) int {
	p := r.partition(aud)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Close closes every held connection and empties the registry. Connections
// registered afterwards are closed on arrival.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	parts := make(map[Audience]*partition, len(r.partitions))
	for aud, p := range r.partitions {
		parts[aud] = p
	}
	r.mu.Unlock()

	closed := 0
	for aud, p := range parts {
		p.mu.Lock()
		conns := p.conns
		p.conns = make(map[int64]Conn)
		p.closed = true
		p.mu.Unlock()

		for id, conn := range conns {
			if err := conn.Close(); err != nil {
				r.log.Debug("close connection",
					zap.String("audience", string(aud)),
					zap.Int64("party_id", id),
					zap.Error(err))
			}
			closed++
		}
	}
	r.log.Info("registry closed", zap.Int("connections", closed))
}
