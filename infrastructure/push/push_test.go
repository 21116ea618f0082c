package push

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"orderhub/pkg/clock"
	"orderhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeConn struct {
	mu       sync.Mutex
	open     bool
	fail     error
	messages [][]byte
	closed   bool
}

func newFakeConn() *fakeConn { return &fakeConn{open: true} }

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if !c.open {
		return ErrConnClosed
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closed = true
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, len(c.messages))
	for i, m := range c.messages {
		require.NoError(t, json.Unmarshal(m, &out[i]))
	}
	return out
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(logger.Replace(zap.New(core)))
	return logs
}

func TestRegisterReplacesAndSendReachesLatest(t *testing.T) {
	observe(t)
	reg := NewRegistry()

	first, second := newFakeConn(), newFakeConn()
	reg.Register(AudienceCustomer, 1, first)
	reg.Register(AudienceCustomer, 1, second)
	assert.Equal(t, 1, reg.Count(AudienceCustomer))
	assert.False(t, first.closed, "superseded connection is not closed by the registry")

	assert.Equal(t, Delivered, reg.Send(AudienceCustomer, 1, NewEnvelope(TypePong, nil, "pong", time.Now())))
	assert.Empty(t, first.envelopes(t))
	assert.Len(t, second.envelopes(t), 1)

	assert.False(t, reg.UnregisterConn(AudienceCustomer, 1, first))
	assert.True(t, reg.IsOnline(AudienceCustomer, 1))
	assert.True(t, reg.UnregisterConn(AudienceCustomer, 1, second))
	assert.False(t, reg.IsOnline(AudienceCustomer, 1))
}

func TestAudiencesAreIsolated(t *testing.T) {
	observe(t)
	reg := NewRegistry()
	customer, merchant := newFakeConn(), newFakeConn()
	reg.Register(AudienceCustomer, 5, customer)
	reg.Register(AudienceMerchant, 5, merchant)

	reg.Send(AudienceMerchant, 5, NewEnvelope(TypeNewOrder, nil, "x", time.Now()))
	assert.Empty(t, customer.envelopes(t))
	assert.Len(t, merchant.envelopes(t), 1)

	reg.Unregister(AudienceCustomer, 5)
	assert.True(t, reg.IsOnline(AudienceMerchant, 5))
	reg.Unregister(AudienceCustomer, 404)
}

func TestSendToOfflineOrClosedNeverFails(t *testing.T) {
	logs := observe(t)
	reg := NewRegistry()
	healthy, closed, broken := newFakeConn(), newFakeConn(), newFakeConn()
	closed.open = false
	broken.fail = errors.New("broken pipe")
	reg.Register(AudienceCustomer, 1, healthy)
	reg.Register(AudienceCustomer, 2, closed)
	reg.Register(AudienceCustomer, 3, broken)

	env := NewEnvelope(TypeOrderCancel, map[string]any{"orderId": 1}, "order cancelled", time.Now())
	assert.Equal(t, Offline, reg.Send(AudienceCustomer, 99, env))
	assert.Equal(t, Offline, reg.Send(AudienceCustomer, 2, env))
	assert.Equal(t, Failed, reg.Send(AudienceCustomer, 3, env))
	assert.Equal(t, Delivered, reg.Send(AudienceCustomer, 1, env))

	assert.Len(t, healthy.envelopes(t), 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to push message").Len())
	assert.Equal(t, 2, logs.FilterMessage("party offline, message dropped").Len())
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	observe(t)
	reg := NewRegistry()
	a, b, c := newFakeConn(), newFakeConn(), newFakeConn()
	b.fail = errors.New("reset by peer")
	reg.Register(AudienceMerchant, 1, a)
	reg.Register(AudienceMerchant, 2, b)
	reg.Register(AudienceMerchant, 3, c)
	reg.Register(AudienceCustomer, 1, newFakeConn())

	delivered := reg.Broadcast(AudienceMerchant, NewEnvelope(TypeNewOrder, nil, "you have a new order", time.Now()))
	assert.Equal(t, 2, delivered)
	assert.Len(t, a.envelopes(t), 1)
	assert.Len(t, c.envelopes(t), 1)
}

func TestConcurrentRegistryUse(t *testing.T) {
	observe(t)
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(3)
		go func(id int64) {
			defer wg.Done()
			reg.Register(AudienceMerchant, id, newFakeConn())
		}(i)
		go func() {
			defer wg.Done()
			reg.Broadcast(AudienceMerchant, NewEnvelope(TypeNewOrder, nil, "", time.Now()))
		}()
		go func(id int64) {
			defer wg.Done()
			reg.Unregister(AudienceMerchant, id-1)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, reg.Count(AudienceMerchant), 50)
}

func TestCloseClosesEveryConnection(t *testing.T) {
	observe(t)
	reg := NewRegistry()
	a, b := newFakeConn(), newFakeConn()
	reg.Register(AudienceCustomer, 1, a)
	reg.Register(AudienceMerchant, 1, b)

	reg.Close()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Zero(t, reg.Count(AudienceCustomer))
	assert.Zero(t, reg.Count(AudienceMerchant))
}

func TestRegisterAfterCloseClosesConnection(t *testing.T) {
	observe(t)
	reg := NewRegistry()
	reg.Close()

	late := newFakeConn()
	reg.Register(AudienceCustomer, 9, late)
	assert.True(t, late.closed)
	assert.False(t, reg.IsOnline(AudienceCustomer, 9))
	assert.Equal(t, Offline, reg.Send(AudienceCustomer, 9, NewEnvelope(TypePong, nil, "", time.Now())))

	other := newFakeConn()
	reg.Register(Audience("courier"), 1, other)
	assert.True(t, other.closed)
	assert.Zero(t, reg.Count(Audience("courier")))
}

func TestDispatcherEnvelopes(t *testing.T) {
	observe(t)
	now := time.Date(2026, 10, 15, 9, 8, 7, 0, time.UTC)
	reg := NewRegistry()
	d := NewDispatcher(reg, clock.NewFake(now))
	user, m1, m2 := newFakeConn(), newFakeConn(), newFakeConn()
	reg.Register(AudienceCustomer, 7, user)
	reg.Register(AudienceMerchant, 1, m1)
	reg.Register(AudienceMerchant, 2, m2)

	d.PaymentSuccess(7, "N1", map[string]any{"orderNumber": "N1"})
	d.OrderStatusChange(7, nil)
	d.OrderCancel(7, nil)
	d.NewOrder(map[string]any{"orderNumber": "N1"})
	d.PaymentSuccess(8, "N2", nil)

	got := user.envelopes(t)
	require.Len(t, got, 3)
	assert.Equal(t, TypePaymentSuccess, got[0].Type)
	assert.Equal(t, "payment succeeded", got[0].Message)
	assert.Equal(t, now.UnixMilli(), got[0].Timestamp)
	assert.Equal(t, "N1", got[0].Data.(map[string]any)["orderNumber"])
	assert.Equal(t, TypeOrderStatusChange, got[1].Type)
	assert.Equal(t, "order status updated", got[1].Message)
	assert.Equal(t, TypeOrderCancel, got[2].Type)
	assert.Equal(t, "order cancelled", got[2].Message)

	for _, m := range []*fakeConn{m1, m2} {
		envs := m.envelopes(t)
		require.Len(t, envs, 1)
		assert.Equal(t, TypeNewOrder, envs[0].Type)
		assert.Equal(t, "you have a new order", envs[0].Message)
	}
}

func TestEndpointLifecycle(t *testing.T) {
	observe(t)
	reg := NewRegistry()
	ep := NewEndpoint(AudienceMerchant, reg, NewDispatcher(reg, nil))
	conn := newFakeConn()

	ep.OnOpen(3, conn)
	assert.True(t, reg.IsOnline(AudienceMerchant, 3))
	ep.OnMessage(3, "ping")
	ep.OnMessage(3, "hello")
	ep.OnError(3, errors.New("read timeout"))

	envs := conn.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, TypeConnected, envs[0].Type)
	assert.Equal(t, "connected", envs[0].Message)
	assert.Equal(t, TypePong, envs[1].Type)

	ep.OnClose(3, conn)
	assert.False(t, reg.IsOnline(AudienceMerchant, 3))
}
