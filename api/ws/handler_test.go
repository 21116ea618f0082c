package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderhub/config"
	"orderhub/infrastructure/push"
	"orderhub/pkg/clock"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	registry   *push.Registry
	dispatcher *push.Dispatcher
	server     *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := push.NewRegistry()
	dispatcher := push.NewDispatcher(registry, clock.NewFake(time.UnixMilli(1792055287000)))
	cfg := config.WebSocketConfig{WriteTimeout: time.Second, PongWait: 5 * time.Second, PingPeriod: time.Second, ReadLimit: 1024}

	engine := gin.New()
	engine.GET("/ws/order/:userId", NewHandler(push.NewEndpoint(push.AudienceCustomer, registry, dispatcher), cfg).Serve("userId"))
	engine.GET("/ws/admin/:adminId", NewHandler(push.NewEndpoint(push.AudienceMerchant, registry, dispatcher), cfg).Serve("adminId"))

	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		registry.Close()
		srv.Close()
	})
	return &harness{registry: registry, dispatcher: dispatcher, server: srv}
}

func (h *harness) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + path
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readEnvelope(t *testing.T, c *websocket.Conn) push.Envelope {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var env push.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t, "/ws/order/7")

	env := readEnvelope(t, c)
	assert.Equal(t, push.TypeConnected, env.Type)
	assert.Equal(t, int64(1792055287000), env.Timestamp)
	assert.True(t, h.registry.IsOnline(push.AudienceCustomer, 7))
	assert.False(t, h.registry.IsOnline(push.AudienceMerchant, 7))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, push.TypePong, readEnvelope(t, c).Type)

	h.dispatcher.OrderCancel(7, map[string]string{"orderNumber": "N1"})
	env = readEnvelope(t, c)
	assert.Equal(t, push.TypeOrderCancel, env.Type)
	assert.Equal(t, "order cancelled", env.Message)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool {
		return !h.registry.IsOnline(push.AudienceCustomer, 7)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMerchantBroadcast(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "/ws/admin/1")
	b := h.dial(t, "/ws/admin/2")
	readEnvelope(t, a)
	readEnvelope(t, b)

	h.dispatcher.NewOrder(map[string]string{"orderNumber": "N9"})
	for _, c := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, c)
		assert.Equal(t, push.TypeNewOrder, env.Type)
		assert.Equal(t, "you have a new order", env.Message)
	}
	assert.Equal(t, 2, h.registry.Count(push.AudienceMerchant))
}

func TestReconnectKeepsNewestSession(t *testing.T) {
	h := newHarness(t)
	first := h.dial(t, "/ws/order/5")
	readEnvelope(t, first)
	second := h.dial(t, "/ws/order/5")
	readEnvelope(t, second)

	// Closing the superseded socket must not evict the newer one.
	require.NoError(t, first.Close())
	time.Sleep(100 * time.Millisecond)
	assert.True(t, h.registry.IsOnline(push.AudienceCustomer, 5))

	h.dispatcher.OrderStatusChange(5, nil)
	assert.Equal(t, push.TypeOrderStatusChange, readEnvelope(t, second).Type)
}

func TestRejectsInvalidPartyID(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/ws/order/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegistryCloseClosesSockets(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t, "/ws/order/3")
	readEnvelope(t, c)

	h.registry.Close()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
