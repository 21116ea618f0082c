package payment

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orderhub/config"
	"orderhub/pkg/clock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompleter struct {
	mu      sync.Mutex
	numbers []string
	err     error
	done    chan struct{}
}

func newRecordingCompleter() *recordingCompleter {
	return &recordingCompleter{done: make(chan struct{}, 8)}
}

func (c *recordingCompleter) CompletePayment(_ context.Context, number string) error {
	c.mu.Lock()
	c.numbers = append(c.numbers, number)
	c.mu.Unlock()
	c.done <- struct{}{}
	return c.err
}

func (c *recordingCompleter) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.numbers...)
}

func waitDone(t *testing.T, c *recordingCompleter) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled callback did not run")
	}
}

func TestPayBuildsIntent(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 8, 7, 0, time.UTC)
	g := NewMockGateway(config.PaymentConfig{Mode: "disabled"}, clock.NewFake(now), nil)
	t.Cleanup(g.Shutdown)

	intent, err := g.Pay(context.Background(), PayRequest{OrderNumber: "N1", Amount: decimal.RequireFromString("25.50"), PayerID: "open-id"})
	require.NoError(t, err)

	assert.Equal(t, "1792055287", intent.TimeStamp)
	assert.True(t, strings.HasPrefix(intent.PrepayID, "wx1792055287000"))
	assert.Len(t, intent.PrepayID, len("wx")+13+10)
	assert.Len(t, intent.NonceStr, 32)
	assert.Equal(t, "prepay_id="+intent.PrepayID, intent.Package)
	assert.Equal(t, "RSA", intent.SignType)
	sign, err := base64.StdEncoding.DecodeString(intent.PaySign)
	require.NoError(t, err)
	assert.Equal(t, intent.TimeStamp+intent.NonceStr+intent.Package, string(sign))
	assert.Empty(t, intent.Code)
}

func TestMockModeSchedulesCompletionOncePerNumber(t *testing.T) {
	g := NewMockGateway(config.PaymentConfig{Mode: "mock", CallbackDelay: 20 * time.Millisecond}, nil, nil)
	t.Cleanup(g.Shutdown)
	c := newRecordingCompleter()
	g.Bind(c)
	ctx := context.Background()

	_, err := g.Pay(ctx, PayRequest{OrderNumber: "N2"})
	require.NoError(t, err)
	_, err = g.Pay(ctx, PayRequest{OrderNumber: "N2"})
	require.NoError(t, err)

	waitDone(t, c)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"N2"}, c.calls())

	intent, err := g.Pay(ctx, PayRequest{OrderNumber: "N2"})
	require.NoError(t, err)
	assert.Equal(t, CodeOrderPaid, intent.Code)
}

func TestFailedCallbackDoesNotSettle(t *testing.T) {
	g := NewMockGateway(config.PaymentConfig{Mode: "mock", CallbackDelay: time.Millisecond}, nil, nil)
	t.Cleanup(g.Shutdown)
	c := newRecordingCompleter()
	c.err = errors.New("db down")
	g.Bind(c)

	_, err := g.Pay(context.Background(), PayRequest{OrderNumber: "N3"})
	require.NoError(t, err)
	waitDone(t, c)

	require.Eventually(t, func() bool { return !g.scheduler.Pending("N3") }, time.Second, 5*time.Millisecond)
	intent, err := g.Pay(context.Background(), PayRequest{OrderNumber: "N3"})
	require.NoError(t, err)
	assert.Empty(t, intent.Code)
}

func TestDisabledModeNeverSchedules(t *testing.T) {
	g := NewMockGateway(config.PaymentConfig{Mode: "disabled", CallbackDelay: time.Millisecond}, nil, nil)
	t.Cleanup(g.Shutdown)
	g.Bind(newRecordingCompleter())

	intent, err := g.Pay(context.Background(), PayRequest{OrderNumber: "N4"})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.PrepayID)
	assert.Zero(t, g.scheduler.Len())
}

func TestCallbackPayload(t *testing.T) {
	now := time.UnixMilli(1792055287123)
	g := NewMockGateway(config.PaymentConfig{Mode: "mock"}, clock.NewFake(now), nil)
	p := g.CallbackPayload("N5")
	assert.Equal(t, "N5", p.OutTradeNo)
	assert.Equal(t, "42001792055287123", p.TransactionID)
	assert.Equal(t, TradeStateSuccess, p.TradeState)
	assert.Equal(t, int64(1792055287123), p.SuccessTime)
}

func TestSchedulerShutdownStopsPendingJobs(t *testing.T) {
	s := NewCallbackScheduler()
	var ran atomic.Int32

	assert.True(t, s.Schedule("a", time.Hour, func(context.Context) { ran.Add(1) }))
	assert.False(t, s.Schedule("a", time.Millisecond, func(context.Context) { ran.Add(1) }))
	assert.True(t, s.Schedule("b", time.Hour, func(context.Context) { ran.Add(1) }))
	assert.Equal(t, 2, s.Len())

	s.Shutdown()
	assert.Zero(t, s.Len())
	assert.False(t, s.Schedule("c", time.Millisecond, func(context.Context) { ran.Add(1) }))
	assert.Zero(t, ran.Load())
}

func TestSchedulerShutdownWaitsForRunningJob(t *testing.T) {
	s := NewCallbackScheduler()
	started := make(chan struct{})
	var cancelled atomic.Bool

	s.Schedule("slow", 0, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	<-started
	s.Shutdown()
	assert.True(t, cancelled.Load())
}
