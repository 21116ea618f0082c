package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orderhub/domain/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnceCancelsOnlyExpiredOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := baseTime.Add(time.Hour)

	ids := make(map[string]int64)
	for _, c := range []struct {
		name string
		at   time.Time
	}{
		{"old", now.Add(-20 * time.Minute)},
		{"recent", now.Add(-10 * time.Minute)},
		{"fresh", now},
	} {
		f.clock.Set(c.at)
		userID, addrID := f.customer(t, "open-"+c.name)
		ids[c.name] = f.submit(t, userID, addrID).ID
	}
	f.clock.Set(now)

	sweeper := NewTimeoutSweeper(f.orders, f.svc, f.clock, time.Minute, 15*time.Minute)
	cancelled, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	assert.Equal(t, order.StatusCancelled, f.load(t, ids["old"]).Status())
	assert.Equal(t, order.StatusPendingPayment, f.load(t, ids["recent"]).Status())
	assert.Equal(t, order.StatusPendingPayment, f.load(t, ids["fresh"]).Status())

	cancelled, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, cancelled)
}

func TestSweepSkipsOrderPaidBeforeCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID, addrID := f.customer(t, "open-1")
	resp := f.submit(t, userID, addrID)
	f.clock.Advance(30 * time.Minute)

	// The payment lands after the candidate query but before the cancel.
	racer := &payingCanceller{svc: f.svc, number: resp.OrderNumber}
	sweeper := NewTimeoutSweeper(f.orders, racer, f.clock, time.Minute, 15*time.Minute)

	cancelled, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, cancelled)

	o := f.load(t, resp.ID)
	assert.True(t, o.IsPaid())
	assert.Equal(t, order.StatusToBeConfirmed, o.Status())
}

type payingCanceller struct {
	svc    *ApplicationService
	number string
}

func (c *payingCanceller) CancelIfExpired(ctx context.Context, id int64, now time.Time, deadline time.Duration) (bool, error) {
	if err := c.svc.CompletePayment(ctx, c.number); err != nil {
		return false, err
	}
	return c.svc.CancelIfExpired(ctx, id, now, deadline)
}

type flakyCanceller struct {
	mu    sync.Mutex
	calls []int64
	fail  int64
}

func (c *flakyCanceller) CancelIfExpired(_ context.Context, id int64, _ time.Time, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, id)
	if id == c.fail {
		return false, errors.New("storage unavailable")
	}
	return true, nil
}

func TestSweepContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c"} {
		userID, addrID := f.customer(t, "open-"+name)
		f.submit(t, userID, addrID)
	}
	f.clock.Advance(20 * time.Minute)

	canceller := &flakyCanceller{fail: 2}
	sweeper := NewTimeoutSweeper(f.orders, canceller, f.clock, time.Minute, 15*time.Minute)
	cancelled, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)
	assert.Equal(t, []int64{1, 2, 3}, canceller.calls)
}

func TestSweeperRunTicksUntilCancelled(t *testing.T) {
	f := newFixture(t)
	userID, addrID := f.customer(t, "open-1")
	resp := f.submit(t, userID, addrID)

	sweeper := NewTimeoutSweeper(f.orders, f.svc, f.clock, time.Minute, 15*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		f.clock.Advance(time.Minute)
		return f.load(t, resp.ID).Status() == order.StatusCancelled
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	_, _, n := f.notifier.counts()
	assert.Equal(t, 1, n)
}

// slowCanceller spends simulated time on every order it handles.
type slowCanceller struct {
	clock interface{ Advance(time.Duration) }
	cost  time.Duration

	mu    sync.Mutex
	sweep []time.Time
}

func (c *slowCanceller) CancelIfExpired(_ context.Context, _ int64, now time.Time, _ time.Duration) (bool, error) {
	c.mu.Lock()
	c.sweep = append(c.sweep, now)
	c.mu.Unlock()
	c.clock.Advance(c.cost)
	return false, nil
}

func (c *slowCanceller) times() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.sweep...)
}

func TestSweeperRunKeepsFixedCadence(t *testing.T) {
	f := newFixture(t)
	userID, addrID := f.customer(t, "open-1")
	f.submit(t, userID, addrID)
	f.clock.Advance(20 * time.Minute)
	start := f.clock.Now()

	canceller := &slowCanceller{clock: f.clock, cost: 40 * time.Second}
	sweeper := NewTimeoutSweeper(f.orders, canceller, f.clock, time.Minute, 15*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)
	require.Eventually(t, func() bool { return f.clock.Tickers() == 1 }, time.Second, time.Millisecond)

	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return len(canceller.times()) == 1 }, time.Second, time.Millisecond)

	// The first sweep ran 40s long; the next one is still due at +2m.
	f.clock.Advance(20 * time.Second)
	require.Eventually(t, func() bool { return len(canceller.times()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []time.Time{start.Add(time.Minute), start.Add(2 * time.Minute)}, canceller.times())
}
