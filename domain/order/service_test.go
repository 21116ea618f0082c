package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberGeneratorFormat(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 9, 8, 7, 654*int(time.Millisecond), time.UTC)
	g := NewNumberGenerator(func() time.Time { return fixed })

	assert.Equal(t, "202610150908076540000", g.Next())
	assert.Equal(t, "202610150908076540001", g.Next())
}

func TestNumberGeneratorIgnoresLocalDaylightSaving(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 01:30 local occurs twice on 2026-11-01: once in EDT, once in EST.
	first := time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC).In(ny)
	second := first.Add(time.Hour)
	require.Equal(t, first.Format("15:04"), second.Format("15:04"))

	now := first
	g := NewNumberGenerator(func() time.Time { return now })
	a := g.Next()
	now = second
	b := g.Next()

	assert.Equal(t, "202611010530000000000", a)
	assert.Equal(t, "202611010630000000000", b)
}

func TestNumberGeneratorUniqueWithinOneMillisecond(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	g := NewNumberGenerator(func() time.Time { return fixed })

	const workers, perWorker = 8, 2000
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n := g.Next()
				mu.Lock()
				seen[n] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestNumberGeneratorClockStepsBack(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 5*int(time.Millisecond), time.UTC)
	g := NewNumberGenerator(func() time.Time { return now })

	first := g.Next()
	now = now.Add(-2 * time.Millisecond)
	second := g.Next()

	assert.NotEqual(t, first, second)
	assert.Greater(t, second, first)
}

func TestStatusCreatedBeforeSpecification(t *testing.T) {
	now := time.Now()
	spec := NewStatusCreatedBeforeSpecification(StatusPendingPayment, now.Add(-15*time.Minute))

	old := newTestOrder(t, now.Add(-20*time.Minute))
	recent := newTestOrder(t, now.Add(-10*time.Minute))
	cancelled := newTestOrder(t, now.Add(-30*time.Minute))
	require.NoError(t, cancelled.CancelForTimeout(now))

	ctx := context.Background()
	assert.True(t, spec.IsSatisfiedBy(ctx, old))
	assert.False(t, spec.IsSatisfiedBy(ctx, recent))
	assert.False(t, spec.IsSatisfiedBy(ctx, cancelled))
}
