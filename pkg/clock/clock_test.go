package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvanceFiresDueWaiters(t *testing.T) {
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)

	short := f.After(time.Second)
	long := f.After(time.Minute)

	f.Advance(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), f.Now())

	select {
	case got := <-short:
		assert.Equal(t, start.Add(2*time.Second), got)
	default:
		t.Fatal("short waiter should have fired")
	}
	select {
	case <-long:
		t.Fatal("long waiter fired early")
	default:
	}
}

func TestRealClock(t *testing.T) {
	var c Clock = Real{}
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}

func TestFakeTickerKeepsFixedSchedule(t *testing.T) {
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)
	ticker := f.NewTicker(time.Minute)
	defer ticker.Stop()

	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(time.Minute), <-ticker.C())

	// The next tick is due at +2m no matter when the first one was read.
	f.Advance(30 * time.Second)
	select {
	case got := <-ticker.C():
		assert.Equal(t, start.Add(2*time.Minute), got)
	default:
		t.Fatal("tick at +2m should have fired")
	}
}

func TestFakeTickerDropsMissedTicks(t *testing.T) {
	f := NewFake(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	ticker := f.NewTicker(time.Minute)

	f.Advance(5 * time.Minute)
	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("missed ticks should be dropped")
	default:
	}

	ticker.Stop()
	f.Advance(time.Minute)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
