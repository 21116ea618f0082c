package order

import (
	"context"
	"time"

	"orderhub/domain/order"
	"orderhub/pkg/clock"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

// Canceller is the single transition the sweeper drives.
type Canceller interface {
	CancelIfExpired(ctx context.Context, orderID int64, now time.Time, deadline time.Duration) (bool, error)
}

// TimeoutSweeper periodically cancels orders left unpaid past the payment
// timeout. Candidates are found by status and age; each one is re-checked
// under the order lock by the canceller, so a payment racing the sweep wins.
type TimeoutSweeper struct {
	orders    order.Repository
	canceller Canceller
	clock     clock.Clock
	interval  time.Duration
	timeout   time.Duration
	log       *zap.Logger
}

func NewTimeoutSweeper(orders order.Repository, canceller Canceller, clk clock.Clock, interval, timeout time.Duration) *TimeoutSweeper {
	if clk == nil {
		clk = clock.Real{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &TimeoutSweeper{
		orders:    orders,
		canceller: canceller,
		clock:     clk,
		interval:  interval,
		timeout:   timeout,
		log:       logger.Named("sweeper"),
	}
}

// Run sweeps on a fixed interval until ctx is done. A sweep that overruns
// the interval skips the ticks it missed.
func (s *TimeoutSweeper) Run(ctx context.Context) {
	s.log.Info("timeout sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("payment_timeout", s.timeout))
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("timeout sweeper stopped")
			return
		case <-ticker.C():
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("timeout sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce cancels every expired order and returns how many it cancelled.
// A failure on one order is logged and does not stop the others.
func (s *TimeoutSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.timeout)

	candidates, err := s.orders.FindByStatusAndCreatedBefore(ctx, order.StatusPendingPayment, cutoff)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	cancelled := 0
	for _, o := range candidates {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}
		ok, err := s.canceller.CancelIfExpired(ctx, o.ID(), now, s.timeout)
		if err != nil {
			s.log.Warn("failed to cancel expired order",
				zap.Int64("order_id", o.ID()),
				zap.String("order_number", o.Number()),
				zap.Error(err))
			continue
		}
		if ok {
			cancelled++
		}
	}
	s.log.Info("timeout sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("cancelled", cancelled),
		zap.Time("cutoff", cutoff))
	return cancelled, nil
}
