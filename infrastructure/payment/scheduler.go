package payment

import (
	"context"
	"sync"
	"time"
)

// CallbackScheduler runs delayed jobs keyed by order number. At most one job
// per key is pending; Shutdown stops pending jobs and waits for running ones.
type CallbackScheduler struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCallbackScheduler() *CallbackScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CallbackScheduler{
		pending: make(map[string]*time.Timer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule runs fn after delay on its own goroutine. It returns false when a
// job for key is already pending or the scheduler is shut down.
func (s *CallbackScheduler) Schedule(key string, delay time.Duration, fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, ok := s.pending[key]; ok {
		return false
	}

	s.wg.Add(1)
	s.pending[key] = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()

		fn(s.ctx)
	})
	return true
}

func (s *CallbackScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

func (s *CallbackScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown drops pending jobs, cancels the context handed to running ones
// and waits for them to return.
func (s *CallbackScheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for key, t := range s.pending {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
