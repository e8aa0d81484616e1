package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper records requested waits and returns immediately.
//
// It still honours cancellation: a wait requested on a finished context
// returns that context's error.
//
// Thread-safety: All methods are safe for concurrent use.
type RecordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

// Sleep records d. Matches the integrity.Sleeper signature.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Waits returns the recorded durations in call order.
func (s *RecordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}
