package integrity

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/firmkeeper/internal/model"
)

// validationQueue de-duplicates concurrent validations of the same entity
// and caps how many run at once.
//
// Per key the lifecycle is idle → waiting for a slot → in flight → idle.
// A submission for a key already waiting or in flight shares that
// validation's result instead of starting another.
//
// Thread-safety: all methods are safe for concurrent use.
type validationQueue struct {
	group    singleflight.Group
	slots    *semaphore.Weighted
	inFlight atomic.Int64
}

func newValidationQueue(capacity int) *validationQueue {
	return &validationQueue{slots: semaphore.NewWeighted(int64(capacity))}
}

// Do runs fn for key once a slot is free, or joins the run already
// started for key. Returns ctx.Err() if ctx ends while waiting for a slot.
func (q *validationQueue) Do(ctx context.Context, key string, fn func() []model.ValidationIssue) ([]model.ValidationIssue, error) {
	v, err, _ := q.group.Do(key, func() (any, error) {
		if err := q.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer q.slots.Release(1)

		q.inFlight.Add(1)
		defer q.inFlight.Add(-1)

		return fn(), nil
	})
	if err != nil {
		return nil, err
	}

	// Results are shared between joined callers.
	shared := v.([]model.ValidationIssue)
	out := make([]model.ValidationIssue, len(shared))
	copy(out, shared)
	return out, nil
}

// InFlight returns the number of validations holding a slot.
func (q *validationQueue) InFlight() int {
	return int(q.inFlight.Load())
}
