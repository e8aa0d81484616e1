package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	clock := NewManualClock()
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_AdvanceAndSet(t *testing.T) {
	clock := NewManualClock()

	clock.Advance(90 * time.Second)
	assert.Equal(t, Epoch.Add(90*time.Second), clock.Now())

	later := Epoch.Add(time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock()
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(numGoroutines*time.Second), clock.Now())
}

func TestRecordingSleeper(t *testing.T) {
	var s RecordingSleeper

	assert.NoError(t, s.Sleep(context.Background(), time.Second))
	assert.NoError(t, s.Sleep(context.Background(), 2*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sleep(ctx, 3*time.Second), context.Canceled)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, s.Waits())
}
