package task

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskgate/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestSchedulerFiresOnce verifies a scheduled action runs exactly once
func TestSchedulerFiresOnce(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t))
	defer s.Stop()

	var fired atomic.Int32
	start := time.Now()

	info, err := s.Schedule("test action", 50*time.Millisecond, func() {
		fired.Add(1)
	})
	require.NoError(t, err)

	// Schedule must return immediately
	assert.Less(t, time.Since(start), 40*time.Millisecond)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, types.ActionPending, info.Status)
	assert.Equal(t, 1, s.PendingCount())

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// Fired actions are discarded
	assert.Equal(t, 0, s.PendingCount())

	// And stay fired
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

// TestSchedulerCancel verifies cancellation of a pending action
func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t))
	defer s.Stop()

	var fired atomic.Int32
	info, err := s.Schedule("cancel me", time.Hour, func() {
		fired.Add(1)
	})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(info.ID))
	assert.Equal(t, 0, s.PendingCount())
	assert.Equal(t, int32(0), fired.Load())

	// Cancelling again reports not found
	assert.ErrorIs(t, s.Cancel(info.ID), types.ErrActionNotFound)
}

// TestSchedulerCancelAfterFire verifies firing wins the race
func TestSchedulerCancelAfterFire(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t))
	defer s.Stop()

	var fired atomic.Int32
	info, err := s.Schedule("fast action", 0, func() {
		fired.Add(1)
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Cancel(info.ID), types.ErrActionNotFound)
	assert.Equal(t, int32(1), fired.Load())
}

// TestSchedulerConcurrent verifies independent actions do not serialize
func TestSchedulerConcurrent(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t))
	defer s.Stop()

	var fired atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Schedule("bulk", 20*time.Millisecond, func() {
				fired.Add(1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return fired.Load() == 20
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.PendingCount())
}

// TestSchedulerTransitionHook verifies the hook sees fired and cancelled states
func TestSchedulerTransitionHook(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t))
	defer s.Stop()

	var mu sync.Mutex
	seen := make(map[types.ActionStatus]int)
	s.SetTransitionHook(func(info types.ScheduledActionInfo) {
		mu.Lock()
		seen[info.Status]++
		mu.Unlock()
	})

	_, err := s.Schedule("fires", 10*time.Millisecond, func() {})
	require.NoError(t, err)

	info, err := s.Schedule("cancelled", time.Hour, func() {})
	require.NoError(t, err)
	require.NoError(t, s.Cancel(info.ID))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[types.ActionFired] == 1 && seen[types.ActionCancelled] == 1
	}, time.Second, 10*time.Millisecond)
}

// TestSchedulerStop verifies stop drops pending actions and refuses new ones
func TestSchedulerStop(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t))

	var fired atomic.Int32
	_, err := s.Schedule("never fires", time.Hour, func() {
		fired.Add(1)
	})
	require.NoError(t, err)

	s.Stop()
	assert.Equal(t, 0, s.PendingCount())

	_, err = s.Schedule("rejected", time.Second, func() {})
	assert.Error(t, err)
	assert.Equal(t, int32(0), fired.Load())
}
