package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/support/xsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Bounded(t *testing.T) {
	pool := NewWithParallelism(2)
	release := xsync.NewLatch()
	var running, maxRunning atomic.Int32
	var mu sync.Mutex
	var order []int

	for ii := range 6 {
		pool.Submit(func() {
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			release.Wait()
			mu.Lock()
			order = append(order, ii)
			mu.Unlock()
			running.Add(-1)
		})
	}
	// Submit never blocks: the excess tasks are queued.
	assert.Equal(t, 4, pool.NumQueued())
	assert.Equal(t, 2, pool.NumRunning())
	release.Trigger()

	done := xsync.NewLatch()
	go func() {
		pool.Wait()
		done.Trigger()
	}()
	select {
	case <-done.WaitChan():
	case <-time.After(time.Second):
		t.Fatal("Timeout before all tasks were executed.")
	}
	assert.LessOrEqual(t, int(maxRunning.Load()), 2)
	assert.Len(t, order, 6)
	assert.Equal(t, 0, pool.NumRunning())
	assert.Equal(t, 0, pool.NumQueued())
}

func TestPool_Inline(t *testing.T) {
	pool := NewWithParallelism(0)
	require.False(t, pool.IsEnabled())
	var count int
	pool.Submit(func() { count++ })
	assert.Equal(t, 1, count, "task must have run inline")
	pool.Wait()
}

func TestPool_Unlimited(t *testing.T) {
	pool := NewWithParallelism(-1)
	require.True(t, pool.IsUnlimited())
	release := xsync.NewLatch()
	var started atomic.Int32
	for range 10 {
		pool.Submit(func() {
			started.Add(1)
			release.Wait()
		})
	}
	require.Eventually(t, func() bool { return started.Load() == 10 }, time.Second, time.Millisecond)
	release.Trigger()
	pool.Wait()
}

func TestPool_Default(t *testing.T) {
	pool := New()
	assert.True(t, pool.IsEnabled())
	assert.Greater(t, pool.MaxParallelism(), 0)
}
