package execution

import (
	"sync"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/support/xsync"
	"k8s.io/klog/v2"
)

// Result of an execution, delivered through its Completion.
type Result struct {
	Status status.Status

	// OutputShapes has one entry per model output, or is empty if the shapes are unknown.
	OutputShapes []status.OutputShape

	// Timing of the last step run, status.NoTiming if not measured.
	Timing status.Timing
}

// Completion is the single-assignment result of a compute. Only the first result delivered is kept.
type Completion struct {
	mu       sync.Mutex
	notified bool
	onFinish func(Result) status.Status

	latch *xsync.LatchWithValue[Result]
}

// newCompletion returns a Completion that calls onFinish, if not nil, with the first result delivered,
// before releasing waiters. If onFinish returns a status other than status.None, it replaces the
// delivered status.
func newCompletion(onFinish func(Result) status.Status) *Completion {
	return &Completion{onFinish: onFinish, latch: xsync.NewLatchWithValue[Result]()}
}

// notify delivers the result. Results after the first one are logged and dropped.
func (c *Completion) notify(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notified {
		klog.Errorf("execution result notified twice, dropping status %s", result.Status)
		return
	}
	c.notified = true
	if c.onFinish != nil {
		if finishStatus := c.onFinish(result); finishStatus != status.None {
			result.Status = finishStatus
		}
	}
	c.latch.Trigger(result)
}

// Wait blocks until the result is delivered and returns it.
func (c *Completion) Wait() Result {
	return c.latch.Wait()
}

// Done returns a channel closed when the result is delivered.
func (c *Completion) Done() <-chan struct{} {
	return c.latch.WaitChan()
}

// Test returns whether the result was delivered, without blocking.
func (c *Completion) Test() bool {
	return c.latch.Test()
}

// Err waits for the result and returns its status as an error, nil on success.
func (c *Completion) Err() error {
	return c.Wait().Status.Err()
}
