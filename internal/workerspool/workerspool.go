// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs tasks on a bounded number of goroutines, queueing the excess.
package workerspool

import (
	"runtime"
	"sync"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/support/xsync"
)

// Pool of workers. Tasks submitted when all workers are busy wait in a FIFO queue.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time.
	// 0 runs tasks inline in Submit, and -1 runs each task in its own goroutine.
	maxParallelism int

	mu         sync.Mutex
	queue      []func()
	numRunning int

	// pending counts tasks submitted and not finished yet.
	pending *xsync.DynamicWaitGroup
}

// New returns a new Pool of workers with the default parallelism (runtime.GOMAXPROCS(0)).
func New() *Pool {
	return NewWithParallelism(runtime.GOMAXPROCS(0))
}

// NewWithParallelism returns a new Pool with the given maxParallelism.
// 0 disables parallelism (tasks run inline), and a negative value makes it unlimited.
func NewWithParallelism(maxParallelism int) *Pool {
	return &Pool{maxParallelism: maxParallelism, pending: xsync.NewDynamicWaitGroup()}
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// MaxParallelism returns the limit of tasks running at the same time.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// Submit schedules task to run. It never blocks waiting for a worker: if all workers are busy the
// task is queued.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
func (w *Pool) Submit(task func()) {
	w.pending.Add(1)
	if w.maxParallelism == 0 {
		defer w.pending.Done()
		task()
		return
	}
	if w.IsUnlimited() {
		go func() {
			defer w.pending.Done()
			task()
		}()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.numRunning >= w.maxParallelism {
		w.queue = append(w.queue, task)
		return
	}
	w.lockedStartWorker(task)
}

// lockedStartWorker starts a goroutine running task, and then the queued tasks until the queue is empty.
//
// It must be called with w.mu acquired.
func (w *Pool) lockedStartWorker(task func()) {
	w.numRunning++
	go func() {
		for task != nil {
			task()
			w.pending.Done()
			w.mu.Lock()
			if len(w.queue) == 0 {
				task = nil
				w.numRunning--
			} else {
				task = w.queue[0]
				w.queue[0] = nil
				w.queue = w.queue[1:]
			}
			w.mu.Unlock()
		}
	}()
}

// NumRunning returns the number of workers currently running.
func (w *Pool) NumRunning() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.numRunning
}

// NumQueued returns the number of tasks waiting for a worker.
func (w *Pool) NumQueued() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Wait until all submitted tasks are finished, including tasks submitted while waiting.
func (w *Pool) Wait() {
	w.pending.Wait()
}
