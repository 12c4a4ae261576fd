package backends

import (
	"sync"
	"sync/atomic"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/arguments"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/memory"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/pkg/errors"
)

// PreparedProgram is a model compiled for one device.
type PreparedProgram interface {
	// Device that prepared the program.
	Device() Device

	// Execute runs the program synchronously.
	//
	// It returns the status of the execution, the shapes of the outputs (possibly refined from the
	// request) and the timing if it was requested. Outputs whose buffer is too small are reported with
	// IsSufficient set to false, together with status.OutputInsufficientSize.
	Execute(request *Request) (status.Status, []status.OutputShape, status.Timing)
}

// Request holds the arguments of one execution of a PreparedProgram.
type Request struct {
	Inputs, Outputs []arguments.Argument

	// Pools referenced by arguments bound to memory.
	Pools *memory.Table

	// Burst is an optional reusable channel to the program, used to amortize per-execution work.
	Burst *Burst

	// MeasureTiming requests the device to report the time spent on device and in the driver.
	MeasureTiming bool
}

// InputBytes returns the bytes bound to the i-th input. It returns nil for omitted inputs.
func (r *Request) InputBytes(i int) ([]byte, error) {
	if i < 0 || i >= len(r.Inputs) {
		return nil, errors.Wrapf(status.ErrBadIndex, "input #%d, request has %d inputs", i, len(r.Inputs))
	}
	data, err := r.resolve(&r.Inputs[i])
	return data, errors.WithMessagef(err, "input #%d", i)
}

// OutputBytes returns the bytes bound to the i-th output. It returns nil for omitted outputs.
func (r *Request) OutputBytes(i int) ([]byte, error) {
	if i < 0 || i >= len(r.Outputs) {
		return nil, errors.Wrapf(status.ErrBadIndex, "output #%d, request has %d outputs", i, len(r.Outputs))
	}
	data, err := r.resolve(&r.Outputs[i])
	return data, errors.WithMessagef(err, "output #%d", i)
}

func (r *Request) resolve(arg *arguments.Argument) ([]byte, error) {
	switch loc := arg.Location.(type) {
	case arguments.Pointer:
		return loc.Buffer, nil
	case arguments.PoolRange:
		if r.Pools == nil {
			return nil, errors.Wrapf(status.ErrBadData, "argument %s bound to memory, but request has no pools", arg)
		}
		pool := r.Pools.Get(loc.Pool)
		if pool == nil {
			return nil, errors.Wrapf(status.ErrBadData, "argument %s refers to unknown pool, request has %d pools",
				arg, r.Pools.Len())
		}
		data, ok := memory.Resolve(pool, int(loc.Offset), int(loc.Length))
		if !ok {
			return nil, errors.Wrapf(status.ErrBadData, "argument %s can't be mapped from pool %s", arg, pool.Name())
		}
		return data, nil
	case arguments.NoValue:
		return nil, nil
	default:
		return nil, errors.Wrapf(status.ErrBadData, "argument %s not bound", arg)
	}
}

// Burst is a reusable channel to one PreparedProgram, for a sequence of executions issued one
// at a time. Devices use it to keep per-program state across executions.
type Burst struct {
	program       PreparedProgram
	numExecutions atomic.Int64

	mu    sync.Mutex
	memos map[string]any
}

// NewBurst creates a Burst for program.
func NewBurst(program PreparedProgram) *Burst {
	return &Burst{program: program, memos: make(map[string]any)}
}

// Program the burst was created for.
func (b *Burst) Program() PreparedProgram { return b.program }

// NumExecutions returns how many executions went through the burst.
func (b *Burst) NumExecutions() int64 { return b.numExecutions.Load() }

// Executed records one more execution through the burst. Called by devices.
func (b *Burst) Executed() { b.numExecutions.Add(1) }

// Memo returns the value stored under key, calling build to create it the first time.
func (b *Burst) Memo(key string, build func() any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if value, found := b.memos[key]; found {
		return value
	}
	value := build()
	b.memos[key] = value
	return value
}
