package execution

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/arguments"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/memory"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/plan"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// State of an Execution.
type State int32

const (
	// StateUnstarted accepts argument bindings.
	StateUnstarted State = iota

	// StateStarted is set by the compute: the arguments are frozen.
	StateStarted

	// StateFinished is set once the result is delivered: results can be queried.
	StateFinished
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarted:
		return "started"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Execution is one run of a Compilation: the arguments bound by the caller, and the results.
//
// Bind all inputs and outputs, then call exactly one of Compute, ComputeAsync or ComputeBurst.
// Binding methods are not safe for concurrent use.
type Execution struct {
	id          string
	compilation *Compilation

	inputs, outputs []arguments.Argument
	pools           *memory.Table

	measureTiming bool
	timing        status.Timing

	state  atomic.Int32
	bursts *plan.Bursts
}

// NewExecution creates an Execution of the compiled model, with all arguments unbound.
func (c *Compilation) NewExecution() *Execution {
	return &Execution{
		id:          uuid.NewString(),
		compilation: c,
		inputs:      make([]arguments.Argument, c.model.NumInputs()),
		outputs:     make([]arguments.Argument, c.model.NumOutputs()),
		pools:       memory.NewTable(),
		timing:      status.NoTiming,
	}
}

// ID uniquely identifies the execution in logs.
func (e *Execution) ID() string { return e.id }

// State returns the current state of the execution.
func (e *Execution) State() State { return State(e.state.Load()) }

// String implements fmt.Stringer.
func (e *Execution) String() string {
	return fmt.Sprintf("Execution(%s, %q, %s)", e.id[:8], e.compilation.model.Name, e.State())
}

func (e *Execution) checkUnstarted(name string) error {
	if state := e.State(); state != StateUnstarted {
		return errors.Wrapf(status.ErrInvalidState, "%s called on %s", name, e)
	}
	return nil
}

func (e *Execution) checkFinished(name string) error {
	if state := e.State(); state != StateFinished {
		return errors.Wrapf(status.ErrInvalidState, "%s called on %s, it must be finished", name, e)
	}
	return nil
}

func checkIndex(name string, index, count int) error {
	if index < 0 || index >= count {
		return errors.Wrapf(status.ErrBadIndex, "%s: index %d out of range [0, %d)", name, index, count)
	}
	return nil
}

// SetInput binds the input index to buffer. A nil buffer marks an optional input as omitted.
//
// override, if given, refines the type of the operand: it can only set dimensions left unspecified by
// the model. The buffer length must match the size of the resulting type, which must be fully specified.
func (e *Execution) SetInput(index int, override *shapes.OperandType, buffer []byte) error {
	const name = "SetInput"
	if err := e.checkUnstarted(name); err != nil {
		return err
	}
	if err := checkIndex(name, index, len(e.inputs)); err != nil {
		return err
	}
	operand := e.compilation.model.InputOperand(index).Type
	if err := arguments.CheckOverride(operand, override, buffer == nil); err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	arg, err := arguments.FromPointer(operand, override, buffer)
	if err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	e.inputs[index] = arg
	return nil
}

// SetInputFromMemory binds the input index to the range [offset, offset+length) of pool.
//
// Pools that don't allow sub-ranges (e.g. memory.HardwareBuffer) must be bound whole, with offset and
// length 0.
func (e *Execution) SetInputFromMemory(index int, override *shapes.OperandType, pool memory.Pool, offset, length int) error {
	const name = "SetInputFromMemory"
	if err := e.checkUnstarted(name); err != nil {
		return err
	}
	if err := checkIndex(name, index, len(e.inputs)); err != nil {
		return err
	}
	operand := e.compilation.model.InputOperand(index).Type
	if err := arguments.CheckOverride(operand, override, false); err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	arg, err := e.bindPool(operand, override, pool, offset, length)
	if err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	e.inputs[index] = arg
	return nil
}

// SetOutput binds the output index to buffer. A nil buffer marks an optional output as omitted.
//
// The output type may be left not fully specified: the device reports the actual dimensions, see
// OutputOperandDimensions.
func (e *Execution) SetOutput(index int, override *shapes.OperandType, buffer []byte) error {
	const name = "SetOutput"
	if err := e.checkUnstarted(name); err != nil {
		return err
	}
	if err := checkIndex(name, index, len(e.outputs)); err != nil {
		return err
	}
	operand := e.compilation.model.OutputOperand(index).Type
	if err := arguments.CheckOverride(operand, override, true); err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	arg, err := arguments.FromPointer(operand, override, buffer)
	if err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	e.outputs[index] = arg
	return nil
}

// SetOutputFromMemory binds the output index to the range [offset, offset+length) of pool.
func (e *Execution) SetOutputFromMemory(index int, override *shapes.OperandType, pool memory.Pool, offset, length int) error {
	const name = "SetOutputFromMemory"
	if err := e.checkUnstarted(name); err != nil {
		return err
	}
	if err := checkIndex(name, index, len(e.outputs)); err != nil {
		return err
	}
	operand := e.compilation.model.OutputOperand(index).Type
	if err := arguments.CheckOverride(operand, override, true); err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	arg, err := e.bindPool(operand, override, pool, offset, length)
	if err != nil {
		return errors.WithMessagef(err, "%s(%d)", name, index)
	}
	e.outputs[index] = arg
	return nil
}

// bindPool validates the pool range and returns the argument for it. The pool is only registered in
// the table of the execution if the binding is valid.
func (e *Execution) bindPool(operand shapes.OperandType, override *shapes.OperandType, pool memory.Pool, offset, length int) (arguments.Argument, error) {
	if pool == nil {
		return arguments.Argument{}, errors.Wrap(status.ErrBadData, "nil memory pool")
	}
	if !pool.AllowsSubRange() {
		if offset != 0 || length != 0 {
			return arguments.Argument{}, errors.Wrapf(status.ErrBadData,
				"pool %q must be bound whole, with offset and length 0, got offset=%d, length=%d",
				pool.Name(), offset, length)
		}
	} else if !pool.ValidateRange(offset, length) {
		return arguments.Argument{}, errors.Wrapf(status.ErrBadData,
			"range offset=%d, length=%d out of pool %q of %d bytes", offset, length, pool.Name(), pool.Size())
	}
	arg, err := arguments.FromPool(operand, override, 0, offset, length)
	if err != nil {
		return arguments.Argument{}, err
	}
	if length == 0 && pool.AllowsSubRange() {
		// An empty range is only valid while the dimensions are unknown.
		if err := arguments.CheckLength(operand, arg.Dimensions, 0); err != nil {
			return arguments.Argument{}, errors.WithMessagef(err, "zero length range of pool %q", pool.Name())
		}
	}
	location := arg.Location.(arguments.PoolRange)
	location.Pool = e.pools.Add(pool)
	arg.Location = location
	return arg, nil
}

// SetMeasureTiming requests the time spent on the device to be measured, see Duration.
//
// It is only allowed for compilations explicitly restricted to exactly one device.
func (e *Execution) SetMeasureTiming(measure bool) error {
	if len(e.compilation.explicitDevices) != 1 {
		return errors.Wrapf(status.ErrBadData,
			"SetMeasureTiming on %s: timing is only measured for compilations for exactly one explicit device", e)
	}
	if err := e.checkUnstarted("SetMeasureTiming"); err != nil {
		return err
	}
	e.measureTiming = measure
	return nil
}

// Duration returns the measured duration selected by code.
//
// If timing was not requested with SetMeasureTiming, it returns status.NotMeasured and
// status.ErrInvalidState. The duration may be status.NotMeasured if the device didn't report it.
func (e *Execution) Duration(code status.DurationCode) (time.Duration, error) {
	if err := e.checkFinished("Duration"); err != nil {
		return status.NotMeasured, err
	}
	if !e.measureTiming {
		return status.NotMeasured, errors.Wrapf(status.ErrInvalidState, "Duration called on %s without SetMeasureTiming", e)
	}
	return e.timing.Select(code)
}

// OutputOperandDimensions returns the dimensions of the output index, as reported by the devices.
//
// If the output buffer was too small, the dimensions are returned together with an error matching
// status.ErrOutputInsufficientSize, so the caller can allocate a larger one.
func (e *Execution) OutputOperandDimensions(index int) ([]int, error) {
	const name = "OutputOperandDimensions"
	if err := e.checkFinished(name); err != nil {
		return nil, err
	}
	if err := checkIndex(name, index, len(e.outputs)); err != nil {
		return nil, err
	}
	output := &e.outputs[index]
	if len(output.Dimensions) == 0 {
		return nil, errors.Wrapf(status.ErrBadData, "%s(%d): can't query dimensions of a scalar", name, index)
	}
	dims := slices.Clone(output.Dimensions)
	if output.Insufficient {
		return dims, errors.Wrapf(status.ErrOutputInsufficientSize, "%s(%d): output buffer too small for %v", name, index, dims)
	}
	return dims, nil
}

// OutputOperandRank returns the rank of the output index, as reported by the devices.
// As with OutputOperandDimensions, an error matching status.ErrOutputInsufficientSize is returned
// together with the rank if the output buffer was too small.
func (e *Execution) OutputOperandRank(index int) (int, error) {
	const name = "OutputOperandRank"
	if err := e.checkFinished(name); err != nil {
		return 0, err
	}
	if err := checkIndex(name, index, len(e.outputs)); err != nil {
		return 0, err
	}
	output := &e.outputs[index]
	rank := len(output.Dimensions)
	if output.Insufficient {
		return rank, errors.Wrapf(status.ErrOutputInsufficientSize, "%s(%d): output buffer too small", name, index)
	}
	return rank, nil
}

// Compute runs the execution and waits for it to finish. It returns nil on success, an error matching
// one of the status sentinels if the execution couldn't start, or the status.Error of the execution.
func (e *Execution) Compute() error {
	completion, err := e.start("Compute", nil, true)
	if err != nil {
		return err
	}
	return completion.Err()
}

// ComputeAsync starts the execution in the worker pool of the compilation and returns its Completion.
func (e *Execution) ComputeAsync() (*Completion, error) {
	return e.start("ComputeAsync", nil, false)
}

// ComputeBurst runs the execution like Compute, reusing the bursts of the plan steps.
// The bursts are held by the execution until it finishes: using them concurrently fails with
// status.ErrInvalidState.
func (e *Execution) ComputeBurst(bursts *plan.Bursts) error {
	if bursts == nil {
		return errors.Wrap(status.ErrBadData, "ComputeBurst with nil bursts")
	}
	completion, err := e.start("ComputeBurst", bursts, true)
	if err != nil {
		return err
	}
	return completion.Err()
}

// start checks the execution can start, moves it to StateStarted and runs the walk over the plan,
// inline if synchronous, or in the worker pool otherwise.
func (e *Execution) start(name string, bursts *plan.Bursts, synchronous bool) (*Completion, error) {
	if err := e.checkUnstarted(name); err != nil {
		return nil, err
	}
	for ii := range e.inputs {
		if e.inputs[ii].Kind() == arguments.KindUnspecified {
			return nil, errors.Wrapf(status.ErrBadData, "%s on %s: input #%d not bound", name, e, ii)
		}
	}
	for ii := range e.outputs {
		if e.outputs[ii].Kind() == arguments.KindUnspecified {
			return nil, errors.Wrapf(status.ErrBadData, "%s on %s: output #%d not bound", name, e, ii)
		}
	}
	p := e.compilation.plan
	controller, err := p.MakeController(bursts)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s on %s", name, e)
	}
	if bursts != nil {
		if err := bursts.Acquire(); err != nil {
			return nil, err
		}
	}
	if !e.state.CompareAndSwap(int32(StateUnstarted), int32(StateStarted)) {
		if bursts != nil {
			bursts.Release()
		}
		return nil, errors.Wrapf(status.ErrInvalidState, "%s called on %s", name, e)
	}
	e.bursts = bursts

	allowFallback := e.compilation.allowsFallback()
	completion := newCompletion(e.finish)
	walk := func() { e.walk(controller, allowFallback, completion) }
	switch {
	case synchronous:
		klog.V(1).Infof("%s: %s (synchronous)", e, name)
		walk()
	case e.compilation.config.SyncExecRuntime:
		klog.V(1).Infof("%s: %s (asynchronous, inline)", e, name)
		walk()
	default:
		klog.V(1).Infof("%s: %s (asynchronous)", e, name)
		e.compilation.asyncPool().Submit(walk)
	}
	return completion, nil
}

// finish is called exactly once, with the result of the walk, before the result is released to waiters.
// It reconciles the output shapes and moves the execution to StateFinished.
func (e *Execution) finish(result Result) status.Status {
	defer e.state.Store(int32(StateFinished))
	if e.bursts != nil {
		e.bursts.Release()
	}
	if e.measureTiming {
		e.timing = result.Timing
	}
	if err := e.updateOutputShapes(result.OutputShapes); err != nil {
		klog.Errorf("%s: %+v", e, err)
		return status.GeneralFailure
	}
	return status.None
}

// updateOutputShapes refines the dimensions of the outputs with the shapes reported for them.
// Empty outputShapes leave the outputs unchanged.
func (e *Execution) updateOutputShapes(outputShapes []status.OutputShape) error {
	if len(outputShapes) == 0 {
		return nil
	}
	if len(outputShapes) != len(e.outputs) {
		return errors.Errorf("got %d output shapes for %d outputs", len(outputShapes), len(e.outputs))
	}
	for ii, shape := range outputShapes {
		if !shapes.IsUpdatable(e.outputs[ii].Dimensions, shape.Dimensions) {
			return errors.Errorf("output #%d dimensions %v can't be updated to %v",
				ii, e.outputs[ii].Dimensions, shape.Dimensions)
		}
	}
	for ii, shape := range outputShapes {
		e.outputs[ii].Dimensions = slices.Clone(shape.Dimensions)
		e.outputs[ii].Insufficient = !shape.IsSufficient
	}
	return nil
}

// initialOutputShapes returns the shapes of the outputs as bound, all sufficient.
func (e *Execution) initialOutputShapes() []status.OutputShape {
	outputShapes := make([]status.OutputShape, len(e.outputs))
	for ii := range e.outputs {
		outputShapes[ii] = status.OutputShape{Dimensions: slices.Clone(e.outputs[ii].Dimensions), IsSufficient: true}
	}
	return outputShapes
}
