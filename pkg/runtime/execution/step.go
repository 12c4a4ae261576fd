package execution

import (
	"fmt"
	"slices"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/arguments"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/memory"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/plan"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// stepExecutor runs one model (the whole execution model, or the sub-model of a plan step) on one
// device, with its arguments mapped from the execution arguments.
type stepExecutor struct {
	execution *Execution
	model     *model.Model
	device    backends.Device
	program   backends.PreparedProgram

	// step is nil when running the whole model with the execution arguments unchanged.
	step *plan.Step

	inputs, outputs []arguments.Argument
	pools           *memory.Table
}

// newTrivialExecutor returns an executor of the whole model, sharing the execution arguments.
// program may be nil if the executor is only used for a software fallback.
func (e *Execution) newTrivialExecutor(device backends.Device, program backends.PreparedProgram) *stepExecutor {
	s := &stepExecutor{
		execution: e,
		model:     e.compilation.model,
		device:    device,
		program:   program,
	}
	s.mapTrivially()
	return s
}

// newStepExecutor returns the executor of step. outputShapes are the execution output shapes known
// so far, used by steps reading model outputs written by previous steps.
func (e *Execution) newStepExecutor(step *plan.Step, controller *plan.Controller,
	outputShapes []status.OutputShape) (*stepExecutor, error) {
	if step.IsTrivial() {
		return e.newTrivialExecutor(step.Device, step.Program), nil
	}
	s := &stepExecutor{
		execution: e,
		model:     step.Model,
		device:    step.Device,
		program:   step.Program,
		step:      step,
		inputs:    make([]arguments.Argument, len(step.Inputs)),
		outputs:   make([]arguments.Argument, len(step.Outputs)),
		pools:     memory.NewTable(),
	}
	if err := s.mapStep(controller, outputShapes); err != nil {
		return nil, errors.WithMessagef(err, "mapping arguments of %s", step)
	}
	return s, nil
}

// String implements fmt.Stringer.
func (s *stepExecutor) String() string {
	if s.step == nil {
		return fmt.Sprintf("model %q on %q", s.model.Name, s.device.Name())
	}
	return fmt.Sprintf("step #%d (%q on %q)", s.step.Index, s.model.Name, s.device.Name())
}

// mapTrivially uses the execution arguments and pools as they are.
func (s *stepExecutor) mapTrivially() {
	s.inputs = s.execution.inputs
	s.outputs = s.execution.outputs
	s.pools = s.execution.pools
}

// mapOne returns a copy of the execution argument arg, with its pool, if any, registered in the
// executor table.
func (s *stepExecutor) mapOne(arg arguments.Argument) arguments.Argument {
	arg = arg.Clone()
	if location, ok := arg.Location.(arguments.PoolRange); ok {
		location.Pool = s.pools.Add(s.execution.pools.Get(location.Pool))
		arg.Location = location
	}
	return arg
}

// setFromTemporary returns the argument for the temporary index of the walk.
func (s *stepExecutor) setFromTemporary(controller *plan.Controller, index int) arguments.Argument {
	operand, offset := controller.Plan().Temporary(index)
	return arguments.FromTemporary(operand, s.pools.Add(controller.Temporaries()), offset)
}

// mapStep maps the step sources and sinks to arguments of the executor.
func (s *stepExecutor) mapStep(controller *plan.Controller, outputShapes []status.OutputShape) error {
	e := s.execution
	for ii, source := range s.step.Inputs {
		switch source.Kind {
		case plan.FromModelInput:
			s.inputs[ii] = s.mapOne(e.inputs[source.Index])
		case plan.FromModelOutput:
			arg, err := s.mapModelOutputAsInput(source.Index, outputShapes[source.Index].Dimensions)
			if err != nil {
				return errors.WithMessagef(err, "input #%d", ii)
			}
			s.inputs[ii] = arg
		case plan.FromTemporary:
			s.inputs[ii] = s.setFromTemporary(controller, source.Index)
		}
	}
	for ii, sink := range s.step.Outputs {
		switch sink.Kind {
		case plan.ToModelOutput:
			s.outputs[ii] = s.mapOne(e.outputs[sink.Index])
		case plan.ToTemporary:
			s.outputs[ii] = s.setFromTemporary(controller, sink.Index)
		}
	}
	return nil
}

// mapModelOutputAsInput maps the execution output index, already written by a previous step with the
// given dimensions, as an input. The bound range is trimmed to the size of the value written.
func (s *stepExecutor) mapModelOutputAsInput(index int, dimensions []int) (arguments.Argument, error) {
	e := s.execution
	arg := s.mapOne(e.outputs[index])
	operand := e.compilation.model.OutputOperand(index).Type
	t := shapes.OperandType{DType: operand.DType, Tensor: operand.Tensor, Dimensions: slices.Clone(dimensions)}
	if t.HasUnspecifiedDimensions() {
		return arguments.Argument{}, errors.Wrapf(status.ErrBadData, "model output #%d read with unknown type %s", index, t)
	}
	size := t.ByteSize()
	switch location := arg.Location.(type) {
	case arguments.Pointer:
		if len(location.Buffer) < size {
			return arguments.Argument{}, errors.Wrapf(status.ErrBadData, "model output #%d buffer too small for %s", index, t)
		}
		location.Buffer = location.Buffer[:size]
		arg.Location = location
	case arguments.PoolRange:
		if int(location.Length) < size && (location.Length != 0 || location.Offset != 0) {
			return arguments.Argument{}, errors.Wrapf(status.ErrBadData, "model output #%d memory too small for %s", index, t)
		}
		if s.pools.Get(location.Pool).AllowsSubRange() {
			location.Length = uint32(size)
			arg.Location = location
		}
	default:
		return arguments.Argument{}, errors.Wrapf(status.ErrBadData, "model output #%d is read by a step but was not bound", index)
	}
	arg.Dimensions = t.Dimensions
	return arg, nil
}

// start runs the program on its device. burst is optional.
//
// Device failures are returned as errors carrying the status. status.OutputInsufficientSize is not a
// device failure: it is returned in the Result, together with the output shapes.
func (s *stepExecutor) start(burst *backends.Burst) (Result, error) {
	klog.V(1).Infof("%s: running %s", s.execution, s)
	arguments.Log("input", s.inputs)
	arguments.Log("output", s.outputs)
	request := &backends.Request{
		Inputs:        s.inputs,
		Outputs:       s.outputs,
		Pools:         s.pools,
		Burst:         burst,
		MeasureTiming: s.execution.measureTiming,
	}
	st, outputShapes, timing := s.program.Execute(request)
	result := Result{Status: st, OutputShapes: outputShapes, Timing: timing}
	if st != status.None && st != status.OutputInsufficientSize {
		return result, status.Errorf(st, "%s failed", s)
	}
	return result, nil
}

// isSoftware returns whether the executor runs on the software device.
func (s *stepExecutor) isSoftware() bool {
	return s.device == s.execution.compilation.software
}

// startOnSoftwareFallback prepares the model of the executor on the software device and runs it
// there, with the same arguments.
func (s *stepExecutor) startOnSoftwareFallback() (Result, error) {
	software := s.execution.compilation.software
	program, err := software.Prepare(s.model, backends.PreferFastSingleAnswer)
	if err != nil {
		return Result{Status: status.GeneralFailure, Timing: status.NoTiming},
			status.Errorf(status.GeneralFailure, "preparing model %q on software device %q: %v",
				s.model.Name, software.Name(), err)
	}
	fallback := *s
	fallback.device = software
	fallback.program = program
	return fallback.start(nil)
}

// updateOutputShapes merges the output shapes reported by the device (from) into the execution
// output shapes (to). Either all shapes are updated or none is.
func (s *stepExecutor) updateOutputShapes(from, to []status.OutputShape) error {
	if len(from) == 0 {
		return nil
	}
	if s.step == nil {
		if len(from) != len(to) {
			return errors.Errorf("%s reported %d output shapes, model has %d outputs", s, len(from), len(to))
		}
		for ii := range from {
			if !shapes.IsUpdatable(to[ii].Dimensions, from[ii].Dimensions) {
				return errors.Errorf("%s output #%d dimensions %v can't be updated to %v",
					s, ii, to[ii].Dimensions, from[ii].Dimensions)
			}
		}
		for ii := range from {
			to[ii] = status.OutputShape{Dimensions: slices.Clone(from[ii].Dimensions), IsSufficient: from[ii].IsSufficient}
		}
		return nil
	}

	if len(from) != len(s.step.Outputs) {
		return errors.Errorf("%s reported %d output shapes, step has %d outputs", s, len(from), len(s.step.Outputs))
	}
	for ii, sink := range s.step.Outputs {
		switch sink.Kind {
		case plan.ToModelOutput:
			if !shapes.IsUpdatable(to[sink.Index].Dimensions, from[ii].Dimensions) {
				return errors.Errorf("%s output #%d (model output #%d) dimensions %v can't be updated to %v",
					s, ii, sink.Index, to[sink.Index].Dimensions, from[ii].Dimensions)
			}
		case plan.ToTemporary:
			operand := s.outputs[ii].Dimensions
			if !from[ii].IsSufficient || !slices.Equal(operand, from[ii].Dimensions) {
				return errors.Errorf("%s output #%d (temporary #%d) of dimensions %v got dimensions %v",
					s, ii, sink.Index, operand, from[ii].Dimensions)
			}
		}
	}
	for ii, sink := range s.step.Outputs {
		if sink.Kind == plan.ToModelOutput {
			to[sink.Index] = status.OutputShape{Dimensions: slices.Clone(from[ii].Dimensions), IsSufficient: from[ii].IsSufficient}
		}
	}
	return nil
}
