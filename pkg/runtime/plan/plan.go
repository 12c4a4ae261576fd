// Package plan holds the execution plan of a compiled model: the ordered list of device-targeted
// steps, and the Controller that walks them for one execution.
//
// A simple plan runs the whole model in one step on one device, with the execution arguments passed
// through unchanged. A compound plan runs sub-models in sequence: each step input comes from a
// model input, a model output written by a previous step or a temporary, and each step output goes
// to a model output or a temporary.
//
// Partitioning the model into steps is not done here: callers provide the steps.
package plan

import (
	"fmt"
	"strings"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/pkg/errors"
)

// SourceKind is where a step input comes from.
type SourceKind int

const (
	FromModelInput SourceKind = iota
	FromModelOutput
	FromTemporary
)

// Source of a step input. Index is the model input, model output or temporary index.
type Source struct {
	Kind  SourceKind
	Index int
}

// SinkKind is where a step output goes to.
type SinkKind int

const (
	ToModelOutput SinkKind = iota
	ToTemporary
)

// Sink of a step output. Index is the model output or temporary index.
type Sink struct {
	Kind  SinkKind
	Index int
}

// Step is one sub-model prepared for one device.
type Step struct {
	// Index of the step in the plan.
	Index int

	Model   *model.Model
	Device  backends.Device
	Program backends.PreparedProgram

	// Inputs has one Source per input of Model, Outputs one Sink per output. Both are nil for the
	// step of a simple plan.
	Inputs  []Source
	Outputs []Sink
}

// IsTrivial returns whether the step arguments are the execution arguments, unchanged.
func (s *Step) IsTrivial() bool {
	return s.Inputs == nil && s.Outputs == nil
}

// String implements fmt.Stringer.
func (s *Step) String() string {
	return fmt.Sprintf("step #%d (%q on %q)", s.Index, s.Model.Name, s.Device.Name())
}

// NewStep prepares sub on device and returns the Step for it. The Index is set by NewCompound.
func NewStep(sub *model.Model, device backends.Device, preference backends.Preference,
	inputs []Source, outputs []Sink) (*Step, error) {
	program, err := device.Prepare(sub, preference)
	if err != nil {
		return nil, err
	}
	return &Step{Model: sub, Device: device, Program: program, Inputs: inputs, Outputs: outputs}, nil
}

// TemporaryAlignment is the alignment in bytes of temporaries inside the temporary pool.
const TemporaryAlignment = 64

// Plan of execution of a model. It is immutable after creation, and can be shared by concurrent
// executions: each one walks it with its own Controller.
type Plan struct {
	model  *model.Model
	simple bool
	steps  []*Step

	temporaries []shapes.OperandType
	offsets     []int
	tempSize    int
}

// NewSimple returns a plan running the whole model m with program.
func NewSimple(m *model.Model, program backends.PreparedProgram) *Plan {
	step := &Step{Model: m, Device: program.Device(), Program: program}
	return &Plan{model: m, simple: true, steps: []*Step{step}}
}

// Prepare prepares m on device and returns a simple plan for it.
func Prepare(m *model.Model, device backends.Device, preference backends.Preference) (*Plan, error) {
	program, err := device.Prepare(m, preference)
	if err != nil {
		return nil, errors.WithMessagef(err, "preparing model %q", m.Name)
	}
	return NewSimple(m, program), nil
}

// NewCompound returns a plan running m as the given sequence of steps, exchanging intermediate results
// through temporaries of the given types.
//
// Temporaries must be fully specified. Every model output must be written by exactly one step, and
// every temporary or model output read by a step must have been written by a previous one.
func NewCompound(m *model.Model, steps []*Step, temporaries []shapes.OperandType) (*Plan, error) {
	if len(steps) == 0 {
		return nil, errors.Errorf("compound plan for model %q has no steps", m.Name)
	}
	p := &Plan{model: m, steps: steps, temporaries: temporaries, offsets: make([]int, len(temporaries))}
	for ii, t := range temporaries {
		if err := t.Validate(false); err != nil {
			return nil, errors.WithMessagef(err, "temporary #%d of model %q", ii, m.Name)
		}
		p.offsets[ii] = p.tempSize
		p.tempSize += alignUp(t.ByteSize(), TemporaryAlignment)
	}

	writtenOutputs := make([]bool, m.NumOutputs())
	writtenTemps := make([]bool, len(temporaries))
	for stepIdx, step := range steps {
		step.Index = stepIdx
		if step.Model == nil || step.Device == nil || step.Program == nil {
			return nil, errors.Errorf("step #%d of model %q is not prepared", stepIdx, m.Name)
		}
		if len(step.Inputs) != step.Model.NumInputs() || len(step.Outputs) != step.Model.NumOutputs() {
			return nil, errors.Errorf("%s has %d sources and %d sinks, but its model has %d inputs and %d outputs",
				step, len(step.Inputs), len(step.Outputs), step.Model.NumInputs(), step.Model.NumOutputs())
		}
		for ii, source := range step.Inputs {
			var sourceType shapes.OperandType
			switch source.Kind {
			case FromModelInput:
				if source.Index < 0 || source.Index >= m.NumInputs() {
					return nil, errors.Errorf("%s input #%d refers to model input %d out of range", step, ii, source.Index)
				}
				sourceType = m.InputOperand(source.Index).Type
			case FromModelOutput:
				if source.Index < 0 || source.Index >= m.NumOutputs() || !writtenOutputs[source.Index] {
					return nil, errors.Errorf("%s input #%d refers to model output %d not written by a previous step",
						step, ii, source.Index)
				}
				sourceType = m.OutputOperand(source.Index).Type
			case FromTemporary:
				if source.Index < 0 || source.Index >= len(temporaries) || !writtenTemps[source.Index] {
					return nil, errors.Errorf("%s input #%d refers to temporary %d not written by a previous step",
						step, ii, source.Index)
				}
				sourceType = temporaries[source.Index]
			default:
				return nil, errors.Errorf("%s input #%d has invalid source kind %d", step, ii, source.Kind)
			}
			if want := step.Model.InputOperand(ii).Type.DType; want != sourceType.DType {
				return nil, errors.Errorf("%s input #%d has dtype %s, but its source has type %s", step, ii, want, sourceType)
			}
		}
		for ii, sink := range step.Outputs {
			switch sink.Kind {
			case ToModelOutput:
				if sink.Index < 0 || sink.Index >= m.NumOutputs() || writtenOutputs[sink.Index] {
					return nil, errors.Errorf("%s output #%d writes model output %d out of range or already written",
						step, ii, sink.Index)
				}
				writtenOutputs[sink.Index] = true
			case ToTemporary:
				if sink.Index < 0 || sink.Index >= len(temporaries) || writtenTemps[sink.Index] {
					return nil, errors.Errorf("%s output #%d writes temporary %d out of range or already written",
						step, ii, sink.Index)
				}
				writtenTemps[sink.Index] = true
			default:
				return nil, errors.Errorf("%s output #%d has invalid sink kind %d", step, ii, sink.Kind)
			}
		}
	}
	for ii, written := range writtenOutputs {
		if !written {
			return nil, errors.Errorf("model %q output #%d is not written by any step", m.Name, ii)
		}
	}
	return p, nil
}

func alignUp(size, alignment int) int {
	return (size + alignment - 1) / alignment * alignment
}

// Model the plan executes.
func (p *Plan) Model() *model.Model { return p.model }

// Steps of the plan, in execution order.
func (p *Plan) Steps() []*Step { return p.steps }

// IsTrivial returns whether the plan is simple: one step running the whole model.
func (p *Plan) IsTrivial() bool { return p.simple }

// IsTrivialOn returns whether the plan is simple and runs on device.
func (p *Plan) IsTrivialOn(device backends.Device) bool {
	return p.simple && p.steps[0].Device == device
}

// Temporary returns the type and the offset in the temporary pool of temporary i.
func (p *Plan) Temporary(i int) (shapes.OperandType, int) {
	return p.temporaries[i], p.offsets[i]
}

// String implements fmt.Stringer.
func (p *Plan) String() string {
	if p.simple {
		return fmt.Sprintf("simple plan for %q on %q", p.model.Name, p.steps[0].Device.Name())
	}
	parts := make([]string, len(p.steps))
	for ii, step := range p.steps {
		parts[ii] = step.Device.Name()
	}
	return fmt.Sprintf("compound plan for %q: %s", p.model.Name, strings.Join(parts, " -> "))
}
