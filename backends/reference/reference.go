// Package reference implements the software device: a portable, not very fast, device that can
// run any model whose operations have a registered Kernel.
//
// It is the device executions fall back to when an accelerator fails, so it must not depend on
// anything but the host.
package reference

import (
	"slices"
	"time"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/arguments"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DeviceName to be used in NNEXEC_DEVICES to specify this device.
const DeviceName = "reference"

// Registers New as the constructor for the "reference" device.
func init() {
	backends.Register(DeviceName, New)
}

// New constructs a new reference Device. The config, if not empty, is used as the device name.
func New(config string) (backends.Device, error) {
	device := NewDevice()
	if config != "" {
		device.name = config
	}
	return device, nil
}

// NewDevice returns a reference Device named "reference".
func NewDevice() *Device {
	return &Device{name: DeviceName}
}

// Device implements backends.Device.
type Device struct {
	name string
}

var _ backends.Device = (*Device)(nil)

// Name implements backends.Device.
func (d *Device) Name() string { return d.name }

// Type implements backends.Device.
func (d *Device) Type() backends.DeviceType { return backends.DeviceTypeCPU }

// String implements fmt.Stringer.
func (d *Device) String() string { return d.name }

// Prepare implements backends.Device. It fails if any operation of m has no registered kernel.
func (d *Device) Prepare(m *model.Model, preference backends.Preference) (backends.PreparedProgram, error) {
	return d.PrepareFor(d, m, preference)
}

// PrepareFor prepares m like Prepare, but the returned program reports owner as its device.
// It is used by devices that delegate compute to the reference kernels.
func (d *Device) PrepareFor(owner backends.Device, m *model.Model, preference backends.Preference) (*Program, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "device %q", owner.Name())
	}
	program := &Program{device: owner, model: m, kernels: make([]Kernel, len(m.Operations))}
	for ii, op := range m.Operations {
		kernel := LookupKernel(op.OpType)
		if kernel == nil {
			return nil, errors.Errorf("device %q has no kernel for operation #%d %q of model %q",
				owner.Name(), ii, op.OpType, m.Name)
		}
		program.kernels[ii] = kernel
	}
	klog.V(1).Infof("device %q prepared %s (preference %s)", owner.Name(), m, preference)
	return program, nil
}

// Program is a model prepared for the reference kernels. It implements backends.PreparedProgram.
type Program struct {
	device  backends.Device
	model   *model.Model
	kernels []Kernel
}

var _ backends.PreparedProgram = (*Program)(nil)

// Device implements backends.PreparedProgram.
func (p *Program) Device() backends.Device { return p.device }

// Model returns the model the program was prepared from.
func (p *Program) Model() *model.Model { return p.model }

// Execute implements backends.PreparedProgram.
func (p *Program) Execute(request *backends.Request) (status.Status, []status.OutputShape, status.Timing) {
	start := time.Now()
	timing := status.NoTiming
	if request.Burst != nil {
		request.Burst.Executed()
	}
	if len(request.Inputs) != p.model.NumInputs() || len(request.Outputs) != p.model.NumOutputs() {
		klog.Errorf("device %q: request with %d inputs and %d outputs for %s",
			p.device.Name(), len(request.Inputs), len(request.Outputs), p.model)
		return status.InvalidArgument, nil, timing
	}

	values, err := p.bindInputs(request)
	if err != nil {
		klog.Errorf("device %q: %+v", p.device.Name(), err)
		return status.InvalidArgument, nil, timing
	}
	computeStart := time.Now()
	err = exceptions.TryCatch[error](func() { p.run(values) })
	if err != nil {
		klog.Errorf("device %q failed to run %s: %+v", p.device.Name(), p.model, err)
		return status.GeneralFailure, nil, timing
	}
	onDevice := time.Since(computeStart)

	result := status.None
	outputShapes := make([]status.OutputShape, len(request.Outputs))
	for ii, operandIdx := range p.model.OutputIndexes {
		value := values[operandIdx]
		outputShapes[ii] = status.OutputShape{Dimensions: slices.Clone(value.Type.Dimensions), IsSufficient: true}
		if request.Outputs[ii].Kind() == arguments.KindNoValue {
			continue
		}
		buf, err := request.OutputBytes(ii)
		if err != nil {
			klog.Errorf("device %q: %+v", p.device.Name(), err)
			return status.InvalidArgument, nil, timing
		}
		if len(buf) < len(value.Data) {
			outputShapes[ii].IsSufficient = false
			result = status.OutputInsufficientSize
			continue
		}
		copy(buf, value.Data)
	}
	if request.MeasureTiming {
		timing = status.Timing{OnDevice: onDevice, InDriver: time.Since(start)}
	}
	return result, outputShapes, timing
}

// bindInputs returns the values of all operands known before running: inputs and constants.
func (p *Program) bindInputs(request *backends.Request) ([]*Tensor, error) {
	values := make([]*Tensor, len(p.model.Operands))
	constants := p.constants(request.Burst)
	copy(values, constants)
	for ii, operandIdx := range p.model.InputIndexes {
		data, err := request.InputBytes(ii)
		if err != nil {
			return nil, err
		}
		operandType := p.model.Operands[operandIdx].Type.Clone()
		if dims := request.Inputs[ii].Dimensions; dims != nil {
			operandType.Dimensions = slices.Clone(dims)
		}
		if data == nil {
			// Omitted optional input.
			values[operandIdx] = &Tensor{Type: operandType}
			continue
		}
		if operandType.HasUnspecifiedDimensions() {
			return nil, errors.Errorf("input #%d has unspecified dimensions: %s", ii, operandType)
		}
		if len(data) != operandType.ByteSize() {
			return nil, errors.Errorf("input #%d of type %s needs %d bytes, got %d",
				ii, operandType, operandType.ByteSize(), len(data))
		}
		// Copied so kernels see aligned, private buffers.
		values[operandIdx] = &Tensor{Type: operandType, Data: slices.Clone(data)}
	}
	return values, nil
}

// constants returns the constant operands, indexed by operand. With a burst they are built only once.
func (p *Program) constants(burst *backends.Burst) []*Tensor {
	build := func() any {
		constants := make([]*Tensor, len(p.model.Operands))
		for ii, operand := range p.model.Operands {
			if operand.Value != nil {
				constants[ii] = &Tensor{Type: operand.Type.Clone(), Data: slices.Clone(operand.Value)}
			}
		}
		return constants
	}
	if burst == nil {
		return build().([]*Tensor)
	}
	return burst.Memo("reference.constants", build).([]*Tensor)
}

// run executes the operations in order. It panics on failure.
func (p *Program) run(values []*Tensor) {
	for opIdx, op := range p.model.Operations {
		inputs := make([]Tensor, len(op.Inputs))
		for ii, idx := range op.Inputs {
			inputs[ii] = *values[idx]
		}
		outputTypes := make([]shapes.OperandType, len(op.Outputs))
		for ii, idx := range op.Outputs {
			outputTypes[ii] = p.model.Operands[idx].Type
		}
		outputs, err := p.kernels[opIdx](inputs, outputTypes)
		if err != nil {
			panic(errors.WithMessagef(err, "operation #%d (%s)", opIdx, op.OpType))
		}
		if len(outputs) != len(op.Outputs) {
			exceptions.Panicf("operation #%d (%s) returned %d outputs, expected %d",
				opIdx, op.OpType, len(outputs), len(op.Outputs))
		}
		for ii, idx := range op.Outputs {
			declared := outputTypes[ii]
			got := outputs[ii].Type
			if got.DType != declared.DType || !shapes.IsUpdatable(declared.Dimensions, got.Dimensions) {
				exceptions.Panicf("operation #%d (%s) output #%d has type %s, incompatible with declared %s",
					opIdx, op.OpType, ii, got, declared)
			}
			values[idx] = &outputs[ii]
		}
	}
}
