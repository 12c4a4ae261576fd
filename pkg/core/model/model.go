// Package model describes the computation graphs handed to devices: the operands, the operations
// connecting them, and which operands are the model inputs and outputs.
//
// Building and validating models beyond structural checks is the job of the callers: the runtime
// only routes them to devices.
package model

import (
	"fmt"
	"slices"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Operand is one value of the graph.
type Operand struct {
	Type shapes.OperandType

	// Value holds the data of constant operands. Nil for operands computed at execution time.
	Value []byte
}

// Operation of the graph. OpType is the key used by devices to find their implementation.
type Operation struct {
	OpType  string
	Inputs  []int
	Outputs []int
}

// Model is a computation graph. Operations are listed in execution order.
type Model struct {
	Name          string
	Operands      []Operand
	Operations    []Operation
	InputIndexes  []int
	OutputIndexes []int
}

// NumInputs returns the number of model inputs.
func (m *Model) NumInputs() int { return len(m.InputIndexes) }

// NumOutputs returns the number of model outputs.
func (m *Model) NumOutputs() int { return len(m.OutputIndexes) }

// InputOperand returns the operand of the i-th model input.
func (m *Model) InputOperand(i int) Operand {
	return m.Operands[m.InputIndexes[i]]
}

// OutputOperand returns the operand of the i-th model output.
func (m *Model) OutputOperand(i int) Operand {
	return m.Operands[m.OutputIndexes[i]]
}

// OpTypes returns the distinct operation types used by the model, in order of first use.
func (m *Model) OpTypes() []string {
	var types []string
	for _, op := range m.Operations {
		if !slices.Contains(types, op.OpType) {
			types = append(types, op.OpType)
		}
	}
	return types
}

// Validate checks that all operand references are in range and that operation inputs are either
// model inputs, constants or produced by a previous operation.
func (m *Model) Validate() error {
	numOperands := len(m.Operands)
	for ii, operand := range m.Operands {
		if err := operand.Type.Validate(true); err != nil {
			return errors.WithMessagef(err, "model %q operand #%d", m.Name, ii)
		}
	}
	available := make([]bool, numOperands)
	for ii, idx := range m.InputIndexes {
		if idx < 0 || idx >= numOperands {
			return errors.Errorf("model %q input #%d refers to operand %d, model has %d operands",
				m.Name, ii, idx, numOperands)
		}
		available[idx] = true
	}
	for ii, operand := range m.Operands {
		if operand.Value != nil {
			available[ii] = true
		}
	}
	for opIdx, op := range m.Operations {
		for _, idx := range op.Inputs {
			if idx < 0 || idx >= numOperands {
				return errors.Errorf("model %q operation #%d (%s) refers to operand %d, model has %d operands",
					m.Name, opIdx, op.OpType, idx, numOperands)
			}
			if !available[idx] {
				return errors.Errorf("model %q operation #%d (%s) uses operand %d before it is computed",
					m.Name, opIdx, op.OpType, idx)
			}
		}
		for _, idx := range op.Outputs {
			if idx < 0 || idx >= numOperands {
				return errors.Errorf("model %q operation #%d (%s) refers to operand %d, model has %d operands",
					m.Name, opIdx, op.OpType, idx, numOperands)
			}
			available[idx] = true
		}
	}
	for ii, idx := range m.OutputIndexes {
		if idx < 0 || idx >= numOperands {
			return errors.Errorf("model %q output #%d refers to operand %d, model has %d operands",
				m.Name, ii, idx, numOperands)
		}
		if !available[idx] {
			return errors.Errorf("model %q output #%d (operand %d) is never computed", m.Name, ii, idx)
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	return fmt.Sprintf("Model(%q, %d operands, %d operations, %d inputs, %d outputs)",
		m.Name, len(m.Operands), len(m.Operations), len(m.InputIndexes), len(m.OutputIndexes))
}

// Builder incrementally builds a Model.
type Builder struct {
	model *Model
}

// NewBuilder starts a new model with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{model: &Model{Name: name}}
}

// Input adds a model input operand and returns its operand index.
func (b *Builder) Input(t shapes.OperandType) int {
	idx := b.operand(Operand{Type: t})
	b.model.InputIndexes = append(b.model.InputIndexes, idx)
	return idx
}

// Constant adds a constant operand and returns its operand index.
func (b *Builder) Constant(t shapes.OperandType, value []byte) int {
	return b.operand(Operand{Type: t, Value: value})
}

// Op adds an operation producing a single new operand of type output, and returns its index.
func (b *Builder) Op(opType string, output shapes.OperandType, inputs ...int) int {
	idx := b.operand(Operand{Type: output})
	b.model.Operations = append(b.model.Operations, Operation{
		OpType:  opType,
		Inputs:  slices.Clone(inputs),
		Outputs: []int{idx},
	})
	return idx
}

// Output marks the operand as a model output.
func (b *Builder) Output(idx int) *Builder {
	b.model.OutputIndexes = append(b.model.OutputIndexes, idx)
	return b
}

// Done validates and returns the model.
func (b *Builder) Done() (*Model, error) {
	if err := b.model.Validate(); err != nil {
		return nil, err
	}
	return b.model, nil
}

func (b *Builder) operand(operand Operand) int {
	b.model.Operands = append(b.model.Operands, operand)
	return len(b.model.Operands) - 1
}
