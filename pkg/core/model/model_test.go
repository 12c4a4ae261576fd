package model

import (
	"testing"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	vec := shapes.Make(dtypes.Float32, 3)
	b := NewBuilder("axpy")
	x := b.Input(vec)
	y := b.Input(vec)
	sum := b.Op("ADD", vec, x, y)
	out := b.Op("RELU", vec, sum)
	m, err := b.Output(out).Done()
	require.NoError(t, err)

	assert.Equal(t, 2, m.NumInputs())
	assert.Equal(t, 1, m.NumOutputs())
	assert.Equal(t, []string{"ADD", "RELU"}, m.OpTypes())
	assert.True(t, m.OutputOperand(0).Type.Equal(vec))
}

func TestValidate(t *testing.T) {
	vec := shapes.Make(dtypes.Int32, 2)
	m := &Model{
		Name:          "bad",
		Operands:      []Operand{{Type: vec}, {Type: vec}},
		Operations:    []Operation{{OpType: "NEG", Inputs: []int{1}, Outputs: []int{0}}},
		InputIndexes:  []int{},
		OutputIndexes: []int{0},
	}
	require.ErrorContains(t, m.Validate(), "before it is computed")

	m.InputIndexes = []int{1}
	require.NoError(t, m.Validate())

	m.OutputIndexes = []int{5}
	require.Error(t, m.Validate())
}
