package plan

import (
	"testing"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/reference"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vec = shapes.Make(dtypes.Float32, 3)

// unaryModel builds a model applying opType to one input.
func unaryModel(name, opType string) *model.Model {
	b := model.NewBuilder(name)
	x := b.Input(vec)
	return must.M1(b.Output(b.Op(opType, vec, x)).Done())
}

// twoSteps returns the plan for relu(-x), split in one step per operation through one temporary.
func twoSteps(t *testing.T, first, second backends.Device) *Plan {
	whole := func() *model.Model {
		b := model.NewBuilder("neg_relu")
		x := b.Input(vec)
		return must.M1(b.Output(b.Op("RELU", vec, b.Op("NEG", vec, x))).Done())
	}()
	negStep := must.M1(NewStep(unaryModel("neg", "NEG"), first, backends.PreferSustainedSpeed,
		[]Source{{Kind: FromModelInput, Index: 0}}, []Sink{{Kind: ToTemporary, Index: 0}}))
	reluStep := must.M1(NewStep(unaryModel("relu", "RELU"), second, backends.PreferSustainedSpeed,
		[]Source{{Kind: FromTemporary, Index: 0}}, []Sink{{Kind: ToModelOutput, Index: 0}}))
	p, err := NewCompound(whole, []*Step{negStep, reluStep}, []shapes.OperandType{vec})
	require.NoError(t, err)
	return p
}

func TestSimple(t *testing.T) {
	device := reference.NewDevice()
	p, err := Prepare(unaryModel("neg", "NEG"), device, backends.PreferLowPower)
	require.NoError(t, err)
	assert.True(t, p.IsTrivial())
	assert.True(t, p.IsTrivialOn(device))
	assert.False(t, p.IsTrivialOn(reference.NewDevice()), "devices are compared by identity")

	c := must.M1(p.MakeController(nil))
	assert.Nil(t, c.Temporaries())
	step := must.M1(p.Next(c))
	require.NotNil(t, step)
	assert.True(t, step.IsTrivial())
	assert.Same(t, step, must.M1(p.Fallback(c)))
	assert.Nil(t, must.M1(p.Next(c)))
	assert.Nil(t, must.M1(p.Next(c)))

	_, err = p.Fallback(c)
	require.Error(t, err)
}

func TestCompound(t *testing.T) {
	npu, cpu := reference.NewDevice(), reference.NewDevice()
	p := twoSteps(t, npu, cpu)
	assert.False(t, p.IsTrivial())
	assert.False(t, p.IsTrivialOn(npu))
	tempType, offset := p.Temporary(0)
	assert.True(t, tempType.Equal(vec))
	assert.Equal(t, 0, offset)

	c := must.M1(p.MakeController(nil))
	require.NotNil(t, c.Temporaries())
	assert.Equal(t, TemporaryAlignment, c.Temporaries().Size())

	_, err := p.Fallback(c)
	require.Error(t, err, "no step returned yet")

	first := must.M1(p.Next(c))
	assert.Equal(t, 0, first.Index)
	assert.Same(t, npu, first.Device)
	assert.Same(t, first, must.M1(p.Fallback(c)))
	second := must.M1(p.Next(c))
	assert.Equal(t, 1, second.Index)
	assert.Same(t, second, must.M1(p.Fallback(c)))
	assert.Nil(t, must.M1(p.Next(c)))

	other := twoSteps(t, npu, cpu)
	_, err = other.Next(c)
	require.Error(t, err)
}

func TestNewCompoundValidation(t *testing.T) {
	device := reference.NewDevice()
	whole := unaryModel("neg", "NEG")
	step := func(sources []Source, sinks []Sink) *Step {
		return must.M1(NewStep(unaryModel("neg", "NEG"), device, backends.PreferLowPower, sources, sinks))
	}

	_, err := NewCompound(whole, nil, nil)
	require.Error(t, err)

	// Temporary read before written.
	_, err = NewCompound(whole, []*Step{
		step([]Source{{Kind: FromTemporary, Index: 0}}, []Sink{{Kind: ToModelOutput, Index: 0}}),
	}, []shapes.OperandType{vec})
	require.ErrorContains(t, err, "not written by a previous step")

	// Model output never written.
	_, err = NewCompound(whole, []*Step{
		step([]Source{{Kind: FromModelInput, Index: 0}}, []Sink{{Kind: ToTemporary, Index: 0}}),
	}, []shapes.OperandType{vec})
	require.ErrorContains(t, err, "not written by any step")

	// Temporaries must be fully specified.
	_, err = NewCompound(whole, []*Step{
		step([]Source{{Kind: FromModelInput, Index: 0}}, []Sink{{Kind: ToModelOutput, Index: 0}}),
	}, []shapes.OperandType{shapes.Make(dtypes.Float32, 0)})
	require.Error(t, err)

	// Wrong number of sources.
	_, err = NewCompound(whole, []*Step{step(nil, []Sink{{Kind: ToModelOutput, Index: 0}})}, nil)
	require.Error(t, err)
}

func TestTemporaryOffsets(t *testing.T) {
	device := reference.NewDevice()
	whole := unaryModel("neg", "NEG")
	big := shapes.Make(dtypes.Float32, 20)
	steps := []*Step{
		must.M1(NewStep(unaryModel("a", "NEG"), device, backends.PreferLowPower,
			[]Source{{Kind: FromModelInput, Index: 0}}, []Sink{{Kind: ToTemporary, Index: 0}})),
		must.M1(NewStep(unaryModel("b", "NEG"), device, backends.PreferLowPower,
			[]Source{{Kind: FromTemporary, Index: 0}}, []Sink{{Kind: ToModelOutput, Index: 0}})),
	}
	p := must.M1(NewCompound(whole, steps, []shapes.OperandType{big, vec}))
	_, offset := p.Temporary(1)
	assert.Equal(t, 128, offset)
	c := must.M1(p.MakeController(nil))
	assert.Equal(t, 192, c.Temporaries().Size())
}

func TestBursts(t *testing.T) {
	p := twoSteps(t, reference.NewDevice(), reference.NewDevice())
	bursts := p.NewBursts()
	require.NoError(t, bursts.Acquire())
	require.ErrorIs(t, bursts.Acquire(), status.ErrInvalidState)
	bursts.Release()
	require.NoError(t, bursts.Acquire())
	bursts.Release()

	c := must.M1(p.MakeController(bursts))
	assert.Nil(t, c.Burst())
	_ = must.M1(p.Next(c))
	assert.Same(t, bursts.Step(0), c.Burst())
	assert.Same(t, p.Steps()[0].Program, c.Burst().Program())

	other := twoSteps(t, reference.NewDevice(), reference.NewDevice())
	_, err := other.MakeController(bursts)
	require.ErrorIs(t, err, status.ErrBadData)
}
