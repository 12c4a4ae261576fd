package main

import (
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/buffers"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/plan"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
)

const featureSize = 3

// scaleShiftRelu returns the demo model: relu(x*scale + shift), for x of shape [batch, featureSize].
// Its output is declared with an unspecified batch dimension, refined by the devices.
func scaleShiftRelu(batch int) *model.Model {
	b := model.NewBuilder("scale_shift_relu")
	x := b.Input(inputType(batch))
	shifted := addScaleShift(b, x, batch)
	return must.M1(b.Output(b.Op("RELU", shapes.Make(dtypes.Float32, 0, featureSize), shifted)).Done())
}

func inputType(batch int) shapes.OperandType {
	return shapes.Make(dtypes.Float32, batch, featureSize)
}

func addScaleShift(b *model.Builder, x, batch int) int {
	t := inputType(batch)
	scale := make([]float32, batch*featureSize)
	shift := make([]float32, batch*featureSize)
	for ii := range scale {
		scale[ii] = float32(ii%featureSize + 1)
		shift[ii] = -1
	}
	scaled := b.Op("MUL", t, x, b.Constant(t, buffers.FromFlat(scale)))
	return b.Op("ADD", t, scaled, b.Constant(t, buffers.FromFlat(shift)))
}

// twoSteps returns the steps of the demo model split in two: x*scale + shift on first, written to a
// temporary, and relu on second.
func twoSteps(batch int, first, second backends.Device) ([]*plan.Step, []shapes.OperandType, error) {
	t := inputType(batch)

	b := model.NewBuilder("scale_shift")
	x := b.Input(t)
	scaleShift, err := b.Output(addScaleShift(b, x, batch)).Done()
	if err != nil {
		return nil, nil, err
	}
	b = model.NewBuilder("relu")
	x = b.Input(t)
	relu, err := b.Output(b.Op("RELU", shapes.Make(dtypes.Float32, 0, featureSize), x)).Done()
	if err != nil {
		return nil, nil, err
	}

	firstStep, err := plan.NewStep(scaleShift, first, backends.PreferSustainedSpeed,
		[]plan.Source{{Kind: plan.FromModelInput, Index: 0}},
		[]plan.Sink{{Kind: plan.ToTemporary, Index: 0}})
	if err != nil {
		return nil, nil, err
	}
	secondStep, err := plan.NewStep(relu, second, backends.PreferSustainedSpeed,
		[]plan.Source{{Kind: plan.FromTemporary, Index: 0}},
		[]plan.Sink{{Kind: plan.ToModelOutput, Index: 0}})
	if err != nil {
		return nil, nil, err
	}
	return []*plan.Step{firstStep, secondStep}, []shapes.OperandType{t}, nil
}
