package reference

import (
	"testing"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/arguments"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/buffers"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/memory"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

// addRelu builds relu(x+y) for x, y of the given type, with the output declared as outputType.
func addRelu(t *testing.T, inputType, outputType shapes.OperandType) *model.Model {
	b := model.NewBuilder("add_relu")
	x := b.Input(inputType)
	y := b.Input(inputType)
	sum := b.Op("ADD", inputType, x, y)
	out := b.Op("RELU", outputType, sum)
	m, err := b.Output(out).Done()
	require.NoError(t, err)
	return m
}

func pointerArg(t *testing.T, operand shapes.OperandType, buf []byte) arguments.Argument {
	arg, err := arguments.FromPointer(operand, nil, buf)
	require.NoError(t, err)
	return arg
}

func TestRegistered(t *testing.T) {
	devices, err := backends.NewWithConfig("reference:cpu0")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "cpu0", devices[0].Name())
	assert.Equal(t, backends.DeviceTypeCPU, devices[0].Type())
	assert.Contains(t, OpTypes(), "ADD")
}

func TestPrepareMissingKernel(t *testing.T) {
	vec := shapes.Make(dtypes.Float32, 2)
	b := model.NewBuilder("unknown")
	x := b.Input(vec)
	m := must.M1(b.Output(b.Op("NOT_AN_OP", vec, x)).Done())
	_, err := NewDevice().Prepare(m, backends.PreferFastSingleAnswer)
	require.ErrorContains(t, err, "NOT_AN_OP")
}

func TestExecute(t *testing.T) {
	mat := shapes.Make(dtypes.Float32, 2, 3)
	m := addRelu(t, mat, mat)
	program := must.M1(NewDevice().Prepare(m, backends.PreferFastSingleAnswer))

	out := buffers.Alloc[float32](6)
	request := &backends.Request{
		Inputs: []arguments.Argument{
			pointerArg(t, mat, buffers.FromFlat([]float32{1, -2, 3, -4, 5, -6})),
			pointerArg(t, mat, buffers.FromFlat([]float32{1, 1, 1, 1, 1, 1})),
		},
		Outputs:       []arguments.Argument{pointerArg(t, mat, out)},
		Pools:         memory.NewTable(),
		MeasureTiming: true,
	}
	result, outputShapes, timing := program.Execute(request)
	require.Equal(t, status.None, result)
	require.Len(t, outputShapes, 1)
	assert.Equal(t, status.OutputShape{Dimensions: []int{2, 3}, IsSufficient: true}, outputShapes[0])
	assert.Equal(t, []float32{2, 0, 4, 0, 6, 0}, must.M1(buffers.ToFlat[float32](out)))
	assert.NotEqual(t, status.NotMeasured, timing.OnDevice)
	assert.GreaterOrEqual(t, timing.InDriver, timing.OnDevice)

	// Without measurement the timing is not reported.
	request.MeasureTiming = false
	_, _, timing = program.Execute(request)
	assert.Equal(t, status.NoTiming, timing)
}

func TestExecuteFromPool(t *testing.T) {
	vec := shapes.Make(dtypes.Int32, 4)
	m := addRelu(t, vec, vec)
	program := must.M1(NewDevice().Prepare(m, backends.PreferSustainedSpeed))

	pool := memory.NewHostPool(48)
	view := must.M1(buffers.View[int32](pool.Bytes()))
	copy(view, []int32{1, 2, 3, 4, 10, 20, 30, 40})
	table := memory.NewTable()
	poolIdx := table.Add(pool)
	request := &backends.Request{
		Inputs: []arguments.Argument{
			must.M1(arguments.FromPool(vec, nil, poolIdx, 0, 16)),
			must.M1(arguments.FromPool(vec, nil, poolIdx, 16, 16)),
		},
		Outputs: []arguments.Argument{must.M1(arguments.FromPool(vec, nil, poolIdx, 32, 16))},
		Pools:   table,
	}
	result, _, _ := program.Execute(request)
	require.Equal(t, status.None, result)
	assert.Equal(t, []int32{11, 22, 33, 44}, view[8:])
}

func TestExecuteInsufficientOutput(t *testing.T) {
	mat := shapes.Make(dtypes.Float32, 2, 3)
	dynamic := shapes.Make(dtypes.Float32, 0, 3)
	m := addRelu(t, mat, dynamic)
	program := must.M1(NewDevice().Prepare(m, backends.PreferFastSingleAnswer))

	ones := buffers.FromFlat([]float32{1, 1, 1, 1, 1, 1})
	request := &backends.Request{
		Inputs:  []arguments.Argument{pointerArg(t, mat, ones), pointerArg(t, mat, ones)},
		Outputs: []arguments.Argument{pointerArg(t, dynamic, buffers.Alloc[float32](3))},
	}
	result, outputShapes, _ := program.Execute(request)
	require.Equal(t, status.OutputInsufficientSize, result)
	assert.Equal(t, status.OutputShape{Dimensions: []int{2, 3}, IsSufficient: false}, outputShapes[0])
}

func TestExecuteKernelPanic(t *testing.T) {
	RegisterKernel("TEST_PANIC", func([]Tensor, []shapes.OperandType) ([]Tensor, error) {
		exceptions.Panicf("boom")
		return nil, nil // unreachable: Panicf does not return
	})
	vec := shapes.Make(dtypes.Float32, 1)
	b := model.NewBuilder("panics")
	x := b.Input(vec)
	m := must.M1(b.Output(b.Op("TEST_PANIC", vec, x)).Done())
	program := must.M1(NewDevice().Prepare(m, backends.PreferFastSingleAnswer))
	request := &backends.Request{
		Inputs:  []arguments.Argument{pointerArg(t, vec, buffers.FromFlat([]float32{1}))},
		Outputs: []arguments.Argument{pointerArg(t, vec, buffers.Alloc[float32](1))},
	}
	result, outputShapes, _ := program.Execute(request)
	assert.Equal(t, status.GeneralFailure, result)
	assert.Nil(t, outputShapes)
}

func TestBurstConstants(t *testing.T) {
	vec := shapes.Make(dtypes.Float32, 2)
	b := model.NewBuilder("scale")
	x := b.Input(vec)
	c := b.Constant(vec, buffers.FromFlat([]float32{2, 3}))
	m := must.M1(b.Output(b.Op("MUL", vec, x, c)).Done())
	program := must.M1(NewDevice().Prepare(m, backends.PreferSustainedSpeed))
	burst := backends.NewBurst(program)

	for range 3 {
		out := buffers.Alloc[float32](2)
		request := &backends.Request{
			Inputs:  []arguments.Argument{pointerArg(t, vec, buffers.FromFlat([]float32{1, 2}))},
			Outputs: []arguments.Argument{pointerArg(t, vec, out)},
			Burst:   burst,
		}
		result, _, _ := program.Execute(request)
		require.Equal(t, status.None, result)
		assert.Equal(t, []float32{2, 6}, must.M1(buffers.ToFlat[float32](out)))
	}
	assert.Equal(t, int64(3), burst.NumExecutions())
}

func TestConcat(t *testing.T) {
	outputs, err := concatKernel([]Tensor{
		{Type: shapes.Make(dtypes.Int32, 1, 2), Data: buffers.FromFlat([]int32{1, 2})},
		{Type: shapes.Make(dtypes.Int32, 2, 2), Data: buffers.FromFlat([]int32{3, 4, 5, 6})},
	}, []shapes.OperandType{shapes.Make(dtypes.Int32, 0, 2)})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, outputs[0].Type.Dimensions)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, must.M1(buffers.ToFlat[int32](outputs[0].Data)))

	_, err = concatKernel([]Tensor{
		{Type: shapes.Make(dtypes.Int32, 1, 2)},
		{Type: shapes.Make(dtypes.Int32, 1, 3)},
	}, []shapes.OperandType{shapes.Make(dtypes.Int32, 0, 2)})
	require.Error(t, err)
}
