package arguments

import (
	"testing"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroArgumentIsUnspecified(t *testing.T) {
	var arg Argument
	assert.Equal(t, KindUnspecified, arg.Kind())
	assert.Equal(t, 0, arg.Length())
}

func TestCheckOverride(t *testing.T) {
	operand := shapes.Make(dtypes.Float32, 0, 3)
	require.NoError(t, CheckOverride(operand, nil, true))
	require.ErrorIs(t, CheckOverride(operand, nil, false), status.ErrBadData)

	override := shapes.Make(dtypes.Float32, 2, 3)
	require.NoError(t, CheckOverride(operand, &override, false))

	wrongRank := shapes.Make(dtypes.Float32, 2, 3, 1)
	require.ErrorIs(t, CheckOverride(operand, &wrongRank, true), status.ErrBadData)

	changesFixed := shapes.Make(dtypes.Float32, 2, 4)
	require.ErrorIs(t, CheckOverride(operand, &changesFixed, true), status.ErrBadData)

	wrongDType := shapes.Make(dtypes.Int32, 2, 3)
	require.ErrorIs(t, CheckOverride(operand, &wrongDType, true), status.ErrBadData)

	partial := shapes.Make(dtypes.Float32, 0, 3)
	require.ErrorIs(t, CheckOverride(operand, &partial, false), status.ErrBadData)
	require.NoError(t, CheckOverride(operand, &partial, true))
}

func TestFromPointer(t *testing.T) {
	operand := shapes.Make(dtypes.Float32, 2, 3)
	arg, err := FromPointer(operand, nil, make([]byte, 24))
	require.NoError(t, err)
	assert.Equal(t, KindPointer, arg.Kind())
	assert.Equal(t, 24, arg.Length())
	assert.Equal(t, []int{2, 3}, arg.Dimensions)

	_, err = FromPointer(operand, nil, make([]byte, 20))
	require.ErrorIs(t, err, status.ErrBadData)

	arg, err = FromPointer(operand, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindNoValue, arg.Kind())

	// Unspecified dimensions: any length is accepted, the device decides.
	arg, err = FromPointer(shapes.Make(dtypes.Float32, 0, 3), nil, make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, arg.Dimensions)
}

func TestFromPool(t *testing.T) {
	operand := shapes.Make(dtypes.Int32, 4)
	arg, err := FromPool(operand, nil, 2, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, PoolRange{Pool: 2, Offset: 16, Length: 16}, arg.Location)
	assert.Equal(t, "MEMORY(pool=2, off=16, len=16, dims=[4])", arg.String())

	_, err = FromPool(operand, nil, 0, 0, 12)
	require.ErrorIs(t, err, status.ErrBadData)
	_, err = FromPool(operand, nil, 0, -1, 16)
	require.ErrorIs(t, err, status.ErrBadData)

	// Whole-pool binding with zero length.
	arg, err = FromPool(operand, nil, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, arg.Length())

	tmp := FromTemporary(operand, 1, 64)
	assert.Equal(t, PoolRange{Pool: 1, Offset: 64, Length: 16}, tmp.Location)
}

func TestClone(t *testing.T) {
	arg := Argument{Location: NoValue{}, Dimensions: []int{1, 2}}
	clone := arg.Clone()
	clone.Dimensions[0] = 7
	assert.Equal(t, 1, arg.Dimensions[0])
}
