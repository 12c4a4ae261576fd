package buffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFlatRoundTrip(t *testing.T) {
	buf := FromFlat([]float32{1, 2, 3})
	require.Len(t, buf, 12)
	got, err := ToFlat[float32](buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got)

	_, err = ToFlat[int32](buf[:7])
	require.Error(t, err)

	empty, err := ToFlat[int32](FromFlat([]int32{}))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestView(t *testing.T) {
	buf := Alloc[int32](4)
	view, err := View[int32](buf)
	require.NoError(t, err)
	view[2] = 7
	flat, err := ToFlat[int32](buf)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 0, 7, 0}, flat)
}

func TestFloat16(t *testing.T) {
	halves := Float16FromFloat32([]float32{0.5, -2})
	assert.Equal(t, float16.Fromfloat32(0.5), halves[0])
	buf := FromFlat(halves)
	require.Len(t, buf, 4)
	back, err := ToFlat[float16.Float16](buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -2}, Float32FromFloat16(back))
}
