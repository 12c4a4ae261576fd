package status

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErr(t *testing.T) {
	require.NoError(t, None.Err())

	err := DeviceUnavailable.Err()
	require.Error(t, err)
	assert.Equal(t, DeviceUnavailable, FromError(err))
	assert.False(t, errors.Is(err, ErrOutputInsufficientSize))

	err = errors.WithMessage(OutputInsufficientSize.Err(), "compute")
	assert.True(t, errors.Is(err, ErrOutputInsufficientSize))
	assert.Equal(t, OutputInsufficientSize, FromError(err))

	assert.Equal(t, GeneralFailure, FromError(errors.New("plan failed")))
	assert.Equal(t, None, FromError(nil))
	assert.Equal(t, ResourceExhaustedTransient,
		FromError(Errorf(ResourceExhaustedTransient, "device %q is busy", "npu0")))
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "output_insufficient_size", OutputInsufficientSize.String())
	s, err := StatusString("device_unavailable")
	require.NoError(t, err)
	assert.Equal(t, DeviceUnavailable, s)
	assert.Len(t, StatusValues(), 10)
}

func TestTimingSelect(t *testing.T) {
	timing := Timing{OnDevice: 10, InDriver: 20}
	d, err := timing.Select(DurationOnHardware)
	require.NoError(t, err)
	assert.EqualValues(t, 10, d)
	d, err = timing.Select(DurationInDriver)
	require.NoError(t, err)
	assert.EqualValues(t, 20, d)
	_, err = timing.Select(DurationCode(7))
	require.ErrorIs(t, err, ErrBadData)
	assert.Equal(t, NotMeasured, NoTiming.OnDevice)
}
