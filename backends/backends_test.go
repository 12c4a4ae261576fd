package backends

import (
	"testing"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/arguments"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/memory"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/shapes"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	name string
}

func (d *fakeDevice) Name() string     { return d.name }
func (d *fakeDevice) Type() DeviceType { return DeviceTypeOther }
func (d *fakeDevice) Prepare(*model.Model, Preference) (PreparedProgram, error) {
	return nil, errors.New("fake devices can't prepare models")
}

func init() {
	Register("fake", func(config string) (Device, error) {
		if config == "broken" {
			return nil, errors.New("broken fake device")
		}
		name := config
		if name == "" {
			name = "fake"
		}
		return &fakeDevice{name: name}, nil
	})
}

func deviceNames(devices []Device) []string {
	names := make([]string, len(devices))
	for ii, device := range devices {
		names[ii] = device.Name()
	}
	return names
}

func TestNewWithConfig(t *testing.T) {
	assert.Contains(t, List(), "fake")

	devices, err := NewWithConfig("fake:a; fake:b;;fake")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "fake"}, deviceNames(devices))

	devices, err = NewWithConfig("")
	require.NoError(t, err)
	assert.Equal(t, []string{"fake"}, deviceNames(devices))

	_, err = NewWithConfig("fake:a;fake:a")
	require.ErrorContains(t, err, "two devices")
	_, err = NewWithConfig("nope:x")
	require.ErrorContains(t, err, "can't find device constructor")
	_, err = NewWithConfig("fake:broken")
	require.ErrorContains(t, err, "broken fake device")
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(ConfigEnvVar, "fake:from_env")
	devices, err := New()
	require.NoError(t, err)
	assert.Equal(t, []string{"from_env"}, deviceNames(devices))

	t.Setenv(ConfigEnvVar, "nope")
	require.Panics(t, func() { _ = MustNew() })
}

func TestEnums(t *testing.T) {
	assert.Equal(t, "accelerator", DeviceTypeAccelerator.String())
	deviceType, err := DeviceTypeString("cpu")
	require.NoError(t, err)
	assert.Equal(t, DeviceTypeCPU, deviceType)
	assert.Equal(t, "fast_single_answer", PreferFastSingleAnswer.String())
}

func TestRequestBytes(t *testing.T) {
	vec := shapes.Make(dtypes.Uint8, 4)
	pool := memory.NewHostPool(8)
	copy(pool.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	table := memory.NewTable()
	poolIdx := table.Add(pool)

	fromPool, err := arguments.FromPool(vec, nil, poolIdx, 4, 4)
	require.NoError(t, err)
	fromPointer, err := arguments.FromPointer(vec, nil, []byte{9, 9, 9, 9})
	require.NoError(t, err)
	request := &Request{
		Inputs:  []arguments.Argument{fromPool, {Location: arguments.NoValue{}}},
		Outputs: []arguments.Argument{fromPointer, {}},
		Pools:   table,
	}

	data, err := request.InputBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7, 8}, data)
	data, err = request.InputBytes(1)
	require.NoError(t, err)
	assert.Nil(t, data)
	data, err = request.OutputBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9}, data)

	_, err = request.OutputBytes(1)
	require.ErrorIs(t, err, status.ErrBadData)
	_, err = request.InputBytes(2)
	require.ErrorIs(t, err, status.ErrBadIndex)

	request.Inputs[0].Location = arguments.PoolRange{Pool: 3, Length: 4}
	_, err = request.InputBytes(0)
	require.ErrorIs(t, err, status.ErrBadData)
}

func TestBurstMemo(t *testing.T) {
	burst := NewBurst(nil)
	calls := 0
	build := func() any {
		calls++
		return calls
	}
	assert.Equal(t, 1, burst.Memo("key", build))
	assert.Equal(t, 1, burst.Memo("key", build))
	assert.Equal(t, 2, burst.Memo("other", build))
	burst.Executed()
	assert.Equal(t, int64(1), burst.NumExecutions())
}
