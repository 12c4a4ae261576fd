package main

import (
	"testing"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/reference"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/simulated"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll(t *testing.T) {
	opts := simulated.DefaultOptions()
	opts.FailFirst = 2
	accel := simulated.NewDevice(opts)
	software := reference.NewDevice()

	for _, compound := range []bool{false, true} {
		*flagCompound = compound
		compilation, err := compile([]backends.Device{accel}, software, 2)
		require.NoError(t, err)
		r, err := runAll(compilation, 5, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, r.numExecutions)
		assert.Equal(t, 5, r.byStatus[status.None], "failures must have fallen back to the software device")
		assert.Zero(t, r.numFailures.Load())
		assert.Contains(t, r.table(), "executions")
	}
	*flagCompound = false
}

func TestRunAllExplicit(t *testing.T) {
	opts := simulated.DefaultOptions()
	opts.FailFirst = 2
	accel := simulated.NewDevice(opts)

	*flagExplicit = true
	defer func() { *flagExplicit = false }()
	compilation, err := compile([]backends.Device{accel}, reference.NewDevice(), 2)
	require.NoError(t, err)
	r, err := runAll(compilation, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, r.byStatus[status.None])
	assert.Equal(t, 2, r.byStatus[status.DeviceUnavailable])
	assert.Equal(t, int64(2), r.numFailures.Load())
}
