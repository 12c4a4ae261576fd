// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/reference"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/simulated"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigSettings(t *testing.T) {
	config := execution.DefaultConfig
	paramsSet, err := ParseConfigSettings(&config, "partitioning=nofallback;sync_exec=true;async_parallelism=1_000;")
	require.NoError(t, err)
	require.Equal(t, []string{"partitioning", "sync_exec", "async_parallelism"}, paramsSet)
	assert.Equal(t, execution.Config{
		Partitioning:     execution.PartitioningNoFallback,
		SyncExecRuntime:  true,
		AsyncParallelism: 1000,
	}, config)
	assert.Contains(t, SprintConfig(config), `"partitioning": nofallback`)

	// Unknown setting.
	_, err = ParseConfigSettings(&config, "q=3")
	require.Error(t, err)

	// Wrong values.
	_, err = ParseConfigSettings(&config, "partitioning=sometimes")
	require.Error(t, err)
	_, err = ParseConfigSettings(&config, "async_parallelism=3.14")
	require.Error(t, err)

	// Missing value.
	_, err = ParseConfigSettings(&config, "sync_exec")
	require.Error(t, err)

	// From file.
	settingsPath := filepath.Join(t.TempDir(), "settings.txt")
	require.NoError(t, os.WriteFile(settingsPath, []byte("# Comment\npartitioning=fallback\n\nasync_parallelism=-1;sync_exec=false\n"), 0o600))
	paramsSet, err = ParseConfigSettings(&config, "file:"+settingsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"partitioning", "async_parallelism", "sync_exec"}, paramsSet)
	assert.Equal(t, execution.Config{Partitioning: execution.PartitioningFallback, AsyncParallelism: -1}, config)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.23ms", FormatDuration(1234567*time.Nanosecond))
	assert.Equal(t, "2.00s", FormatDuration(2*time.Second))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second))
	assert.Equal(t, "n/a", FormatDuration(-1))
}

func TestDeviceRows(t *testing.T) {
	software := reference.NewDevice()
	accel := simulated.NewDevice(simulated.DefaultOptions())
	rows := DeviceRows(accel, software, accel, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, DeviceRow{Name: "simulated", Type: backends.DeviceTypeAccelerator, Counted: true}, rows[0])
	assert.Equal(t, DeviceRow{Name: "reference", Type: backends.DeviceTypeCPU}, rows[1])

	table := DevicesTable(rows)
	assert.Contains(t, table, "simulated")
	assert.Contains(t, table, "accelerator")
	assert.Contains(t, KeyValueTable("Status", "none"), "Status")
}
