package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	config, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig, config)

	t.Setenv(PartitioningEnvVar, "nofallback")
	t.Setenv(SyncExecEnvVar, "true")
	t.Setenv(AsyncParallelismEnvVar, "-1")
	config, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{Partitioning: PartitioningNoFallback, SyncExecRuntime: true, AsyncParallelism: -1}, config)
	assert.False(t, config.Partitioning.AllowsFallback())

	t.Setenv(PartitioningEnvVar, "sometimes")
	_, err = ConfigFromEnv()
	require.ErrorContains(t, err, PartitioningEnvVar)

	t.Setenv(PartitioningEnvVar, "fallback")
	t.Setenv(AsyncParallelismEnvVar, "many")
	_, err = ConfigFromEnv()
	require.ErrorContains(t, err, AsyncParallelismEnvVar)
}

func TestPartitioningStrings(t *testing.T) {
	assert.Equal(t, []string{"none", "fallback", "nofallback"}, PartitioningStrings())
	assert.True(t, PartitioningFallback.AllowsFallback())
	assert.False(t, PartitioningNone.AllowsFallback())
}
