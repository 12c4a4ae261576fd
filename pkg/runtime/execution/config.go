package execution

import (
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

// Partitioning mode of compilations. It decides whether executions may fall back to the software device.
type Partitioning int

//go:generate go tool enumer -type=Partitioning -trimprefix=Partitioning -transform=lower -output=gen_partitioning_enumer.go config.go

const (
	// PartitioningNone runs the whole model on one device, without fallback.
	PartitioningNone Partitioning = iota

	// PartitioningFallback allows executions to re-run failed work on the software device.
	PartitioningFallback

	// PartitioningNoFallback reports failures as they happen.
	PartitioningNoFallback
)

// AllowsFallback returns whether the partitioning mode allows falling back to the software device.
func (p Partitioning) AllowsFallback() bool {
	return p == PartitioningFallback
}

// Config of the runtime.
type Config struct {
	Partitioning Partitioning

	// SyncExecRuntime runs asynchronous computes inline, in the goroutine that started them.
	SyncExecRuntime bool

	// AsyncParallelism is the maximum number of asynchronous computes running at the same time,
	// per Compilation. 0 runs them inline and -1 doesn't limit them.
	AsyncParallelism int
}

// Environment variables read by ConfigFromEnv.
const (
	PartitioningEnvVar     = "NNEXEC_PARTITIONING"
	SyncExecEnvVar         = "NNEXEC_SYNC_EXEC"
	AsyncParallelismEnvVar = "NNEXEC_ASYNC_PARALLELISM"
)

// DefaultConfig is used by compilations that are not given a Config, and as the base of ConfigFromEnv.
var DefaultConfig = Config{
	Partitioning:     PartitioningFallback,
	AsyncParallelism: runtime.GOMAXPROCS(0),
}

// ConfigFromEnv returns DefaultConfig overridden by the environment variables PartitioningEnvVar,
// SyncExecEnvVar and AsyncParallelismEnvVar, if set.
func ConfigFromEnv() (Config, error) {
	config := DefaultConfig
	if value, found := os.LookupEnv(PartitioningEnvVar); found {
		partitioning, err := PartitioningString(value)
		if err != nil {
			return config, errors.Wrapf(err, "invalid $%s=%q, valid values are %q",
				PartitioningEnvVar, value, PartitioningStrings())
		}
		config.Partitioning = partitioning
	}
	if value, found := os.LookupEnv(SyncExecEnvVar); found {
		syncExec, err := strconv.ParseBool(value)
		if err != nil {
			return config, errors.Wrapf(err, "invalid $%s=%q", SyncExecEnvVar, value)
		}
		config.SyncExecRuntime = syncExec
	}
	if value, found := os.LookupEnv(AsyncParallelismEnvVar); found {
		parallelism, err := strconv.Atoi(value)
		if err != nil {
			return config, errors.Wrapf(err, "invalid $%s=%q", AsyncParallelismEnvVar, value)
		}
		config.AsyncParallelism = parallelism
	}
	return config, nil
}
