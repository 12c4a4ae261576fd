package commandline

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/execution"
	"github.com/pkg/errors"
)

// configSetting parses the value of one setting into the config.
type configSetting struct {
	usage string
	parse func(config *execution.Config, value string) error
	print func(config execution.Config) string
}

var configSettings = map[string]configSetting{
	"partitioning": {
		usage: fmt.Sprintf("one of %q", execution.PartitioningStrings()),
		parse: func(config *execution.Config, value string) (err error) {
			config.Partitioning, err = execution.PartitioningString(value)
			return
		},
		print: func(config execution.Config) string { return config.Partitioning.String() },
	},
	"sync_exec": {
		usage: "run asynchronous computes inline",
		parse: func(config *execution.Config, value string) error {
			return json.Unmarshal([]byte(value), &config.SyncExecRuntime)
		},
		print: func(config execution.Config) string { return fmt.Sprintf("%v", config.SyncExecRuntime) },
	},
	"async_parallelism": {
		usage: "max asynchronous computes running at the same time, 0 runs them inline, -1 is unlimited",
		parse: func(config *execution.Config, value string) error {
			value = strings.ReplaceAll(value, "_", "")
			return json.Unmarshal([]byte(value), &config.AsyncParallelism)
		},
		print: func(config execution.Config) string { return fmt.Sprintf("%d", config.AsyncParallelism) },
	},
}

// settingsOrder is the order settings are listed in the usage and by SprintConfig.
var settingsOrder = []string{"partitioning", "sync_exec", "async_parallelism"}

// ParseConfigSettings from settings -- typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "partitioning=nofallback;async_parallelism=4".
//
// A setting "file:<path>" reads settings from a file, one or more per line. Lines starting with "#"
// are comments.
//
// For integer values, "_" is removed: e.g.: 1_000 = 1000.
//
// It returns the names of the settings set, in order.
func ParseConfigSettings(config *execution.Config, settings string) (paramsSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		paramsSet, err = parseConfigSetting(config, setting, paramsSet)
		if err != nil {
			return
		}
	}
	return
}

func parseConfigSetting(config *execution.Config, setting string, paramsSet []string) (newParamsSet []string, err error) {
	newParamsSet = paramsSet
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return
	}
	if filePath, found := strings.CutPrefix(setting, "file:"); found {
		var contents []byte
		contents, err = os.ReadFile(filePath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read settings from file %q", filePath)
			return
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			newParamsSet, err = ParseConfigSettings(config, line)
			if err != nil {
				return
			}
		}
		return
	}

	name, value, found := strings.Cut(setting, "=")
	if !found {
		err = errors.Errorf("can't parse setting %q: each setting requires the format \"<name>=<value>\"", setting)
		return
	}
	s, known := configSettings[name]
	if !known {
		err = errors.Errorf("unknown setting %q, valid settings are %q", name, settingsOrder)
		return
	}
	if err = s.parse(config, value); err != nil {
		err = errors.Wrapf(err, "failed to parse value %q for setting %q", value, name)
		return
	}
	newParamsSet = append(newParamsSet, name)
	return
}

// CreateConfigSettingsFlag creates a string flag with the given flagName (if empty it will be named
// "set") and with a description of the settings accepted by ParseConfigSettings.
//
// The flag should be created before the call to `flags.Parse()`.
//
// Example usage:
//
//	func main() {
//		settings := commandline.CreateConfigSettingsFlag("")
//		flag.Parse()
//		config := must.M1(execution.ConfigFromEnv())
//		_, err := commandline.ParseConfigSettings(&config, *settings)
//		if err != nil { panic(err) }
//		fmt.Println(commandline.SprintConfig(config))
//		...
//	}
func CreateConfigSettingsFlag(flagName string) *string {
	if flagName == "" {
		flagName = "set"
	}
	parts := []string{
		`Configure the runtime. ` +
			`It should be a list of elements "name=value" separated by ";". ` +
			`It can also be given an entry like: "file:settings.txt", in which case the file is read ` +
			`with new-lines working as ";" and lines starting with "#" are comments. Settings:`,
	}
	for _, name := range settingsOrder {
		parts = append(parts, fmt.Sprintf("%q: %s", name, configSettings[name].usage))
	}
	var settings string
	flag.StringVar(&settings, flagName, "", strings.Join(parts, "\n"))
	return &settings
}

// SprintConfig pretty-prints the config, one setting per line.
func SprintConfig(config execution.Config) string {
	parts := make([]string, 0, len(settingsOrder))
	for _, name := range settingsOrder {
		parts = append(parts, fmt.Sprintf("\t%q: %s", name, configSettings[name].print(config)))
	}
	return strings.Join(parts, "\n")
}
