// Package backends defines the interface compute devices implement to run (sub-)models, and a
// registry of device constructors configured with a string or an environment variable.
//
// A device takes a model.Model, prepares it into a PreparedProgram and runs it against requests
// whose arguments are bound to caller buffers or memory pools.
//
// Devices report failures as status.Status codes: the runtime decides whether to retry the work
// on another device based on them.
package backends

import (
	"os"
	"slices"
	"strings"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// DeviceType is the broad category of a device.
type DeviceType int

//go:generate go tool enumer -type=DeviceType -trimprefix=DeviceType -transform=snake -output=gen_devicetype_enumer.go backends.go

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeOther
	DeviceTypeCPU
	DeviceTypeGPU
	DeviceTypeAccelerator
)

// Preference is a hint to devices on how to prepare a program.
type Preference int

//go:generate go tool enumer -type=Preference -trimprefix=Prefer -transform=snake -output=gen_preference_enumer.go backends.go

const (
	// PreferLowPower favors battery consumption over speed.
	PreferLowPower Preference = iota

	// PreferFastSingleAnswer favors the latency of a single execution. Used for fallback work.
	PreferFastSingleAnswer

	// PreferSustainedSpeed favors throughput of successive executions.
	PreferSustainedSpeed
)

// Device is a compute device able to prepare and run models.
//
// Devices are compared by identity: the runtime keeps one instance per physical device.
type Device interface {
	// Name returns the unique name of the device instance. E.g.: "reference", "npu-0".
	Name() string

	// Type of the device.
	Type() DeviceType

	// Prepare compiles m for this device. It fails if the device doesn't support some
	// operation of m.
	Prepare(m *model.Model, preference Preference) (PreparedProgram, error)
}

// Constructor takes a config string (optionally empty) and returns a Device.
type Constructor func(config string) (Device, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a device constructor with the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List the names of the registered device constructors, sorted.
func List() []string {
	names := maps.Keys(registeredConstructors)
	slices.Sort(names)
	return names
}

// DefaultConfig is the devices configuration to use if ConfigEnvVar is not set.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default devices configuration.
//
// The format is a ";" separated list of "<device_name>:<device_configuration>" entries.
// The "<device_name>" is the name of a registered constructor (e.g.: "simulated") and
// "<device_configuration>" is device specific.
const ConfigEnvVar = "NNEXEC_DEVICES"

// New returns the default devices.
//
// The default is:
//
//  1. The environment variable ConfigEnvVar is used as a configuration if defined.
//  2. Next the variable DefaultConfig is used as a configuration if defined.
//  3. The first registered constructor is used with an empty configuration.
func New() ([]Device, error) {
	config, found := os.LookupEnv(ConfigEnvVar)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// MustNew is like New, but panics on error.
func MustNew() []Device {
	devices, err := New()
	if err != nil {
		exceptions.Panicf("backends.MustNew(): %+v", err)
	}
	return devices
}

// NewWithConfig creates the devices listed in config, a ";" separated list of
// "<device_name>:<device_configuration>" entries.
//
// An entry without ":" is taken as a device name with empty configuration. An empty config creates
// one device from the first registered constructor.
func NewWithConfig(config string) ([]Device, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.New(`no registered devices -- maybe import the reference one with import _ "github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/reference"?`)
	}
	if strings.TrimSpace(config) == "" {
		device, err := newDevice(firstRegistered, "")
		if err != nil {
			return nil, err
		}
		return []Device{device}, nil
	}
	var devices []Device
	for _, entry := range strings.Split(config, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, deviceConfig, _ := strings.Cut(entry, ":")
		device, err := newDevice(name, deviceConfig)
		if err != nil {
			return nil, errors.WithMessagef(err, "devices configuration %q", config)
		}
		for _, previous := range devices {
			if previous.Name() == device.Name() {
				return nil, errors.Errorf("devices configuration %q creates two devices named %q", config, device.Name())
			}
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func newDevice(name, config string) (Device, error) {
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Errorf("can't find device constructor %q, registered constructors: %q", name, List())
	}
	device, err := constructor(config)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create device %q with config %q", name, config)
	}
	return device, nil
}
