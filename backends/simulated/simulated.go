// Package simulated implements an accelerator simulated on the host, with configurable faults.
//
// Compute is delegated to the reference kernels, so results match the software device. The device
// can be configured to reject operations, fail preparation or fail executions with a given status,
// to exercise the fallback paths of the runtime.
//
// The configuration string is a comma separated list of "key" or "key=value" entries:
//
//   - name=<name>: name of the device, default "simulated".
//   - type=<type>: one of backends.DeviceTypeStrings(), default "accelerator".
//   - supports=<op>|<op>...: operation types accepted by Prepare. Default is all operations with a kernel.
//   - fail_prepare: Prepare always fails.
//   - fail_ops=<op>|<op>...: executions of programs using any of these operations fail.
//   - fail_first=<n>: the first n executions fail.
//   - status=<status>: status reported by failed executions, one of status.StatusStrings(), default
//     "device_unavailable".
//   - latency=<duration>: added to every execution, e.g. "2ms".
package simulated

import (
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/reference"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DeviceName to be used in NNEXEC_DEVICES to specify this device.
const DeviceName = "simulated"

func init() {
	backends.Register(DeviceName, New)
}

// Options of a simulated Device.
type Options struct {
	Name        string
	Type        backends.DeviceType
	Supports    []string
	FailPrepare bool
	FailOps     []string
	FailFirst   int
	Status      status.Status
	Latency     time.Duration
}

// DefaultOptions returns the options of a healthy accelerator.
func DefaultOptions() Options {
	return Options{
		Name:   DeviceName,
		Type:   backends.DeviceTypeAccelerator,
		Status: status.DeviceUnavailable,
	}
}

// ParseOptions parses a configuration string, see package documentation for the format.
func ParseOptions(config string) (Options, error) {
	opts := DefaultOptions()
	for _, entry := range strings.Split(config, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, hasValue := strings.Cut(entry, "=")
		var err error
		switch key {
		case "name":
			opts.Name = value
		case "type":
			opts.Type, err = backends.DeviceTypeString(value)
		case "supports":
			opts.Supports = strings.Split(value, "|")
		case "fail_prepare":
			opts.FailPrepare = !hasValue || value == "true"
		case "fail_ops":
			opts.FailOps = strings.Split(value, "|")
		case "fail_first":
			opts.FailFirst, err = strconv.Atoi(value)
		case "status":
			opts.Status, err = status.StatusString(value)
		case "latency":
			opts.Latency, err = time.ParseDuration(value)
		default:
			err = errors.Errorf("unknown key %q", key)
		}
		if err != nil {
			return opts, errors.Wrapf(err, "simulated device configuration %q, entry %q", config, entry)
		}
	}
	if opts.Name == "" {
		return opts, errors.Errorf("simulated device configuration %q has an empty name", config)
	}
	if opts.Status == status.None {
		return opts, errors.Errorf("simulated device configuration %q: failure status can't be %q", config, opts.Status)
	}
	return opts, nil
}

// New creates a simulated Device from a configuration string.
func New(config string) (backends.Device, error) {
	opts, err := ParseOptions(config)
	if err != nil {
		return nil, err
	}
	return NewDevice(opts), nil
}

// NewDevice creates a simulated Device.
func NewDevice(opts Options) *Device {
	return &Device{opts: opts, kernels: reference.NewDevice()}
}

// Device implements backends.Device.
type Device struct {
	opts    Options
	kernels *reference.Device

	numExecutions, numFailures atomic.Int64
}

var _ backends.Device = (*Device)(nil)

// Name implements backends.Device.
func (d *Device) Name() string { return d.opts.Name }

// Type implements backends.Device.
func (d *Device) Type() backends.DeviceType { return d.opts.Type }

// String implements fmt.Stringer.
func (d *Device) String() string { return d.opts.Name }

// NumExecutions returns the number of executions attempted on the device, including failed ones.
func (d *Device) NumExecutions() int64 { return d.numExecutions.Load() }

// NumFailures returns the number of executions that failed due to fault injection.
func (d *Device) NumFailures() int64 { return d.numFailures.Load() }

// Supports returns whether the device accepts operations of the given type.
func (d *Device) Supports(opType string) bool {
	if len(d.opts.Supports) > 0 && !slices.Contains(d.opts.Supports, opType) {
		return false
	}
	return reference.LookupKernel(opType) != nil
}

// Prepare implements backends.Device.
func (d *Device) Prepare(m *model.Model, preference backends.Preference) (backends.PreparedProgram, error) {
	if d.opts.FailPrepare {
		return nil, errors.Errorf("device %q failed to prepare %s", d.opts.Name, m)
	}
	for ii, op := range m.Operations {
		if !d.Supports(op.OpType) {
			return nil, errors.Errorf("device %q doesn't support operation #%d %q of model %q",
				d.opts.Name, ii, op.OpType, m.Name)
		}
	}
	inner, err := d.kernels.PrepareFor(d, m, preference)
	if err != nil {
		return nil, err
	}
	program := &Program{device: d, inner: inner}
	for _, op := range m.Operations {
		if slices.Contains(d.opts.FailOps, op.OpType) {
			program.fails = true
			break
		}
	}
	return program, nil
}

// Program implements backends.PreparedProgram.
type Program struct {
	device *Device
	inner  *reference.Program
	fails  bool
}

var _ backends.PreparedProgram = (*Program)(nil)

// Device implements backends.PreparedProgram.
func (p *Program) Device() backends.Device { return p.device }

// Execute implements backends.PreparedProgram.
func (p *Program) Execute(request *backends.Request) (status.Status, []status.OutputShape, status.Timing) {
	d := p.device
	count := d.numExecutions.Add(1)
	if d.opts.Latency > 0 {
		time.Sleep(d.opts.Latency)
	}
	if p.fails || count <= int64(d.opts.FailFirst) {
		d.numFailures.Add(1)
		klog.V(1).Infof("device %q: injected failure %s on %s", d.opts.Name, d.opts.Status, p.inner.Model())
		return d.opts.Status, nil, status.NoTiming
	}
	result, outputShapes, timing := p.inner.Execute(request)
	if request.MeasureTiming && timing.OnDevice != status.NotMeasured {
		timing.OnDevice += d.opts.Latency
		timing.InDriver += d.opts.Latency
	}
	return result, outputShapes, timing
}
