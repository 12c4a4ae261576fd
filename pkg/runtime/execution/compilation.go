// Package execution runs compiled models: it binds the arguments of an Execution, walks the steps of
// its plan on the devices they were prepared for, reconciles the output shapes reported by each
// step, and re-runs failed work on the software device when allowed.
//
// Typical use:
//
//	compilation, err := execution.Compile(m, devices, software, backends.PreferFastSingleAnswer)
//	e := compilation.NewExecution()
//	err = e.SetInput(0, nil, buffers.FromFlat(x))
//	err = e.SetOutput(0, nil, out)
//	err = e.Compute()
package execution

import (
	"slices"
	"sync"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/internal/workerspool"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/model"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/plan"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Plan is the execution plan walked by executions. *plan.Plan implements it.
type Plan interface {
	// MakeController creates the state of one walk. bursts is optional.
	MakeController(bursts *plan.Bursts) (*plan.Controller, error)

	// Next returns the next step, or nil when there are no more steps.
	Next(c *plan.Controller) (*plan.Step, error)

	// Fallback returns the step last returned by Next, to be re-run on the software device.
	Fallback(c *plan.Controller) (*plan.Step, error)

	// IsTrivial returns whether the plan is one step running the whole model.
	IsTrivial() bool

	// IsTrivialOn returns whether the plan is one step running the whole model on device.
	IsTrivialOn(device backends.Device) bool
}

var _ Plan = (*plan.Plan)(nil)

// Compilation is a model with its execution plan. It creates the executions of the model, and it can
// be used concurrently.
type Compilation struct {
	model *model.Model
	plan  Plan

	// software is the device fallback work runs on.
	software backends.Device

	// explicitDevices is set when the compilation was restricted to a list of devices by the caller.
	explicitDevices []backends.Device

	config Config

	muPool sync.Mutex
	pool   *workerspool.Pool
}

// NewCompilation returns the compilation of m executed with p.
// software is the device used to re-run failed work. It uses DefaultConfig.
func NewCompilation(m *model.Model, p Plan, software backends.Device) *Compilation {
	return &Compilation{model: m, plan: p, software: software, config: DefaultConfig}
}

// WithExplicitDevices marks the compilation as restricted by the caller to the given devices.
// Executions of explicit compilations never fall back to the software device, and can measure timing
// if there is exactly one device.
func (c *Compilation) WithExplicitDevices(devices ...backends.Device) *Compilation {
	c.explicitDevices = devices
	return c
}

// WithConfig sets the configuration of the compilation. It must be called before creating executions.
func (c *Compilation) WithConfig(config Config) *Compilation {
	c.config = config
	return c
}

// WithPool sets the pool of workers running asynchronous computes. By default, each compilation creates
// its own pool with Config.AsyncParallelism workers.
func (c *Compilation) WithPool(pool *workerspool.Pool) *Compilation {
	c.muPool.Lock()
	defer c.muPool.Unlock()
	c.pool = pool
	return c
}

// Model returns the compiled model.
func (c *Compilation) Model() *model.Model { return c.model }

// Plan returns the plan of the compilation.
func (c *Compilation) Plan() Plan { return c.plan }

// Config returns the configuration of the compilation.
func (c *Compilation) Config() Config { return c.config }

// SoftwareDevice returns the device used for fallback work.
func (c *Compilation) SoftwareDevice() backends.Device { return c.software }

// IsExplicit returns whether the compilation is restricted to devices selected by the caller.
func (c *Compilation) IsExplicit() bool { return c.explicitDevices != nil }

// asyncPool returns the pool of workers for asynchronous computes, creating it if needed.
func (c *Compilation) asyncPool() *workerspool.Pool {
	c.muPool.Lock()
	defer c.muPool.Unlock()
	if c.pool == nil {
		c.pool = workerspool.NewWithParallelism(c.config.AsyncParallelism)
	}
	return c.pool
}

// allowsFallback returns whether executions may re-run failed work on the software device.
func (c *Compilation) allowsFallback() bool {
	if c.software == nil {
		return false
	}
	return c.config.Partitioning.AllowsFallback() && !c.IsExplicit() && !c.plan.IsTrivialOn(c.software)
}

// Compile returns a compilation running the whole of m on the first of devices that can prepare it.
// If none can, the software device is used, if given.
func Compile(m *model.Model, devices []backends.Device, software backends.Device,
	preference backends.Preference) (*Compilation, error) {
	candidates := devices
	if software != nil && !slices.Contains(devices, software) {
		candidates = append(append([]backends.Device(nil), devices...), software)
	}
	p, err := prepareFirst(m, candidates, preference)
	if err != nil {
		return nil, err
	}
	return NewCompilation(m, p, software), nil
}

// CompileForDevices returns an explicit compilation running the whole of m on the first of devices
// that can prepare it. The software device is only used if it is listed.
func CompileForDevices(m *model.Model, devices []backends.Device, software backends.Device,
	preference backends.Preference) (*Compilation, error) {
	if len(devices) == 0 {
		return nil, errors.Errorf("no devices given to compile model %q", m.Name)
	}
	p, err := prepareFirst(m, devices, preference)
	if err != nil {
		return nil, err
	}
	return NewCompilation(m, p, software).WithExplicitDevices(devices...), nil
}

func prepareFirst(m *model.Model, devices []backends.Device, preference backends.Preference) (*plan.Plan, error) {
	var firstErr error
	for _, device := range devices {
		if device == nil {
			continue
		}
		p, err := plan.Prepare(m, device, preference)
		if err == nil {
			klog.V(1).Infof("compiled %s", p)
			return p, nil
		}
		klog.Warningf("device %q can't run model %q: %v", device.Name(), m.Name, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		return nil, errors.Errorf("no device available to prepare model %q", m.Name)
	}
	return nil, errors.WithMessagef(firstErr, "no device could prepare model %q", m.Name)
}
