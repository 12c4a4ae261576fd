// nnexec runs a small demo model repeatedly on the configured devices and reports the results.
//
// Devices are configured with -devices, or with $NNEXEC_DEVICES, in the format
// "<name>:<config>;<name>:<config>...". E.g.: to run on a simulated accelerator that fails the
// first 10 executions, falling back to the software device:
//
//	nnexec -devices="simulated:name=npu,fail_first=10" -n=100
//
// The runtime is configured with -set, see -help.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/reference"
	_ "github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends/simulated"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/buffers"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/execution"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/plan"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/ui/commandline"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagDevices = flag.String("devices", "",
		fmt.Sprintf("Devices to run on, in the format \"<name>:<config>;...\". "+
			"Defaults to $%s, and then to the first registered device. Registered devices: %q",
			backends.ConfigEnvVar, backends.List()))
	flagNumExecutions = flag.Int("n", 100, "Number of executions to run.")
	flagBatch         = flag.Int("batch", 4, "Batch size of the demo model input.")
	flagCompound      = flag.Bool("compound", false,
		"Split the demo model in two steps, the first on the first device and the second on the last device.")
	flagExplicit = flag.Bool("explicit", false,
		"Compile only for the given devices: executions never fall back to the software device.")
	flagAsync    = flag.Bool("async", false, "Run executions asynchronously.")
	flagBurst    = flag.Bool("burst", false, "Reuse bursts across executions. Not compatible with -async.")
	flagMeasure  = flag.Bool("measure", false, "Measure timing. Requires -explicit and exactly one device.")
	flagProgress = flag.Bool("progress", false, "Display a progress bar.")
	flagSettings = commandline.CreateConfigSettingsFlag("")
)

var titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if err := run(); err != nil {
		klog.Errorf("nnexec failed: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	if *flagBurst && *flagAsync {
		return errors.New("-burst and -async can't be used together")
	}
	config, err := execution.ConfigFromEnv()
	if err != nil {
		return err
	}
	if _, err = commandline.ParseConfigSettings(&config, *flagSettings); err != nil {
		return err
	}
	var devices []backends.Device
	if *flagDevices != "" {
		devices, err = backends.NewWithConfig(*flagDevices)
	} else {
		devices, err = backends.New()
	}
	if err != nil {
		return err
	}
	software := reference.NewDevice()

	compilation, err := compile(devices, software, *flagBatch)
	if err != nil {
		return err
	}
	compilation.WithConfig(config)
	klog.V(1).Infof("configuration:\n%s", commandline.SprintConfig(config))

	results, err := runAll(compilation, *flagNumExecutions, *flagBatch)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Results"))
	fmt.Println(results.table())
	fmt.Println(titleStyle.Render("Devices"))
	return commandline.ReportDevices(os.Stdout, append(devices, software)...)
}

// compile returns the compilation of the demo model, following the flags.
func compile(devices []backends.Device, software backends.Device, batch int) (*execution.Compilation, error) {
	m := scaleShiftRelu(batch)
	if *flagCompound {
		first, last := software, software
		if len(devices) > 0 {
			first, last = devices[0], devices[len(devices)-1]
		}
		steps, temporaries, err := twoSteps(batch, first, last)
		if err != nil {
			return nil, err
		}
		p, err := plan.NewCompound(m, steps, temporaries)
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("compiled %s", p)
		compilation := execution.NewCompilation(m, p, software)
		if *flagExplicit {
			compilation.WithExplicitDevices(devices...)
		}
		return compilation, nil
	}
	if *flagExplicit {
		return execution.CompileForDevices(m, devices, software, backends.PreferFastSingleAnswer)
	}
	return execution.Compile(m, devices, software, backends.PreferFastSingleAnswer)
}

// results of a batch of executions.
type results struct {
	numExecutions int
	byStatus      map[status.Status]int
	rejected      int

	// numFailures is read by the progress bar goroutine.
	numFailures atomic.Int64

	lastOnHardware time.Duration
	measured       bool
}

func (r *results) add(e *execution.Execution, err error) {
	r.numExecutions++
	var statusErr *status.Error
	if err != nil && !errors.As(err, &statusErr) {
		// Rejected before running: the caller contract was violated.
		r.rejected++
		r.numFailures.Add(1)
		klog.Errorf("%s: %v", e, err)
		return
	}
	st := status.FromError(err)
	r.byStatus[st]++
	if st != status.None {
		r.numFailures.Add(1)
	}
	if *flagMeasure {
		if d, err := e.Duration(status.DurationOnHardware); err == nil {
			r.lastOnHardware, r.measured = d, true
		}
	}
}

func (r *results) table() string {
	t := newPlainTableWithReds(false)
	t.Row(false, "executions", humanize.Comma(int64(r.numExecutions)))
	for _, st := range status.StatusValues() {
		if count := r.byStatus[st]; count > 0 {
			t.Row(st != status.None, st.String(), humanize.Comma(int64(count)))
		}
	}
	if r.rejected > 0 {
		t.Row(true, "rejected", humanize.Comma(int64(r.rejected)))
	}
	if r.measured {
		t.Row(false, "last duration on hardware", commandline.FormatDuration(r.lastOnHardware))
	}
	return t.Table.String()
}

// runAll runs numExecutions executions of the compilation, and collects their results.
func runAll(compilation *execution.Compilation, numExecutions, batch int) (*results, error) {
	r := &results{byStatus: make(map[status.Status]int)}
	var pBar *commandline.ProgressBar
	if *flagProgress {
		pBar = commandline.NewProgressBar(numExecutions, func() (name, value string) {
			return "Failures", humanize.Comma(r.numFailures.Load())
		})
		defer pBar.Done()
	}
	var bursts *plan.Bursts
	if *flagBurst {
		p, ok := compilation.Plan().(*plan.Plan)
		if !ok {
			return nil, errors.Errorf("plan %T doesn't support bursts", compilation.Plan())
		}
		bursts = p.NewBursts()
	}

	type pending struct {
		e          *execution.Execution
		completion *execution.Completion
	}
	var asyncs []pending
	for ii := range numExecutions {
		e, output, err := newExecution(compilation, batch, ii)
		if err != nil {
			return nil, err
		}
		switch {
		case *flagAsync:
			completion, err := e.ComputeAsync()
			if err != nil {
				r.add(e, err)
				continue
			}
			asyncs = append(asyncs, pending{e, completion})
			continue
		case bursts != nil:
			err = e.ComputeBurst(bursts)
		default:
			err = e.Compute()
		}
		r.add(e, err)
		if err == nil && klog.V(2).Enabled() {
			klog.Infof("%s: output %v", e, must.M1(buffers.ToFlat[float32](output)))
		}
		if pBar != nil {
			pBar.Add(1)
		}
	}
	for _, p := range asyncs {
		r.add(p.e, p.completion.Err())
		if pBar != nil {
			pBar.Add(1)
		}
	}
	return r, nil
}

// newExecution creates an execution of the demo model with the input of index ii bound.
func newExecution(compilation *execution.Compilation, batch, ii int) (*execution.Execution, []byte, error) {
	e := compilation.NewExecution()
	input := make([]float32, batch*featureSize)
	for jj := range input {
		input[jj] = float32((ii+jj)%7 - 3)
	}
	if err := e.SetInput(0, nil, buffers.FromFlat(input)); err != nil {
		return nil, nil, err
	}
	output := buffers.Alloc[float32](batch * featureSize)
	if err := e.SetOutput(0, nil, output); err != nil {
		return nil, nil, err
	}
	if *flagMeasure {
		if err := e.SetMeasureTiming(true); err != nil {
			return nil, nil, err
		}
	}
	return e, output, nil
}
