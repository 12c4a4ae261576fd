package execution

import (
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/runtime/plan"
	"k8s.io/klog/v2"
)

// walk runs the steps of the plan in order and delivers the result to completion.
//
// If allowFallback is set, a step failing on its device is re-run once on the software device, and if
// that fails too, the whole model is re-run there. OutputInsufficientSize is never retried.
func (e *Execution) walk(controller *plan.Controller, allowFallback bool, completion *Completion) {
	p := e.compilation.plan
	outputShapes := e.initialOutputShapes()
	timing := status.NoTiming
	for {
		step, err := p.Next(controller)
		if err != nil {
			klog.Errorf("%s: %+v", e, err)
			if allowFallback {
				e.fallbackFull(completion)
			} else {
				completion.notify(Result{Status: status.FromError(err), Timing: status.NoTiming})
			}
			return
		}
		if step == nil {
			klog.V(1).Infof("%s: all steps done", e)
			completion.notify(Result{Status: status.None, OutputShapes: outputShapes, Timing: timing})
			return
		}

		executor, err := e.newStepExecutor(step, controller, outputShapes)
		var result Result
		if err == nil {
			result, err = executor.start(controller.Burst())
		}
		if err != nil {
			klog.Warningf("%s: %v", e, err)
			if allowFallback {
				if e.fallbackPartial(controller, outputShapes, completion) {
					continue
				}
				return
			}
			completion.notify(Result{Status: status.FromError(err), Timing: status.NoTiming})
			return
		}

		st := result.Status
		if err := executor.updateOutputShapes(result.OutputShapes, outputShapes); err != nil {
			klog.Errorf("%s: %+v", e, err)
			st = status.GeneralFailure
		}
		if st == status.None {
			timing = result.Timing
			continue
		}
		if allowFallback && st != status.OutputInsufficientSize {
			if e.fallbackPartial(controller, outputShapes, completion) {
				continue
			}
			return
		}
		if st == status.OutputInsufficientSize {
			completion.notify(Result{Status: st, OutputShapes: outputShapes, Timing: status.NoTiming})
		} else {
			completion.notify(Result{Status: st, Timing: status.NoTiming})
		}
		return
	}
}

// fallbackPartial re-runs the step last returned by the controller on the software device.
//
// It returns true if the step succeeded and the walk can continue. Otherwise it has delivered the
// result to completion, running the whole model on the software device if needed.
func (e *Execution) fallbackPartial(controller *plan.Controller, outputShapes []status.OutputShape,
	completion *Completion) bool {
	p := e.compilation.plan
	step, err := p.Fallback(controller)
	if err != nil {
		klog.Errorf("%s: %+v", e, err)
		e.fallbackFull(completion)
		return false
	}
	executor, err := e.newStepExecutor(step, controller, outputShapes)
	if err != nil {
		klog.Errorf("%s: %+v", e, err)
		e.fallbackFull(completion)
		return false
	}
	if executor.isSoftware() {
		// Already failed on the software device: retrying the step there won't help.
		e.fallbackFull(completion)
		return false
	}
	klog.Warningf("%s: re-running %s on software device %q", e, executor, e.compilation.software.Name())
	result, err := executor.startOnSoftwareFallback()
	if err != nil {
		klog.Warningf("%s: %v", e, err)
		e.fallbackFull(completion)
		return false
	}

	st := result.Status
	if err := executor.updateOutputShapes(result.OutputShapes, outputShapes); err != nil {
		klog.Errorf("%s: %+v", e, err)
		st = status.GeneralFailure
	}
	if st == status.None {
		return true
	}
	if p.IsTrivial() || st == status.OutputInsufficientSize {
		completion.notify(Result{Status: st, OutputShapes: outputShapes, Timing: status.NoTiming})
	} else {
		e.fallbackFull(completion)
	}
	return false
}

// fallbackFull runs the whole model on the software device, with the execution arguments, and
// delivers its result to completion.
func (e *Execution) fallbackFull(completion *Completion) {
	software := e.compilation.software
	klog.Warningf("%s: re-running the whole model on software device %q", e, software.Name())
	executor := e.newTrivialExecutor(software, nil)
	result, err := executor.startOnSoftwareFallback()
	if err != nil {
		klog.Errorf("%s: %v", e, err)
		completion.notify(Result{Status: status.FromError(err), Timing: status.NoTiming})
		return
	}
	completion.notify(result)
}
