package plan

import (
	"sync/atomic"

	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/backends"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/memory"
	"github.com/Project-PixelStar/packages-modules-NeuralNetworks/pkg/core/status"
	"github.com/pkg/errors"
)

// Controller holds the state of one walk over a Plan.
type Controller struct {
	plan *Plan

	// next is the index of the step Next returns, last the index of the step it returned before (-1 if none).
	next, last int

	temporaries *memory.HostPool
	bursts      *Bursts
}

// MakeController creates the Controller for one execution of the plan.
// bursts is optional, and if given must have been created by this plan.
func (p *Plan) MakeController(bursts *Bursts) (*Controller, error) {
	if bursts != nil && bursts.plan != p {
		return nil, errors.Wrapf(status.ErrBadData, "bursts were created for a different plan than %s", p)
	}
	c := &Controller{plan: p, last: -1, bursts: bursts}
	if p.tempSize > 0 {
		c.temporaries = memory.NewHostPool(p.tempSize)
	}
	return c, nil
}

// Next returns the next step to run, or nil when all steps have run.
func (p *Plan) Next(c *Controller) (*Step, error) {
	if c.plan != p {
		return nil, errors.Errorf("controller was created for a different plan than %s", p)
	}
	if c.next >= len(p.steps) {
		c.last = -1
		return nil, nil
	}
	c.last = c.next
	c.next++
	return p.steps[c.last], nil
}

// Fallback returns the step last returned by Next, to be re-run on another device.
// The walk then continues with the step after it.
func (p *Plan) Fallback(c *Controller) (*Step, error) {
	if c.plan != p {
		return nil, errors.Errorf("controller was created for a different plan than %s", p)
	}
	if c.last < 0 {
		return nil, errors.Errorf("no step to fall back from in %s", p)
	}
	return p.steps[c.last], nil
}

// Plan walked by the controller.
func (c *Controller) Plan() *Plan { return c.plan }

// Temporaries returns the pool holding the temporaries of this walk, or nil if the plan has none.
func (c *Controller) Temporaries() *memory.HostPool { return c.temporaries }

// Burst returns the burst for the step last returned by Next, or nil if the walk has no bursts.
func (c *Controller) Burst() *backends.Burst {
	if c.bursts == nil || c.last < 0 {
		return nil
	}
	return c.bursts.bursts[c.last]
}

// Bursts holds one backends.Burst per step of a plan, for a sequence of executions of the same
// compiled model issued one at a time.
type Bursts struct {
	plan   *Plan
	bursts []*backends.Burst
	busy   atomic.Bool
}

// NewBursts creates the bursts for the steps of the plan.
func (p *Plan) NewBursts() *Bursts {
	b := &Bursts{plan: p, bursts: make([]*backends.Burst, len(p.steps))}
	for ii, step := range p.steps {
		b.bursts[ii] = backends.NewBurst(step.Program)
	}
	return b
}

// Acquire marks the bursts as in use by one execution.
// It fails with status.ErrInvalidState if another execution is using them.
func (b *Bursts) Acquire() error {
	if !b.busy.CompareAndSwap(false, true) {
		return errors.Wrap(status.ErrInvalidState, "bursts are in use by another execution")
	}
	return nil
}

// Release the bursts acquired with Acquire.
func (b *Bursts) Release() {
	b.busy.Store(false)
}

// Step returns the burst of step i.
func (b *Bursts) Step(i int) *backends.Burst {
	return b.bursts[i]
}
