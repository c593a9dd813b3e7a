// Package crg brings clock domains out of reset in dependency order and
// re-holds them when their stability source drops.
//
// Countdown domains hold their reset for a fixed number of their own clock
// steps after the source locks, then release it synchronously. Async domains
// follow the inverted lock signal with no counting state. ResetLess domains
// carry no reset at all.
package crg

import (
	"fmt"

	"github.com/socforge/socforge/sim"
)

// HookPosDomainState is invoked on the sequencer whenever a domain changes
// state. The item is a Transition.
var HookPosDomainState = &sim.HookPos{Name: "Domain State"}

// A Source reports whether the clock it produces is stable.
type Source interface {
	Locked() bool
}

// Policy selects how a domain's reset is driven.
type Policy int

const (
	// Countdown holds the reset for a fixed number of the domain's own
	// steps after the source locks.
	Countdown Policy = iota

	// Async asserts the reset exactly while the source is unlocked.
	Async

	// ResetLess domains carry no reset and are always usable.
	ResetLess
)

// countdownInitial is the full value of the 4-bit hold counter.
const countdownInitial = 15

// A Domain declares one clock domain.
type Domain struct {
	Name   string
	Freq   sim.Freq
	Policy Policy

	// Source overrides the sequencer-wide source for this domain.
	Source Source

	// After names a domain whose release gates this domain's countdown
	// start.
	After string

	// Initial is the countdown start value, 1 to 15. Zero selects the
	// default of 15.
	Initial int
}

// State is where a domain currently is in its reset sequence.
type State struct {
	Released bool

	// Count is the number of hold steps remaining. It is zero once the
	// domain is released and for domains that do not count.
	Count int
}

func (s State) String() string {
	if s.Released {
		return "Released"
	}

	return fmt.Sprintf("Holding(%d)", s.Count)
}

// A Transition reports one domain state change.
type Transition struct {
	Domain string
	State  State
}

// A Reset is handed to the components of a domain. A component must not make
// progress while its reset is not released.
type Reset struct {
	comp *Comp
	name string
}

// Released reports whether the domain is out of reset.
func (r *Reset) Released() bool {
	return r.comp.Usable(r.name)
}

// Domain returns the name of the domain the handle tracks.
func (r *Reset) Domain() string {
	return r.name
}

// Comp is the clock/reset sequencer. It owns one internal ticking component
// per countdown domain and steps that domain's hold counter at the domain's
// own frequency. Lock loss asserts resets immediately; release is always
// synchronous to the domain's steps.
type Comp struct {
	sim.HookableBase

	name    string
	domains map[string]*domainState
	order   []*domainState
}

type domainState struct {
	def    Domain
	source Source
	ticker *sim.TickingComponent

	count    int
	released bool
}

func (d *domainState) initial() int {
	if d.def.Initial == 0 {
		return countdownInitial
	}

	return d.def.Initial
}

// domainTicker steps one countdown domain.
type domainTicker struct {
	comp *Comp
	dom  *domainState
}

func (t *domainTicker) Tick() bool {
	return t.comp.stepDomain(t.dom)
}

// Name returns the name of the sequencer.
func (c *Comp) Name() string {
	return c.name
}

// Domains returns the domain names in declaration order.
func (c *Comp) Domains() []string {
	names := make([]string, len(c.order))
	for i, d := range c.order {
		names[i] = d.def.Name
	}

	return names
}

// State returns the reset state of a domain. A lost lock shows as held
// immediately, before the domain's next step.
func (c *Comp) State(name string) State {
	d := c.domainMustExist(name)

	switch d.def.Policy {
	case ResetLess:
		return State{Released: true}
	case Async:
		return State{Released: d.source.Locked()}
	}

	if !d.source.Locked() {
		return State{Count: d.initial()}
	}

	if d.released {
		return State{Released: true}
	}

	return State{Count: d.count}
}

// Usable reports whether components in the domain may make progress.
func (c *Comp) Usable(name string) bool {
	return c.State(name).Released
}

// Reset returns the reset handle of a domain.
func (c *Comp) Reset(name string) *Reset {
	c.domainMustExist(name)

	return &Reset{comp: c, name: name}
}

// Func observes the domain sources. A lost lock re-holds every countdown
// domain fed by that source. A fresh lock resumes their counting.
func (c *Comp) Func(ctx sim.HookCtx) {
	src, ok := ctx.Domain.(Source)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosLockLost:
		for _, d := range c.order {
			if d.source == src && d.def.Policy == Countdown {
				c.reHold(d)
			}
		}
	case HookPosLockAcquired:
		for _, d := range c.order {
			if d.source == src && d.ticker != nil {
				d.ticker.TickLater()
			}
		}
	}
}

func (c *Comp) domainMustExist(name string) *domainState {
	d, ok := c.domains[name]
	if !ok {
		panic(fmt.Sprintf("domain %s is not declared", name))
	}

	return d
}

func (c *Comp) stepDomain(d *domainState) bool {
	if !d.source.Locked() {
		return c.reHold(d)
	}

	if d.released {
		return false
	}

	if d.def.After != "" && !c.State(d.def.After).Released {
		return false
	}

	if d.count > 0 {
		d.count--
		c.invokeTransition(d)

		return true
	}

	d.released = true
	c.invokeTransition(d)
	c.wakeDependents(d.def.Name)

	return true
}

func (c *Comp) reHold(d *domainState) bool {
	if !d.released && d.count == d.initial() {
		return false
	}

	d.released = false
	d.count = d.initial()
	c.invokeTransition(d)

	return true
}

func (c *Comp) invokeTransition(d *domainState) {
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosDomainState,
		Item: Transition{
			Domain: d.def.Name,
			State:  c.State(d.def.Name),
		},
	})
}

func (c *Comp) wakeDependents(name string) {
	for _, d := range c.order {
		if d.def.After == name && d.ticker != nil {
			d.ticker.TickLater()
		}
	}
}
