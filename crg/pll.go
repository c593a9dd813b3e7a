package crg

import (
	"github.com/socforge/socforge/sim"
)

// HookPosLockAcquired is invoked on a source when it reaches its lock point.
var HookPosLockAcquired = &sim.HookPos{Name: "Lock Acquired"}

// HookPosLockLost is invoked on a source when an established lock drops.
var HookPosLockLost = &sim.HookPos{Name: "Lock Lost"}

// PLL models a phase-locked loop. It locks a fixed number of its own ticks
// after power-on and re-acquires the lock from scratch after every Drop.
type PLL struct {
	*sim.TickingComponent

	lockLatency int
	progress    int
	locked      bool
}

// Tick advances the lock acquisition by one step.
func (p *PLL) Tick() bool {
	if p.locked {
		return false
	}

	p.progress++
	if p.progress >= p.lockLatency {
		p.locked = true
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Pos:    HookPosLockAcquired,
		})
	}

	return true
}

// Locked reports whether the output clock is stable.
func (p *PLL) Locked() bool {
	return p.locked
}

// Drop removes the lock, modeling a supply glitch or an external reset
// request. Re-acquisition takes the full lock latency again.
func (p *PLL) Drop() {
	wasLocked := p.locked

	p.locked = false
	p.progress = 0

	if wasLocked {
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Pos:    HookPosLockLost,
		})
	}

	p.TickLater()
}

// PLLBuilder can build PLLs.
type PLLBuilder struct {
	engine      sim.Engine
	freq        sim.Freq
	lockLatency int
}

// MakePLLBuilder returns a builder with default parameters.
func MakePLLBuilder() PLLBuilder {
	return PLLBuilder{
		freq:        100 * sim.MHz,
		lockLatency: 8,
	}
}

// WithEngine sets the engine that drives the PLL.
func (b PLLBuilder) WithEngine(engine sim.Engine) PLLBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the reference frequency of the PLL.
func (b PLLBuilder) WithFreq(freq sim.Freq) PLLBuilder {
	b.freq = freq
	return b
}

// WithLockLatency sets how many of its own ticks the PLL needs to lock.
func (b PLLBuilder) WithLockLatency(n int) PLLBuilder {
	b.lockLatency = n
	return b
}

// Build creates a PLL that starts acquiring its lock immediately.
func (b PLLBuilder) Build(name string) *PLL {
	p := &PLL{
		lockLatency: b.lockLatency,
	}
	p.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, p)
	p.TickLater()

	return p
}
