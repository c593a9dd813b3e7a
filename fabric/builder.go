package fabric

import (
	"github.com/socforge/socforge/sim"
)

// Builder can build bus fabrics.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	arbitration Arbitration
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:        100 * sim.MHz,
		arbitration: RoundRobin,
	}
}

// WithEngine sets the engine that drives the fabric.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the fabric.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithArbitration sets how the fabric picks among competing masters.
func (b Builder) WithArbitration(arbitration Arbitration) Builder {
	b.arbitration = arbitration
	return b
}

// Build creates a fabric with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		arbitration: b.arbitration,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}
