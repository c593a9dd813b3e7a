package ethmac

import (
	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

// Builder can build MACs.
type Builder struct {
	engine   sim.Engine
	freq     sim.Freq
	latency  int
	region   csr.Region
	csrIndex int
	irqLine  int
}

// MakeBuilder returns a builder with default parameters matching the
// conventional MAC allocation.
func MakeBuilder() Builder {
	return Builder{
		freq:    100 * sim.MHz,
		latency: 1,
		region: csr.Region{
			Base:   0x30000000,
			Size:   BufferSize,
			Shadow: 0xb0000000,
		},
		csrIndex: 31,
		irqLine:  2,
	}
}

// WithEngine sets the engine that drives the MAC.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the bus side of the MAC.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithRegion sets the address window of the buffer SRAM.
func (b Builder) WithRegion(region csr.Region) Builder {
	b.region = region
	return b
}

// WithCSRIndex sets the control register index of the MAC.
func (b Builder) WithCSRIndex(index int) Builder {
	b.csrIndex = index
	return b
}

// WithIRQLine sets the interrupt line of the MAC.
func (b Builder) WithIRQLine(line int) Builder {
	b.irqLine = line
	return b
}

// Build creates a MAC with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		latency:  b.latency,
		region:   b.region,
		csrIndex: b.csrIndex,
		irqLine:  b.irqLine,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.storage = mem.NewStorage(b.region.Size)

	c.topPort = sim.NewPort(c, 4, 4, name+".Top")
	c.AddPort("Top", c.topPort)

	return c
}
