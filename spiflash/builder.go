package spiflash

import (
	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

// Builder can build flash controllers.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	latency int
	mode    Mode
	region  csr.Region
}

// MakeBuilder returns a builder with default parameters. The default
// window is the conventional 16 MiB flash region with its shadow.
func MakeBuilder() Builder {
	return Builder{
		freq:    100 * sim.MHz,
		latency: 2,
		region: csr.Region{
			Base:   0x20000000,
			Size:   1 << 24,
			Shadow: 0xa0000000,
		},
	}
}

// WithEngine sets the engine that drives the controller.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the controller.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLatency sets the base access latency in cycles, before dummy cycles.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithMode selects the SPI I/O width.
func (b Builder) WithMode(mode Mode) Builder {
	b.mode = mode
	return b
}

// WithRegion sets the address window the flash decodes.
func (b Builder) WithRegion(region csr.Region) Builder {
	b.region = region
	return b
}

// Build creates a flash controller with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		latency: b.latency,
		mode:    b.mode,
		region:  b.region,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.storage = mem.NewStorage(b.region.Size)

	c.topPort = sim.NewPort(c, 4, 4, name+".Top")
	c.AddPort("Top", c.topPort)

	return c
}
