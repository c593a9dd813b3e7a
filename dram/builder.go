package dram

import (
	"fmt"
	"log"

	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

// Builder can build memory controllers.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	latency   int
	capacity  uint64
	storage   *mem.Storage
	converter mem.AddressConverter
	userPorts []string
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:     100 * sim.MHz,
		latency:  10,
		capacity: 1 << 22,
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

// WithLatency sets the access latency in cycles.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithCapacity sets the byte capacity of the array the builder creates.
func (b Builder) WithCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage backs the controller with an existing array instead of a
// newly created one.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// WithAddressOffset removes a region base from incoming addresses before
// they touch the array.
func (b Builder) WithAddressOffset(offset uint64) Builder {
	b.converter = mem.OffsetConverter{Offset: offset}
	return b
}

// WithUserPort adds a port under the given label, bypassing the fabric.
func (b Builder) WithUserPort(label string) Builder {
	b.userPorts = append(b.userPorts[:len(b.userPorts):len(b.userPorts)],
		label)
	return b
}

// Build creates a memory controller with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		latency:   b.latency,
		converter: b.converter,
		userIndex: make(map[string]int),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.storage = b.storage
	if c.storage == nil {
		c.storage = mem.NewStorage(b.capacity)
	}

	c.topPort = sim.NewPort(c, 4, 4, name+".Top")
	c.AddPort("Top", c.topPort)
	c.ports = append(c.ports, c.topPort)

	for i, label := range b.userPorts {
		if _, dup := c.userIndex[label]; dup {
			log.Panicf("user port %q declared twice", label)
		}

		port := sim.NewPort(c, 4, 4, fmt.Sprintf("%s.User[%d]", name, i))
		c.AddPort(label, port)
		c.userIndex[label] = i
		c.userPorts = append(c.userPorts, port)
		c.ports = append(c.ports, port)
	}

	return c
}
