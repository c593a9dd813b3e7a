package crg

import (
	"fmt"

	"github.com/socforge/socforge/sim"
)

// Builder can build clock/reset sequencers.
type Builder struct {
	engine  sim.Engine
	source  Source
	domains []Domain
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{}
}

// WithEngine sets the engine that drives the per-domain tickers.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithSource sets the source that domains use unless they declare their own.
func (b Builder) WithSource(source Source) Builder {
	b.source = source
	return b
}

// AddDomain declares one more clock domain.
func (b Builder) AddDomain(d Domain) Builder {
	domains := make([]Domain, len(b.domains), len(b.domains)+1)
	copy(domains, b.domains)
	b.domains = append(domains, d)

	return b
}

// Build creates the sequencer and starts the ticker of every countdown
// domain.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		name:    name,
		domains: make(map[string]*domainState),
	}

	for i, def := range b.domains {
		b.domainMustBeValid(def)

		if _, ok := c.domains[def.Name]; ok {
			panic(fmt.Sprintf("domain %s is declared twice", def.Name))
		}

		d := &domainState{
			def:    def,
			source: b.sourceFor(def),
		}

		if def.Policy == Countdown {
			d.count = d.initial()
			d.ticker = sim.NewTickingComponent(
				fmt.Sprintf("%s.Domain[%d]", name, i),
				b.engine, def.Freq,
				&domainTicker{comp: c, dom: d})
			d.ticker.TickLater()
		}

		c.domains[def.Name] = d
		c.order = append(c.order, d)
	}

	b.dependenciesMustBeDeclared(c)
	b.observeSources(c)

	return c
}

func (b Builder) sourceFor(def Domain) Source {
	if def.Source != nil {
		return def.Source
	}

	return b.source
}

func (b Builder) domainMustBeValid(def Domain) {
	if def.Name == "" {
		panic("domain name must not be empty")
	}

	if def.Initial < 0 || def.Initial > countdownInitial {
		panic(fmt.Sprintf(
			"domain %s initial value %d does not fit the 4-bit counter",
			def.Name, def.Initial))
	}

	if def.Policy != ResetLess && b.sourceFor(def) == nil {
		panic(fmt.Sprintf("domain %s has no source", def.Name))
	}
}

func (b Builder) dependenciesMustBeDeclared(c *Comp) {
	for _, d := range c.order {
		if d.def.After == "" {
			continue
		}

		if d.def.After == d.def.Name {
			panic(fmt.Sprintf(
				"domain %s depends on itself", d.def.Name))
		}

		if _, ok := c.domains[d.def.After]; !ok {
			panic(fmt.Sprintf(
				"domain %s depends on undeclared domain %s",
				d.def.Name, d.def.After))
		}
	}
}

// observeSources registers the sequencer on every hookable source so that
// lock transitions re-hold and resume the domains without polling.
func (b Builder) observeSources(c *Comp) {
	seen := make(map[Source]bool)

	for _, d := range c.order {
		if d.source == nil || seen[d.source] {
			continue
		}
		seen[d.source] = true

		if h, ok := d.source.(sim.Hookable); ok {
			h.AcceptHook(c)
		}
	}
}
