package bist

import (
	"github.com/socforge/socforge/crg"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/tracing"
)

// run tracks one armed self-test pass. One transaction is in flight at a
// time; the wait counter drives the timeout while a response is pending.
type run struct {
	seq   Sequence
	addrs *AddrStream

	nextAddr uint64
	haveNext bool

	outstanding string
	pendingReq  sim.Msg
	pendingAddr uint64
	waitTicks   int

	issued    uint64
	completed uint64

	armed    bool
	done     bool
	timedOut bool
}

func makeRun(seq Sequence) run {
	return run{
		seq:   seq,
		addrs: seq.Addresses(),
	}
}

func (r *run) stageNext() bool {
	if r.haveNext {
		return true
	}

	addr, ok := r.addrs.Next()
	if !ok {
		return false
	}

	r.nextAddr = addr
	r.haveNext = true

	return true
}

func (r *run) countWait(timeout int) bool {
	if r.outstanding == "" {
		return false
	}

	r.waitTicks++
	if r.waitTicks > timeout {
		r.timedOut = true
		r.armed = false
		r.done = true
		r.outstanding = ""
		r.pendingReq = nil
	}

	return true
}

func (r *run) wordCompleted() {
	r.outstanding = ""
	r.pendingReq = nil
	r.waitTicks = 0
	r.completed++

	if r.completed == r.seq.Length {
		r.armed = false
		r.done = true
	}
}

// Generator fills the sequence's addresses with the address-keyed pattern.
type Generator struct {
	*sim.TickingComponent

	memPort sim.Port
	peer    sim.RemotePort
	reset   *crg.Reset

	base    uint64
	length  uint64
	random  bool
	seed    uint32
	timeout int

	run run
}

// MemPort returns the port that issues memory transactions.
func (g *Generator) MemPort() sim.Port {
	return g.memPort
}

// SetPeer points the memory port at the port of the resource it exercises.
func (g *Generator) SetPeer(r sim.RemotePort) {
	g.peer = r
}

// SetBase sets the first address of the next run.
func (g *Generator) SetBase(addr uint64) {
	g.base = addr
}

// SetLength sets the word count of the next run.
func (g *Generator) SetLength(n uint64) {
	g.length = n
}

// Reset clears the run state. The configured base and length stay.
func (g *Generator) Reset() {
	g.run = run{}
}

// Shoot arms a run with the current base and length.
func (g *Generator) Shoot() {
	g.run = makeRun(Sequence{
		Base:   g.base,
		Length: g.length,
		Random: g.random,
		Seed:   g.seed,
	})

	if g.run.seq.Length == 0 {
		g.run.done = true
		return
	}

	g.run.armed = true
	g.TickLater()
}

// Done reports whether the run has finished, cleanly or by timeout.
func (g *Generator) Done() bool {
	return g.run.done
}

// TimedOut reports whether the run failed with a transaction outstanding
// longer than the timeout.
func (g *Generator) TimedOut() bool {
	return g.run.timedOut
}

// Progress returns the number of issued and completed words.
func (g *Generator) Progress() (issued, completed uint64) {
	return g.run.issued, g.run.completed
}

// Func resumes the generator when its clock domain comes out of reset.
func (g *Generator) Func(ctx sim.HookCtx) {
	if ctx.Pos != crg.HookPosDomainState || g.reset == nil {
		return
	}

	trans := ctx.Item.(crg.Transition)
	if trans.Domain == g.reset.Domain() && trans.State.Released {
		g.TickLater()
	}
}

// Tick collects one completion and issues the next write.
func (g *Generator) Tick() bool {
	if g.reset != nil && !g.reset.Released() {
		return false
	}

	madeProgress := g.collect()
	madeProgress = g.issue() || madeProgress
	madeProgress = g.run.countWait(g.timeout) || madeProgress

	return madeProgress
}

func (g *Generator) collect() bool {
	item := g.memPort.PeekIncoming()
	if item == nil {
		return false
	}

	rsp := item.(*mem.WriteDoneRsp)
	g.memPort.RetrieveIncoming()

	if rsp.RespondTo != g.run.outstanding {
		return true
	}

	tracing.TraceReqFinalize(g.run.pendingReq, g)
	g.run.wordCompleted()

	return true
}

func (g *Generator) issue() bool {
	if !g.run.armed || g.run.outstanding != "" {
		return false
	}

	if !g.run.stageNext() {
		return false
	}

	req := mem.WriteReqBuilder{}.
		WithSrc(g.memPort.AsRemote()).
		WithDst(g.peer).
		WithAddress(g.run.nextAddr).
		WithData(g.run.seq.DataAt(g.run.nextAddr)).
		Build()
	if err := g.memPort.Send(req); err != nil {
		return false
	}

	tracing.TraceReqInitiate(req, g, "")
	g.run.haveNext = false
	g.run.outstanding = req.ID
	g.run.pendingReq = req
	g.run.pendingAddr = req.Address
	g.run.waitTicks = 0
	g.run.issued++

	return true
}

// GeneratorBuilder can build self-test generators.
type GeneratorBuilder struct {
	engine  sim.Engine
	freq    sim.Freq
	random  bool
	seed    uint32
	timeout int
	reset   *crg.Reset
}

// MakeGeneratorBuilder returns a builder with default parameters.
func MakeGeneratorBuilder() GeneratorBuilder {
	return GeneratorBuilder{
		freq:    100 * sim.MHz,
		timeout: 1024,
	}
}

// WithEngine sets the engine that drives the generator.
func (b GeneratorBuilder) WithEngine(engine sim.Engine) GeneratorBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the generator.
func (b GeneratorBuilder) WithFreq(freq sim.Freq) GeneratorBuilder {
	b.freq = freq
	return b
}

// WithRandom selects pseudo-random addressing.
func (b GeneratorBuilder) WithRandom(random bool) GeneratorBuilder {
	b.random = random
	return b
}

// WithSeed sets the pattern seed.
func (b GeneratorBuilder) WithSeed(seed uint32) GeneratorBuilder {
	b.seed = seed
	return b
}

// WithTimeout sets how many cycles a transaction may stay outstanding.
func (b GeneratorBuilder) WithTimeout(cycles int) GeneratorBuilder {
	b.timeout = cycles
	return b
}

// WithReset gates the generator on a clock domain's reset release.
func (b GeneratorBuilder) WithReset(reset *crg.Reset) GeneratorBuilder {
	b.reset = reset
	return b
}

// Build creates a generator with the given name.
func (b GeneratorBuilder) Build(name string) *Generator {
	g := &Generator{
		random:  b.random,
		seed:    b.seed,
		timeout: b.timeout,
		reset:   b.reset,
	}
	g.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, g)

	g.memPort = sim.NewPort(g, 4, 4, name+".Mem")
	g.AddPort("Mem", g.memPort)

	return g
}
