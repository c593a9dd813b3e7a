package bist

import (
	"bytes"

	"github.com/socforge/socforge/crg"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/tracing"
)

// Checker reads the sequence's addresses back and counts words that do not
// match the address-keyed pattern. A mismatch never stops the run.
type Checker struct {
	*sim.TickingComponent

	memPort sim.Port
	peer    sim.RemotePort
	reset   *crg.Reset

	base    uint64
	length  uint64
	random  bool
	seed    uint32
	timeout int

	run        run
	errorCount uint64
}

// MemPort returns the port that issues memory transactions.
func (c *Checker) MemPort() sim.Port {
	return c.memPort
}

// SetPeer points the memory port at the port of the resource it exercises.
func (c *Checker) SetPeer(r sim.RemotePort) {
	c.peer = r
}

// SetBase sets the first address of the next run.
func (c *Checker) SetBase(addr uint64) {
	c.base = addr
}

// SetLength sets the word count of the next run.
func (c *Checker) SetLength(n uint64) {
	c.length = n
}

// Reset clears the run state and the error counter. The configured base and
// length stay.
func (c *Checker) Reset() {
	c.run = run{}
	c.errorCount = 0
}

// Shoot arms a run with the current base and length.
func (c *Checker) Shoot() {
	c.run = makeRun(Sequence{
		Base:   c.base,
		Length: c.length,
		Random: c.random,
		Seed:   c.seed,
	})

	if c.run.seq.Length == 0 {
		c.run.done = true
		return
	}

	c.run.armed = true
	c.TickLater()
}

// Done reports whether the run has finished, cleanly or by timeout.
func (c *Checker) Done() bool {
	return c.run.done
}

// TimedOut reports whether the run failed with a transaction outstanding
// longer than the timeout.
func (c *Checker) TimedOut() bool {
	return c.run.timedOut
}

// Progress returns the number of issued and completed words.
func (c *Checker) Progress() (issued, completed uint64) {
	return c.run.issued, c.run.completed
}

// ErrorCount returns the number of mismatched words.
func (c *Checker) ErrorCount() uint64 {
	return c.errorCount
}

// Func resumes the checker when its clock domain comes out of reset.
func (c *Checker) Func(ctx sim.HookCtx) {
	if ctx.Pos != crg.HookPosDomainState || c.reset == nil {
		return
	}

	trans := ctx.Item.(crg.Transition)
	if trans.Domain == c.reset.Domain() && trans.State.Released {
		c.TickLater()
	}
}

// Tick collects one read response and issues the next read.
func (c *Checker) Tick() bool {
	if c.reset != nil && !c.reset.Released() {
		return false
	}

	madeProgress := c.collect()
	madeProgress = c.issue() || madeProgress
	madeProgress = c.run.countWait(c.timeout) || madeProgress

	return madeProgress
}

func (c *Checker) collect() bool {
	item := c.memPort.PeekIncoming()
	if item == nil {
		return false
	}

	rsp := item.(*mem.DataReadyRsp)
	c.memPort.RetrieveIncoming()

	if rsp.RespondTo != c.run.outstanding {
		return true
	}

	expected := c.run.seq.DataAt(c.run.pendingAddr)
	if !bytes.Equal(rsp.Data, expected) {
		c.errorCount++
	}

	tracing.TraceReqFinalize(c.run.pendingReq, c)
	c.run.wordCompleted()

	return true
}

func (c *Checker) issue() bool {
	if !c.run.armed || c.run.outstanding != "" {
		return false
	}

	if !c.run.stageNext() {
		return false
	}

	req := mem.ReadReqBuilder{}.
		WithSrc(c.memPort.AsRemote()).
		WithDst(c.peer).
		WithAddress(c.run.nextAddr).
		WithByteSize(wordBytes).
		Build()
	if err := c.memPort.Send(req); err != nil {
		return false
	}

	tracing.TraceReqInitiate(req, c, "")
	c.run.haveNext = false
	c.run.outstanding = req.ID
	c.run.pendingReq = req
	c.run.pendingAddr = req.Address
	c.run.waitTicks = 0
	c.run.issued++

	return true
}

// CheckerBuilder can build self-test checkers.
type CheckerBuilder struct {
	engine  sim.Engine
	freq    sim.Freq
	random  bool
	seed    uint32
	timeout int
	reset   *crg.Reset
}

// MakeCheckerBuilder returns a builder with default parameters.
func MakeCheckerBuilder() CheckerBuilder {
	return CheckerBuilder{
		freq:    100 * sim.MHz,
		timeout: 1024,
	}
}

// WithEngine sets the engine that drives the checker.
func (b CheckerBuilder) WithEngine(engine sim.Engine) CheckerBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the checker.
func (b CheckerBuilder) WithFreq(freq sim.Freq) CheckerBuilder {
	b.freq = freq
	return b
}

// WithRandom selects pseudo-random addressing.
func (b CheckerBuilder) WithRandom(random bool) CheckerBuilder {
	b.random = random
	return b
}

// WithSeed sets the pattern seed.
func (b CheckerBuilder) WithSeed(seed uint32) CheckerBuilder {
	b.seed = seed
	return b
}

// WithTimeout sets how many cycles a transaction may stay outstanding.
func (b CheckerBuilder) WithTimeout(cycles int) CheckerBuilder {
	b.timeout = cycles
	return b
}

// WithReset gates the checker on a clock domain's reset release.
func (b CheckerBuilder) WithReset(reset *crg.Reset) CheckerBuilder {
	b.reset = reset
	return b
}

// Build creates a checker with the given name.
func (b CheckerBuilder) Build(name string) *Checker {
	c := &Checker{
		random:  b.random,
		seed:    b.seed,
		timeout: b.timeout,
		reset:   b.reset,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.memPort = sim.NewPort(c, 4, 4, name+".Mem")
	c.AddPort("Mem", c.memPort)

	return c
}
