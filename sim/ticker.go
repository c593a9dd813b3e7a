package sim

import (
	"sync"
)

// TickEvent is a generic event that almost all components use to trigger
// their actions.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent.
func MakeTickEvent(t VTimeInSec, handler Handler) TickEvent {
	evt := TickEvent{}
	evt.ID = GetIDGenerator().Generate()
	evt.time = t
	evt.handler = handler
	evt.secondary = false

	return evt
}

// MakeSecondaryTickEvent creates a new TickEvent that is handled after all
// the primary events at the same time.
func MakeSecondaryTickEvent(t VTimeInSec, handler Handler) TickEvent {
	evt := TickEvent{}
	evt.ID = GetIDGenerator().Generate()
	evt.time = t
	evt.handler = handler
	evt.secondary = true

	return evt
}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick() (madeProgress bool)
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Freq    Freq
	Engine  Engine

	secondary    bool
	nextTickTime VTimeInSec
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	freq Freq,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Freq = freq
	ticker.nextTickTime = -1

	return ticker
}

// NewSecondaryTickScheduler creates a scheduler that schedules secondary
// tick events.
func NewSecondaryTickScheduler(
	handler Handler,
	engine Engine,
	freq Freq,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Freq = freq
	ticker.secondary = true
	ticker.nextTickTime = -1

	return ticker
}

// TickNow schedules a tick event at the current tick.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()

	now := t.Engine.CurrentTime()
	time := t.Freq.ThisTick(now)
	t.scheduleLocked(time)

	t.lock.Unlock()
}

// TickLater schedules a tick event at the next tick.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()

	now := t.Engine.CurrentTime()
	time := t.Freq.NextTick(now)
	t.scheduleLocked(time)

	t.lock.Unlock()
}

func (t *TickScheduler) scheduleLocked(time VTimeInSec) {
	if t.nextTickTime >= time {
		return
	}

	t.nextTickTime = time

	var tickEvent TickEvent
	if t.secondary {
		tickEvent = MakeSecondaryTickEvent(time, t.handler)
	} else {
		tickEvent = MakeTickEvent(time, t.handler)
	}

	t.Engine.Schedule(tickEvent)
}

// TickingComponent is a type of component that update states from cycle to
// cycle. A programmer would only need to define the Tick function.
type TickingComponent struct {
	*ComponentBase

	TickScheduler *TickScheduler
	ticker        Ticker
}

// NewTickingComponent creates a new ticking component.
func NewTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.ComponentBase = NewComponentBase(name)
	tc.TickScheduler = NewTickScheduler(tc, engine, freq)
	tc.ticker = ticker

	return tc
}

// NewSecondaryTickingComponent creates a new ticking component that ticks
// with secondary events.
func NewSecondaryTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.ComponentBase = NewComponentBase(name)
	tc.TickScheduler = NewSecondaryTickScheduler(tc, engine, freq)
	tc.ticker = ticker

	return tc
}

// Handle triggers the tick of the owner and schedules the next tick if the
// owner made progress.
func (c *TickingComponent) Handle(e Event) error {
	madeProgress := c.ticker.Tick()
	if madeProgress {
		c.TickScheduler.TickLater()
	}

	return nil
}

// NotifyPortFree triggers the component to start ticking again.
func (c *TickingComponent) NotifyPortFree(_ Port) {
	c.TickScheduler.TickLater()
}

// NotifyRecv triggers the component to start ticking again.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickScheduler.TickLater()
}

// TickLater schedules a tick at the next cycle.
func (c *TickingComponent) TickLater() {
	c.TickScheduler.TickLater()
}

// TickNow schedules a tick in the current cycle.
func (c *TickingComponent) TickNow() {
	c.TickScheduler.TickNow()
}
