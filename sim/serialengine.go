package sim

import (
	"log"
	"sync"
)

// SerialEngine is an Engine that always runs events one after another.
type SerialEngine struct {
	HookableBase

	pauseLock sync.Mutex
	nowLock   sync.RWMutex
	now       VTimeInSec

	paused    bool
	queue     EventQueue
	secondary EventQueue

	simulationEndHandlers []SimulationEndHandler
	finished              bool
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)
	e.queue = NewEventQueue()
	e.secondary = NewEventQueue()
	return e
}

// Schedule registers an event to be processed in the future.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.readNow() {
		log.Panicf(
			"cannot schedule event in the past, evt %.10f, now %.10f",
			evt.Time(), e.readNow())
	}

	if evt.IsSecondary() {
		e.secondary.Push(evt)
		return
	}

	e.queue.Push(evt)
}

// Run processes all the events scheduled in the engine.
func (e *SerialEngine) Run() error {
	for {
		e.pauseLock.Lock()

		evt := e.popNextEvent()
		if evt == nil {
			e.pauseLock.Unlock()
			return nil
		}

		e.writeNow(evt.Time())

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		handler := evt.Handler()
		err := handler.Handle(evt)
		if err != nil {
			e.pauseLock.Unlock()
			return err
		}

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)

		e.pauseLock.Unlock()
	}
}

// popNextEvent returns the event to run next, preferring primary events when
// a primary and a secondary event are scheduled at the same time.
func (e *SerialEngine) popNextEvent() Event {
	if e.queue.Len() == 0 && e.secondary.Len() == 0 {
		return nil
	}

	if e.queue.Len() == 0 {
		return e.secondary.Pop()
	}

	if e.secondary.Len() == 0 {
		return e.queue.Pop()
	}

	if e.queue.Peek().Time() <= e.secondary.Peek().Time() {
		return e.queue.Pop()
	}

	return e.secondary.Pop()
}

// Pause prevents the engine from processing the next event.
func (e *SerialEngine) Pause() {
	if e.paused {
		return
	}
	e.paused = true
	e.pauseLock.Lock()
}

// Continue allows the engine to continue to process events.
func (e *SerialEngine) Continue() {
	if !e.paused {
		return
	}
	e.paused = false
	e.pauseLock.Unlock()
}

// CurrentTime returns the time of the event being processed.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler that is invoked when the
// simulation ends.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished marks the simulation as finished and runs all the registered
// simulation-end handlers. Calling Finished more than once only runs the
// handlers once.
func (e *SerialEngine) Finished() {
	if e.finished {
		return
	}
	e.finished = true

	now := e.readNow()
	for _, handler := range e.simulationEndHandlers {
		handler.Handle(now)
	}

	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosSimulationEnd,
	}
	e.InvokeHook(hookCtx)
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.nowLock.RLock()
	now := e.now
	e.nowLock.RUnlock()
	return now
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.nowLock.Lock()
	if t > e.now {
		e.now = t
	}
	e.nowLock.Unlock()
}
