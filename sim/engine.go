package sim

// A TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// An EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	Hookable
	EventScheduler
	TimeTeller

	// Run processes all the events until the simulation finishes. Running an
	// engine again after it returns continues the simulation with the events
	// scheduled in the meantime.
	Run() error

	// Pause prevents the engine from processing the next event. Events can
	// still be scheduled while paused.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// Finished marks the end of the simulation and runs all the registered
	// simulation-end handlers.
	Finished()

	// RegisterSimulationEndHandler registers a handler that runs when the
	// simulation ends.
	RegisterSimulationEndHandler(handler SimulationEndHandler)
}

// A SimulationEndHandler performs actions at the end of the simulation.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// HookPosBeforeEvent is the hook position that triggers before handling an
// event.
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is the hook position that triggers after handling an
// event.
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// HookPosSimulationEnd is a hook position that triggers when the simulation
// ends.
var HookPosSimulationEnd = &HookPos{Name: "SimulationEnd"}
