package sim

import (
	"log"
	"reflect"
)

// EventLogger is a hook that logs the events that are processed by an
// engine. Attach it to an engine to see how the simulation progresses.
type EventLogger struct {
	*log.Logger
}

// NewEventLogger creates a new EventLogger that writes to the given logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes a line for every event that is about to be handled.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	comp, ok := evt.Handler().(Component)
	if ok {
		h.Printf("%.10f, %s, %s",
			evt.Time(), comp.Name(), reflect.TypeOf(evt))
		return
	}

	h.Printf("%.10f, %s", evt.Time(), reflect.TypeOf(evt))
}
