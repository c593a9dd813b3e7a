// Package tracing records what components work on and for how long. Tasks
// are announced through the hook system, so a component pays nothing when no
// tracer is attached to it.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/socforge/socforge/sim"
)

// NamedHookable is anything with a name that can announce tasks.
type NamedHookable interface {
	sim.Named
	sim.Hookable
	InvokeHook(sim.HookCtx)
	NumHooks() int
}

// Hook positions for task announcements.
var (
	HookPosTaskStart = &sim.HookPos{Name: "TaskStart"}
	HookPosTaskStep  = &sim.HookPos{Name: "TaskStep"}
	HookPosTaskEnd   = &sim.HookPos{Name: "TaskEnd"}
)

// StartTask announces the start of a task to the domain's hooks.
func StartTask(
	id string,
	parentID string,
	domain NamedHookable,
	kind string,
	what string,
	detail any,
) {
	if domain.NumHooks() == 0 {
		return
	}

	taskFieldsMustBeSet(id, domain, kind, what)

	task := Task{
		ID:       id,
		ParentID: parentID,
		Kind:     kind,
		What:     what,
		Where:    domain.Name(),
		Detail:   detail,
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStart,
		Item:   task,
	})
}

// AddTaskStep announces a milestone in the processing of a task.
func AddTaskStep(id string, domain NamedHookable, what string) {
	if domain.NumHooks() == 0 {
		return
	}

	task := Task{
		ID:    id,
		Steps: []TaskStep{{What: what}},
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStep,
		Item:   task,
	})
}

// EndTask announces the end of a task.
func EndTask(id string, domain NamedHookable) {
	if domain.NumHooks() == 0 {
		return
	}

	task := Task{ID: id}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskEnd,
		Item:   task,
	})
}

func taskFieldsMustBeSet(
	id string,
	domain NamedHookable,
	kind string,
	what string,
) {
	if id == "" {
		panic("task id must not be empty")
	}

	if kind == "" {
		panic("task kind must not be empty")
	}

	if what == "" {
		panic("task what must not be empty")
	}

	if domain.Name() == "" {
		panic("domain must have a name")
	}
}

// MsgIDAtReceiver is the canonical ID of the task that handles a message at
// its receiver.
func MsgIDAtReceiver(msg sim.Msg, domain NamedHookable) string {
	return fmt.Sprintf("%s@%s", msg.Meta().ID, domain.Name())
}

// TraceReqInitiate announces a "req_out" task on the sender of a request.
// It returns the task ID, which also parents the receiver-side task.
func TraceReqInitiate(
	msg sim.Msg,
	domain NamedHookable,
	taskParentID string,
) string {
	taskID := msg.Meta().ID + "_req_out"
	StartTask(taskID, taskParentID, domain,
		"req_out", reflect.TypeOf(msg).String(), msg)

	return taskID
}

// TraceReqReceive announces a "req_in" task on the receiver of a request.
func TraceReqReceive(msg sim.Msg, domain NamedHookable) {
	StartTask(MsgIDAtReceiver(msg, domain), msg.Meta().ID+"_req_out",
		domain, "req_in", reflect.TypeOf(msg).String(), msg)
}

// TraceReqComplete ends the receiver-side task of a request.
func TraceReqComplete(msg sim.Msg, domain NamedHookable) {
	EndTask(MsgIDAtReceiver(msg, domain), domain)
}

// TraceReqFinalize ends the sender-side task of a request. It is called
// when the sender collects the response.
func TraceReqFinalize(msg sim.Msg, domain NamedHookable) {
	EndTask(msg.Meta().ID+"_req_out", domain)
}
