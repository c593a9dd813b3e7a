// Package dram provides a fixed-latency, multi-port memory controller model.
package dram

import (
	"log"
	"reflect"

	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/tracing"
)

type respondEvent struct {
	*sim.EventBase

	req  mem.AccessReq
	port sim.Port
}

func newRespondEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req mem.AccessReq,
	port sim.Port,
) *respondEvent {
	return &respondEvent{sim.NewEventBase(time, handler), req, port}
}

// Comp is a memory controller in front of a byte-addressable array. One
// request is granted the array per cycle, picked round-robin over the
// fabric-facing port and the user ports. The response leaves a fixed number
// of cycles later through the port the request arrived on.
type Comp struct {
	*sim.TickingComponent

	topPort   sim.Port
	userPorts []sim.Port
	userIndex map[string]int
	ports     []sim.Port

	storage   *mem.Storage
	converter mem.AddressConverter
	latency   int

	nextPortID int
}

// TopPort returns the fabric-facing port.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// UserPort returns the user port registered under the given label.
func (c *Comp) UserPort(label string) sim.Port {
	id, found := c.userIndex[label]
	if !found {
		log.Panicf("no user port %q on %s", label, c.Name())
	}

	return c.userPorts[id]
}

// Storage returns the backing array.
func (c *Comp) Storage() *mem.Storage {
	return c.storage
}

// Handle either advances the controller by a cycle or completes an access
// whose latency has elapsed.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *respondEvent:
		return c.respond(e)
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick grants the array to at most one waiting request.
func (c *Comp) Tick() bool {
	for i := 0; i < len(c.ports); i++ {
		port := c.ports[(c.nextPortID+i)%len(c.ports)]

		item := port.PeekIncoming()
		if item == nil {
			continue
		}

		req, ok := item.(mem.AccessReq)
		if !ok {
			log.Panicf("cannot handle request of type %s",
				reflect.TypeOf(item))
		}
		port.RetrieveIncoming()
		tracing.TraceReqReceive(req, c)

		c.nextPortID = (c.nextPortID + i + 1) % len(c.ports)

		time := c.Freq.NCyclesLater(c.latency, c.Engine.CurrentTime())
		c.Engine.Schedule(newRespondEvent(time, c, req, port))

		return true
	}

	return false
}

func (c *Comp) respond(e *respondEvent) error {
	switch req := e.req.(type) {
	case *mem.ReadReq:
		return c.respondRead(e, req)
	case *mem.WriteReq:
		return c.respondWrite(e, req)
	default:
		log.Panicf("cannot respond to request of type %s",
			reflect.TypeOf(e.req))
	}

	return nil
}

func (c *Comp) respondRead(e *respondEvent, req *mem.ReadReq) error {
	data, err := c.storage.Read(c.internalAddr(req.Address), req.AccessByteSize)
	if err != nil {
		log.Panic(err)
	}

	rsp := mem.DataReadyRspBuilder{}.
		WithSrc(e.port.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		Build()
	if sendErr := e.port.Send(rsp); sendErr != nil {
		c.retry(e)
		return nil
	}

	tracing.TraceReqComplete(req, c)
	c.TickLater()

	return nil
}

func (c *Comp) respondWrite(e *respondEvent, req *mem.WriteReq) error {
	rsp := mem.WriteDoneRspBuilder{}.
		WithSrc(e.port.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()
	if sendErr := e.port.Send(rsp); sendErr != nil {
		c.retry(e)
		return nil
	}

	c.commitWrite(req)
	tracing.TraceReqComplete(req, c)
	c.TickLater()

	return nil
}

func (c *Comp) commitWrite(req *mem.WriteReq) {
	addr := c.internalAddr(req.Address)

	if req.DirtyMask == nil {
		if err := c.storage.Write(addr, req.Data); err != nil {
			log.Panic(err)
		}
		return
	}

	data, err := c.storage.Read(addr, uint64(len(req.Data)))
	if err != nil {
		log.Panic(err)
	}

	for i := range req.Data {
		if req.DirtyMask[i] {
			data[i] = req.Data[i]
		}
	}

	if err := c.storage.Write(addr, data); err != nil {
		log.Panic(err)
	}
}

func (c *Comp) retry(e *respondEvent) {
	c.Engine.Schedule(newRespondEvent(
		c.Freq.NextTick(e.Time()), c, e.req, e.port))
}

func (c *Comp) internalAddr(external uint64) uint64 {
	if c.converter == nil {
		return external
	}

	return c.converter.ConvertExternalToInternal(external)
}
