// Package spiflash models a memory-mapped serial NOR flash controller.
package spiflash

import (
	"log"
	"reflect"

	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/tracing"
)

// Array geometry of the flash parts the controller is written for.
const (
	PageSize   = 256
	SectorSize = 0x10000
)

// HookPosWriteIgnored marks write requests the flash acknowledged and
// discarded. The hook item is the write request.
var HookPosWriteIgnored = &sim.HookPos{Name: "FlashWriteIgnored"}

// Mode is the SPI I/O width the controller is wired for.
type Mode int

const (
	Mode1x Mode = iota
	Mode4x
)

// DummyCycles returns the turnaround cycles every read pays in this mode.
func (m Mode) DummyCycles() int {
	if m == Mode4x {
		return 11
	}

	return 9
}

type respondEvent struct {
	*sim.EventBase

	req mem.AccessReq
}

func newRespondEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req mem.AccessReq,
) *respondEvent {
	return &respondEvent{sim.NewEventBase(time, handler), req}
}

// Comp is a read-only flash slave. Reads pay the base latency plus the
// mode's dummy cycles. Writes are acknowledged so the bus never stalls,
// but the array is left untouched.
type Comp struct {
	*sim.TickingComponent

	topPort sim.Port
	storage *mem.Storage
	region  csr.Region
	latency int
	mode    Mode
}

// TopPort returns the fabric-facing port.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// Mode returns the configured I/O width.
func (c *Comp) Mode() Mode {
	return c.mode
}

// Program writes the given bytes at an offset from the start of the array.
// It stands in for the out-of-band programming a real part gets.
func (c *Comp) Program(offset uint64, data []byte) error {
	return c.storage.Write(offset, data)
}

// Handle either accepts a request or completes one whose latency elapsed.
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

// Tick accepts at most one request per cycle.
func (c *Comp) Tick() bool {
	item := c.topPort.PeekIncoming()
	if item == nil {
		return false
	}

	req, ok := item.(mem.AccessReq)
	if !ok {
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(item))
	}
	c.topPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, c)

	cycles := c.latency
	if _, isRead := req.(*mem.ReadReq); isRead {
		cycles += c.mode.DummyCycles()
	} else {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosWriteIgnored,
			Item:   req,
		})
	}

	time := c.Freq.NCyclesLater(cycles, c.Engine.CurrentTime())
	c.Engine.Schedule(newRespondEvent(time, c, req))

	return true
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
	data, err := c.storage.Read(c.region.Offset(req.Address),
		req.AccessByteSize)
	if err != nil {
		log.Panic(err)
	}

	rsp := mem.DataReadyRspBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		Build()
	if sendErr := c.topPort.Send(rsp); sendErr != nil {
		c.retry(e)
		return nil
	}

	tracing.TraceReqComplete(req, c)
	c.TickLater()

	return nil
}

func (c *Comp) respondWrite(e *respondEvent, req *mem.WriteReq) error {
	rsp := mem.WriteDoneRspBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()
	if sendErr := c.topPort.Send(rsp); sendErr != nil {
		c.retry(e)
		return nil
	}

	tracing.TraceReqComplete(req, c)
	c.TickLater()

	return nil
}

func (c *Comp) retry(e *respondEvent) {
	c.Engine.Schedule(newRespondEvent(
		c.Freq.NextTick(e.Time()), c, e.req))
}
