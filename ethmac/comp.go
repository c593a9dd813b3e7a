// Package ethmac models a buffer-backed Ethernet MAC slave. Frames move
// between the wire and a small SRAM split into receive and transmit slots;
// the CPU reaches the slots through the bus. There is no real networking:
// the wire side is frame injection and extraction for tests and tools.
package ethmac

import (
	"log"
	"reflect"

	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/tracing"
)

// Buffer geometry. Receive slots sit at the bottom of the buffer, transmit
// slots right after them.
const (
	BufferSize = 0x2000
	SlotSize   = 0x800
	RxSlots    = 2
	TxSlots    = 2
)

var (
	// HookPosFrameReceived marks a frame landing in a receive slot. The
	// hook item is the Frame.
	HookPosFrameReceived = &sim.HookPos{Name: "EthFrameReceived"}

	// HookPosFrameSent marks a frame leaving a transmit slot. The hook
	// item is the Frame.
	HookPosFrameSent = &sim.HookPos{Name: "EthFrameSent"}
)

// A Frame is a raw Ethernet frame and the slot it occupies.
type Frame struct {
	Slot   int
	Length int
	Data   []byte
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

// Comp is the MAC. The interrupt line is high while any receive slot holds
// a frame the CPU has not acknowledged.
type Comp struct {
	*sim.TickingComponent

	topPort sim.Port
	storage *mem.Storage
	region  csr.Region
	latency int

	csrIndex int
	irqLine  int

	rxBusy  [RxSlots]bool
	rxLen   [RxSlots]int
	rxQueue []int

	txOutbox []Frame
}

// TopPort returns the fabric-facing port.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// CSRIndex returns the control register index of the MAC.
func (c *Comp) CSRIndex() int {
	return c.csrIndex
}

// IRQLine returns the interrupt line of the MAC.
func (c *Comp) IRQLine() int {
	return c.irqLine
}

// IRQ reports whether a received frame is waiting for the CPU.
func (c *Comp) IRQ() bool {
	return len(c.rxQueue) > 0
}

// InjectFrame places a frame from the wire into a free receive slot. It
// reports the slot taken, or false when every slot is busy or the frame
// does not fit; the MAC drops such frames.
func (c *Comp) InjectFrame(data []byte) (int, bool) {
	if len(data) > SlotSize {
		return 0, false
	}

	slot := -1
	for s := 0; s < RxSlots; s++ {
		if !c.rxBusy[s] {
			slot = s
			break
		}
	}
	if slot < 0 {
		return 0, false
	}

	if err := c.storage.Write(uint64(slot)*SlotSize, data); err != nil {
		log.Panic(err)
	}

	c.rxBusy[slot] = true
	c.rxLen[slot] = len(data)
	c.rxQueue = append(c.rxQueue, slot)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosFrameReceived,
		Item:   Frame{Slot: slot, Length: len(data), Data: data},
	})

	return slot, true
}

// RxFrame returns the oldest unacknowledged received frame.
func (c *Comp) RxFrame() (Frame, bool) {
	if len(c.rxQueue) == 0 {
		return Frame{}, false
	}

	slot := c.rxQueue[0]
	data, err := c.storage.Read(uint64(slot)*SlotSize, uint64(c.rxLen[slot]))
	if err != nil {
		log.Panic(err)
	}

	return Frame{Slot: slot, Length: c.rxLen[slot], Data: data}, true
}

// AckRx releases the oldest received frame's slot back to the wire side.
func (c *Comp) AckRx() {
	if len(c.rxQueue) == 0 {
		return
	}

	slot := c.rxQueue[0]
	c.rxQueue = c.rxQueue[1:]
	c.rxBusy[slot] = false
	c.rxLen[slot] = 0
}

// KickTx sends the first length bytes of a transmit slot to the wire.
func (c *Comp) KickTx(slot, length int) {
	if slot < 0 || slot >= TxSlots {
		log.Panicf("no transmit slot %d", slot)
	}
	if length > SlotSize {
		log.Panicf("frame of %d bytes does not fit a slot", length)
	}

	offset := uint64(RxSlots+slot) * SlotSize
	data, err := c.storage.Read(offset, uint64(length))
	if err != nil {
		log.Panic(err)
	}

	frame := Frame{Slot: slot, Length: length, Data: data}
	c.txOutbox = append(c.txOutbox, frame)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosFrameSent,
		Item:   frame,
	})
}

// ExtractFrame pops the oldest frame sent to the wire.
func (c *Comp) ExtractFrame() (Frame, bool) {
	if len(c.txOutbox) == 0 {
		return Frame{}, false
	}

	frame := c.txOutbox[0]
	c.txOutbox = c.txOutbox[1:]

	return frame, true
}

// Handle either accepts a bus request or completes one whose latency
// elapsed.
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

// Tick accepts at most one bus request per cycle.
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

	time := c.Freq.NCyclesLater(c.latency, c.Engine.CurrentTime())
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

	if err := c.storage.Write(c.region.Offset(req.Address),
		req.Data); err != nil {
		log.Panic(err)
	}

	tracing.TraceReqComplete(req, c)
	c.TickLater()

	return nil
}

func (c *Comp) retry(e *respondEvent) {
	c.Engine.Schedule(newRespondEvent(
		c.Freq.NextTick(e.Time()), c, e.req))
}
