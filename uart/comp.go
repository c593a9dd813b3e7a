package uart

import (
	"fmt"

	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/stream"
)

// Comp is the CPU-facing console endpoint. Received bytes accumulate in the
// RX FIFO and raise the interrupt line until the FIFO is read empty.
type Comp struct {
	*sim.TickingComponent

	streamPort sim.Port
	peer       sim.RemotePort

	rxFIFO sim.Buffer
	txFIFO sim.Buffer

	csrIndex int
	irqLine  int
}

// StreamPort returns the port facing the crossbar.
func (c *Comp) StreamPort() sim.Port {
	return c.streamPort
}

// SetPeer points the stream at the port of its peer.
func (c *Comp) SetPeer(r sim.RemotePort) {
	c.peer = r
}

// CSRIndex returns the register index the endpoint was composed with.
func (c *Comp) CSRIndex() int {
	return c.csrIndex
}

// IRQLine returns the interrupt line the endpoint was composed with.
func (c *Comp) IRQLine() int {
	return c.irqLine
}

// IRQ reports whether the receive interrupt is raised.
func (c *Comp) IRQ() bool {
	return c.rxFIFO.Size() > 0
}

// WriteTx queues one byte for transmission. It fails when the TX FIFO is
// full.
func (c *Comp) WriteTx(b byte) bool {
	if !c.txFIFO.CanPush() {
		return false
	}

	c.txFIFO.Push(b)
	c.TickLater()

	return true
}

// ReadRx pops one received byte. The second return value is false when the
// RX FIFO is empty.
func (c *Comp) ReadRx() (byte, bool) {
	item := c.rxFIFO.Pop()
	if item == nil {
		return 0, false
	}

	c.TickLater()

	return item.(byte), true
}

// Tick accepts one received byte into the RX FIFO and sends one byte from
// the TX FIFO.
func (c *Comp) Tick() bool {
	madeProgress := c.acceptRx()
	madeProgress = c.drainTx() || madeProgress

	return madeProgress
}

func (c *Comp) acceptRx() bool {
	item := c.streamPort.PeekIncoming()
	if item == nil {
		return false
	}

	msg, ok := item.(*stream.DataMsg)
	if !ok {
		panic(fmt.Sprintf("uart received a non-stream message %T", item))
	}

	if !c.rxFIFO.CanPush() {
		return false
	}

	c.rxFIFO.Push(msg.Data)
	c.streamPort.RetrieveIncoming()

	return true
}

func (c *Comp) drainTx() bool {
	item := c.txFIFO.Peek()
	if item == nil {
		return false
	}

	msg := stream.DataMsgBuilder{}.
		WithSrc(c.streamPort.AsRemote()).
		WithDst(c.peer).
		WithData(item.(byte)).
		Build()
	if err := c.streamPort.Send(msg); err != nil {
		return false
	}

	c.txFIFO.Pop()

	return true
}

// Builder can build console endpoints.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	fifoDepth int
	csrIndex  int
	irqLine   int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:      100 * sim.MHz,
		fifoDepth: 16,
	}
}

// WithEngine sets the engine that drives the endpoint.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the endpoint.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithFIFODepth sets the capacity of the RX and TX FIFOs.
func (b Builder) WithFIFODepth(n int) Builder {
	b.fifoDepth = n
	return b
}

// WithCSRIndex sets the register index from the resolved map.
func (b Builder) WithCSRIndex(i int) Builder {
	b.csrIndex = i
	return b
}

// WithIRQLine sets the interrupt line from the resolved map.
func (b Builder) WithIRQLine(n int) Builder {
	b.irqLine = n
	return b
}

// Build creates a console endpoint with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		csrIndex: b.csrIndex,
		irqLine:  b.irqLine,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.streamPort = sim.NewPort(c, 4, 4, name+".Stream")
	c.AddPort("Stream", c.streamPort)

	c.rxFIFO = sim.NewBuffer(name+".RxFIFO", b.fifoDepth)
	c.txFIFO = sim.NewBuffer(name+".TxFIFO", b.fifoDepth)

	return c
}
