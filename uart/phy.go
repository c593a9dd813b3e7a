// Package uart provides the console serial path: a line-rate PHY model and
// the CPU-facing endpoint with its receive and transmit FIFOs.
package uart

import (
	"fmt"

	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/stream"
)

// HookPosPhyTx is invoked when a byte leaves through the transmit pin. The
// item is the byte.
var HookPosPhyTx = &sim.HookPos{Name: "Phy Tx"}

// PHY models the serial line. It ticks once per byte time, one start bit,
// eight data bits, and one stop bit per byte.
type PHY struct {
	*sim.TickingComponent

	streamPort sim.Port
	peer       sim.RemotePort

	rx []byte
}

// StreamPort returns the port facing the crossbar.
func (p *PHY) StreamPort() sim.Port {
	return p.streamPort
}

// SetPeer points the stream at the port of its peer.
func (p *PHY) SetPeer(r sim.RemotePort) {
	p.peer = r
}

// InjectRx queues bytes as if they arrived on the receive pin.
func (p *PHY) InjectRx(data []byte) {
	p.rx = append(p.rx, data...)
	p.TickLater()
}

// Tick moves at most one byte in each direction.
func (p *PHY) Tick() bool {
	madeProgress := p.transmit()
	madeProgress = p.receive() || madeProgress

	return madeProgress
}

func (p *PHY) transmit() bool {
	item := p.streamPort.PeekIncoming()
	if item == nil {
		return false
	}

	msg, ok := item.(*stream.DataMsg)
	if !ok {
		panic(fmt.Sprintf("uart phy received a non-stream message %T", item))
	}

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    HookPosPhyTx,
		Item:   msg.Data,
	})
	p.streamPort.RetrieveIncoming()

	return true
}

func (p *PHY) receive() bool {
	if len(p.rx) == 0 {
		return false
	}

	msg := stream.DataMsgBuilder{}.
		WithSrc(p.streamPort.AsRemote()).
		WithDst(p.peer).
		WithData(p.rx[0]).
		Build()
	if err := p.streamPort.Send(msg); err != nil {
		return false
	}

	p.rx = p.rx[1:]

	return true
}

// PHYBuilder can build serial line models.
type PHYBuilder struct {
	engine sim.Engine
	baud   uint64
}

// MakePHYBuilder returns a builder with default parameters.
func MakePHYBuilder() PHYBuilder {
	return PHYBuilder{
		baud: 115200,
	}
}

// WithEngine sets the engine that drives the PHY.
func (b PHYBuilder) WithEngine(engine sim.Engine) PHYBuilder {
	b.engine = engine
	return b
}

// WithBaud sets the line rate in bits per second.
func (b PHYBuilder) WithBaud(baud uint64) PHYBuilder {
	b.baud = baud
	return b
}

// Build creates a PHY that ticks once per byte time.
func (b PHYBuilder) Build(name string) *PHY {
	p := &PHY{}
	p.TickingComponent = sim.NewTickingComponent(
		name, b.engine, sim.Freq(b.baud)/10*sim.Hz, p)

	p.streamPort = sim.NewPort(p, 4, 4, name+".Stream")
	p.AddPort("Stream", p.streamPort)

	return p
}
