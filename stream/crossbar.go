// Package stream provides byte-stream plumbing between serial endpoints.
//
// The crossbar multiplexes one physical duplex stream onto two logical
// streams. The selected side exchanges traffic with the physical side. The
// other side is always drained so its sender never stalls.
package stream

import (
	"fmt"

	"github.com/socforge/socforge/sim"
)

// HookPosStreamDrop is invoked when the crossbar discards a byte that
// arrived on the non-selected side.
var HookPosStreamDrop = &sim.HookPos{Name: "Stream Drop"}

// Side names one of the two logical endpoints of a crossbar.
type Side int

const (
	// SideA is the endpoint selected after build.
	SideA Side = iota

	// SideB is the alternative endpoint.
	SideB
)

// Crossbar switches one physical duplex stream between two logical duplex
// streams. Switching takes effect on the next tick. Bytes in flight on the
// previously selected side may be dropped.
type Crossbar struct {
	*sim.TickingComponent

	phy   *endpoint
	sides [2]*endpoint

	selected Side
}

type endpoint struct {
	port sim.Port
	peer sim.RemotePort
}

// PHY returns the physical-side port.
func (x *Crossbar) PHY() sim.Port {
	return x.phy.port
}

// Side returns the port of one logical endpoint.
func (x *Crossbar) Side(s Side) sim.Port {
	return x.sides[s].port
}

// SetPHYPeer points the physical side at the port of its peer.
func (x *Crossbar) SetPHYPeer(r sim.RemotePort) {
	x.phy.peer = r
}

// SetSidePeer points one logical endpoint at the port of its peer.
func (x *Crossbar) SetSidePeer(s Side, r sim.RemotePort) {
	x.sides[s].peer = r
}

// Selected returns the side currently exchanging traffic with the physical
// stream.
func (x *Crossbar) Selected() Side {
	return x.selected
}

// Select routes the physical stream to the given side.
func (x *Crossbar) Select(s Side) {
	if x.selected == s {
		return
	}

	x.selected = s
	x.TickLater()
}

// Tick forwards traffic between the physical side and the selected side and
// drains the other side.
func (x *Crossbar) Tick() bool {
	active := x.sides[x.selected]
	inactive := x.sides[1-x.selected]

	madeProgress := x.forward(x.phy, active)
	madeProgress = x.forward(active, x.phy) || madeProgress
	madeProgress = x.drain(inactive) || madeProgress

	return madeProgress
}

func (x *Crossbar) forward(from, to *endpoint) bool {
	item := from.port.PeekIncoming()
	if item == nil {
		return false
	}

	msg, ok := item.(*DataMsg)
	if !ok {
		panic(fmt.Sprintf("crossbar received a non-stream message %T", item))
	}

	out := DataMsgBuilder{}.
		WithSrc(to.port.AsRemote()).
		WithDst(to.peer).
		WithData(msg.Data).
		Build()
	if err := to.port.Send(out); err != nil {
		return false
	}

	from.port.RetrieveIncoming()

	return true
}

// drain discards everything waiting on a non-selected endpoint so that its
// sender never observes backpressure.
func (x *Crossbar) drain(e *endpoint) bool {
	madeProgress := false

	for {
		item := e.port.PeekIncoming()
		if item == nil {
			return madeProgress
		}

		x.InvokeHook(sim.HookCtx{
			Domain: x,
			Pos:    HookPosStreamDrop,
			Item:   item,
		})
		e.port.RetrieveIncoming()
		madeProgress = true
	}
}

// Builder can build crossbars.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq: 100 * sim.MHz,
	}
}

// WithEngine sets the engine that drives the crossbar.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the crossbar.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// Build creates a crossbar with the given name.
func (b Builder) Build(name string) *Crossbar {
	x := &Crossbar{}
	x.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, x)

	x.phy = &endpoint{
		port: sim.NewPort(x, 4, 4, name+".PHY"),
	}
	x.AddPort("PHY", x.phy.port)

	x.sides[SideA] = &endpoint{
		port: sim.NewPort(x, 4, 4, name+".A"),
	}
	x.AddPort("A", x.sides[SideA].port)

	x.sides[SideB] = &endpoint{
		port: sim.NewPort(x, 4, 4, name+".B"),
	}
	x.AddPort("B", x.sides[SideB].port)

	return x
}
