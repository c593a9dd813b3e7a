package sim

import (
	"fmt"
	"sync"
)

// HookPosPortMsgSend marks when a message is sent out from the port.
var HookPosPortMsgSend = &HookPos{Name: "Port Msg Send"}

// HookPosPortMsgRecvd marks when an inbound message arrives at a port.
var HookPosPortMsgRecvd = &HookPos{Name: "Port Msg Recv"}

// HookPosPortMsgRetrieveIncoming marks when an inbound message is retrieved
// by the port owner.
var HookPosPortMsgRetrieveIncoming = &HookPos{Name: "Port Msg Retrieve Incoming"}

// HookPosPortMsgRetrieveOutgoing marks when an outbound message is retrieved
// by the connection.
var HookPosPortMsgRetrieveOutgoing = &HookPos{Name: "Port Msg Retrieve Outgoing"}

// A SendError marks a failure to send or deliver a message.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	e := new(SendError)
	return e
}

// RemotePort is the name of a port on a remote component. Messages address
// ports by name so that messages stay serializable.
type RemotePort string

// A Port is owned by a component and connects to other ports through a
// connection.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort
	SetConnection(conn Connection)
	Component() Component

	// Methods for connections.
	Deliver(msg Msg) *SendError
	NotifyAvailable()
	RetrieveOutgoing() Msg
	PeekOutgoing() Msg

	// Methods for components.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}

// NewPort creates a port with buffers for incoming and outgoing messages.
func NewPort(
	comp Component,
	incomingBufCapacity, outgoingBufCapacity int,
	name string,
) Port {
	NameMustBeValid(name)

	p := new(port)
	p.comp = comp
	p.name = name
	p.incomingBuf = NewBuffer(name+".IncomingBuf", incomingBufCapacity)
	p.outgoingBuf = NewBuffer(name+".OutgoingBuf", outgoingBufCapacity)

	return p
}

type port struct {
	HookableBase

	lock sync.Mutex
	name string
	comp Component
	conn Connection

	incomingBuf Buffer
	outgoingBuf Buffer
}

// Name returns the name of the port.
func (p *port) Name() string {
	return p.name
}

// AsRemote returns the name of the port to be used in message headers.
func (p *port) AsRemote() RemotePort {
	return RemotePort(p.name)
}

// SetConnection marks the port as plugged in to a connection.
func (p *port) SetConnection(conn Connection) {
	p.conn = conn
}

// Component returns the owner of the port.
func (p *port) Component() Component {
	return p.comp
}

// CanSend checks if the port can send a message without error.
func (p *port) CanSend() bool {
	p.lock.Lock()
	canSend := p.outgoingBuf.CanPush()
	p.lock.Unlock()

	return canSend
}

// Send is used by the port owner to send a message out.
func (p *port) Send(msg Msg) *SendError {
	p.msgMustBeSentFromThePort(msg)

	p.lock.Lock()

	if !p.outgoingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	p.outgoingBuf.Push(msg)

	if p.NumHooks() > 0 {
		p.InvokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosPortMsgSend,
			Item:   msg,
		})
	}

	p.lock.Unlock()

	p.conn.NotifySend()

	return nil
}

// Deliver is used by the connection to deliver a message to the port.
func (p *port) Deliver(msg Msg) *SendError {
	p.msgMustBeDeliveredToThePort(msg)

	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	p.incomingBuf.Push(msg)

	if p.NumHooks() > 0 {
		p.InvokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosPortMsgRecvd,
			Item:   msg,
		})
	}

	p.lock.Unlock()

	if p.comp != nil {
		p.comp.NotifyRecv(p)
	}

	return nil
}

// RetrieveIncoming is used by the port owner to take a message from the
// incoming buffer.
func (p *port) RetrieveIncoming() Msg {
	p.lock.Lock()

	wasFull := !p.incomingBuf.CanPush()

	item := p.incomingBuf.Pop()
	if item == nil {
		p.lock.Unlock()
		return nil
	}

	msg := item.(Msg)

	if p.NumHooks() > 0 {
		p.InvokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosPortMsgRetrieveIncoming,
			Item:   msg,
		})
	}

	p.lock.Unlock()

	if wasFull && p.conn != nil {
		p.conn.NotifyAvailable(p)
	}

	return msg
}

// RetrieveOutgoing is used by the connection to take a message from the
// outgoing buffer.
func (p *port) RetrieveOutgoing() Msg {
	p.lock.Lock()

	wasFull := !p.outgoingBuf.CanPush()

	item := p.outgoingBuf.Pop()
	if item == nil {
		p.lock.Unlock()
		return nil
	}

	msg := item.(Msg)

	if p.NumHooks() > 0 {
		p.InvokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosPortMsgRetrieveOutgoing,
			Item:   msg,
		})
	}

	p.lock.Unlock()

	if wasFull && p.comp != nil {
		p.comp.NotifyPortFree(p)
	}

	return msg
}

// PeekIncoming returns the first message in the incoming buffer without
// removing it.
func (p *port) PeekIncoming() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	item := p.incomingBuf.Peek()
	if item == nil {
		return nil
	}

	return item.(Msg)
}

// PeekOutgoing returns the first message in the outgoing buffer without
// removing it.
func (p *port) PeekOutgoing() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	item := p.outgoingBuf.Peek()
	if item == nil {
		return nil
	}

	return item.(Msg)
}

// NotifyAvailable is called by the connection when the connection can accept
// more messages from the port.
func (p *port) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *port) msgMustBeSentFromThePort(msg Msg) {
	if msg.Meta().Src != p.AsRemote() {
		panic(fmt.Sprintf(
			"sending a message whose source %q is not port %q",
			msg.Meta().Src, p.name))
	}
}

func (p *port) msgMustBeDeliveredToThePort(msg Msg) {
	if msg.Meta().Dst != p.AsRemote() {
		panic(fmt.Sprintf(
			"delivering a message whose destination %q is not port %q",
			msg.Meta().Dst, p.name))
	}
}
