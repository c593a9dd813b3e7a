// Package bridge turns a byte stream into bus transactions. A host drives
// the system bus through the serial port with framed read and write
// commands, interleaving with CPU traffic under fabric arbitration.
package bridge

import (
	"fmt"

	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/stream"
	"github.com/socforge/socforge/tracing"
)

// Frame command bytes.
const (
	CmdWrite byte = 0x01
	CmdRead  byte = 0x02
)

// wordBytes is the bus word size. Every frame transfers whole words.
const wordBytes = 4

type parseState int

const (
	stateCmd parseState = iota
	stateLength
	stateAddr
	stateData
)

// Comp is the host bridge. A frame is one command byte, one word-count byte
// (1 to 255), four address bytes big-endian, and four data bytes per word
// for writes. Reads stream four bytes per word back. Words walk consecutive
// addresses. Bytes that are not a valid command byte resynchronize the
// parser by being discarded.
type Comp struct {
	*sim.TickingComponent

	streamPort sim.Port
	streamPeer sim.RemotePort
	busPort    sim.Port
	busPeer    sim.RemotePort

	parse   parseState
	cmd     byte
	words   int
	addr    uint64
	addrLen int
	dataBuf [wordBytes]byte
	dataLen int

	readyToIssue bool
	pending      mem.AccessReq
	txQueue      []byte
}

// StreamPort returns the port facing the crossbar.
func (c *Comp) StreamPort() sim.Port {
	return c.streamPort
}

// BusPort returns the port that issues bus transactions.
func (c *Comp) BusPort() sim.Port {
	return c.busPort
}

// SetStreamPeer points the stream at the port of its peer.
func (c *Comp) SetStreamPeer(r sim.RemotePort) {
	c.streamPeer = r
}

// SetBusPeer points the bus master at its fabric-side port.
func (c *Comp) SetBusPeer(r sim.RemotePort) {
	c.busPeer = r
}

// Tick streams response bytes out, collects bus responses, issues the next
// word's transaction, and consumes one frame byte.
func (c *Comp) Tick() bool {
	madeProgress := c.streamOut()
	madeProgress = c.collectRsp() || madeProgress
	madeProgress = c.issue() || madeProgress
	madeProgress = c.parseStream() || madeProgress

	return madeProgress
}

func (c *Comp) streamOut() bool {
	if len(c.txQueue) == 0 {
		return false
	}

	msg := stream.DataMsgBuilder{}.
		WithSrc(c.streamPort.AsRemote()).
		WithDst(c.streamPeer).
		WithData(c.txQueue[0]).
		Build()
	if err := c.streamPort.Send(msg); err != nil {
		return false
	}

	c.txQueue = c.txQueue[1:]

	return true
}

func (c *Comp) collectRsp() bool {
	item := c.busPort.PeekIncoming()
	if item == nil {
		return false
	}

	switch rsp := item.(type) {
	case *mem.DataReadyRsp:
		c.txQueue = append(c.txQueue, rsp.Data...)
	case *mem.WriteDoneRsp:
	default:
		panic(fmt.Sprintf("bridge received a non-response message %T", item))
	}

	c.busPort.RetrieveIncoming()
	tracing.TraceReqFinalize(c.pending, c)
	c.wordDone()

	return true
}

func (c *Comp) wordDone() {
	c.pending = nil
	c.words--
	c.addr += wordBytes

	if c.words == 0 {
		c.parse = stateCmd
		return
	}

	if c.cmd == CmdRead {
		c.readyToIssue = true
	}
}

func (c *Comp) issue() bool {
	if c.pending != nil || !c.readyToIssue {
		return false
	}

	var req mem.AccessReq
	if c.cmd == CmdWrite {
		data := make([]byte, wordBytes)
		copy(data, c.dataBuf[:])
		req = mem.WriteReqBuilder{}.
			WithSrc(c.busPort.AsRemote()).
			WithDst(c.busPeer).
			WithAddress(c.addr).
			WithData(data).
			Build()
	} else {
		req = mem.ReadReqBuilder{}.
			WithSrc(c.busPort.AsRemote()).
			WithDst(c.busPeer).
			WithAddress(c.addr).
			WithByteSize(wordBytes).
			Build()
	}

	if err := c.busPort.Send(req); err != nil {
		return false
	}

	tracing.TraceReqInitiate(req, c, "")
	c.pending = req
	c.readyToIssue = false

	return true
}

// parseStream consumes one byte of the incoming frame. It stops while a
// word is being issued or in flight so write payload bytes cannot overrun
// the word buffer.
func (c *Comp) parseStream() bool {
	if c.pending != nil || c.readyToIssue {
		return false
	}

	item := c.streamPort.PeekIncoming()
	if item == nil {
		return false
	}

	msg, ok := item.(*stream.DataMsg)
	if !ok {
		panic(fmt.Sprintf("bridge received a non-stream message %T", item))
	}

	c.streamPort.RetrieveIncoming()
	c.consume(msg.Data)

	return true
}

func (c *Comp) consume(b byte) {
	switch c.parse {
	case stateCmd:
		if b != CmdWrite && b != CmdRead {
			return
		}

		c.cmd = b
		c.parse = stateLength
	case stateLength:
		if b == 0 {
			c.parse = stateCmd
			return
		}

		c.words = int(b)
		c.addr = 0
		c.addrLen = 0
		c.parse = stateAddr
	case stateAddr:
		c.addr = c.addr<<8 | uint64(b)
		c.addrLen++

		if c.addrLen < wordBytes {
			return
		}

		if c.cmd == CmdRead {
			c.readyToIssue = true
			return
		}

		c.dataLen = 0
		c.parse = stateData
	case stateData:
		c.dataBuf[c.dataLen] = b
		c.dataLen++

		if c.dataLen == wordBytes {
			c.dataLen = 0
			c.readyToIssue = true
		}
	}
}

// Builder can build host bridges.
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

// WithEngine sets the engine that drives the bridge.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the bridge.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// Build creates a bridge with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.streamPort = sim.NewPort(c, 16, 4, name+".Stream")
	c.AddPort("Stream", c.streamPort)

	c.busPort = sim.NewPort(c, 4, 4, name+".Mem")
	c.AddPort("Mem", c.busPort)

	return c
}
