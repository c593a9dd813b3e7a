package stream

import (
	"github.com/socforge/socforge/sim"
)

// A DataMsg carries one byte of a serial stream.
type DataMsg struct {
	sim.MsgMeta

	Data byte
}

// Meta returns the meta data of the message.
func (m *DataMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a different ID.
func (m *DataMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// DataMsgBuilder can build data messages.
type DataMsgBuilder struct {
	src, dst sim.RemotePort
	data     byte
}

// WithSrc sets the source of the message.
func (b DataMsgBuilder) WithSrc(src sim.RemotePort) DataMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b DataMsgBuilder) WithDst(dst sim.RemotePort) DataMsgBuilder {
	b.dst = dst
	return b
}

// WithData sets the byte the message carries.
func (b DataMsgBuilder) WithData(data byte) DataMsgBuilder {
	b.data = data
	return b
}

// Build creates a new data message.
func (b DataMsgBuilder) Build() *DataMsg {
	m := &DataMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficBytes = 1
	m.Data = b.data

	return m
}
