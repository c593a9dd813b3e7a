package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type sampleMsg struct {
	MsgMeta
}

func (m *sampleMsg) Meta() *MsgMeta {
	return &m.MsgMeta
}

func (m *sampleMsg) Clone() Msg {
	clone := *m
	clone.ID = GetIDGenerator().Generate()
	return &clone
}

func newSampleMsg(src, dst RemotePort) *sampleMsg {
	msg := &sampleMsg{}
	msg.ID = GetIDGenerator().Generate()
	msg.Src = src
	msg.Dst = dst
	return msg
}

var _ = Describe("Port", func() {
	var (
		mockCtrl *gomock.Controller
		comp     *MockComponent
		conn     *MockConnection
		port     Port
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		comp = NewMockComponent(mockCtrl)
		conn = NewMockConnection(mockCtrl)
		port = NewPort(comp, 2, 2, "Comp.Port")
		port.SetConnection(conn)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should send and buffer the message", func() {
		msg := newSampleMsg(port.AsRemote(), "Comp2.Port")
		conn.EXPECT().NotifySend()

		err := port.Send(msg)

		Expect(err).To(BeNil())
		Expect(port.PeekOutgoing()).To(BeIdenticalTo(msg))
	})

	It("should fail to send when the outgoing buffer is full", func() {
		conn.EXPECT().NotifySend().Times(2)
		port.Send(newSampleMsg(port.AsRemote(), "Comp2.Port"))
		port.Send(newSampleMsg(port.AsRemote(), "Comp2.Port"))

		err := port.Send(newSampleMsg(port.AsRemote(), "Comp2.Port"))

		Expect(err).NotTo(BeNil())
		Expect(port.CanSend()).To(BeFalse())
	})

	It("should panic when sending a message from another port", func() {
		msg := newSampleMsg("SomeoneElse.Port", "Comp2.Port")

		Expect(func() { port.Send(msg) }).To(Panic())
	})

	It("should deliver and notify the component", func() {
		msg := newSampleMsg("Comp2.Port", port.AsRemote())
		comp.EXPECT().NotifyRecv(port)

		err := port.Deliver(msg)

		Expect(err).To(BeNil())
		Expect(port.PeekIncoming()).To(BeIdenticalTo(msg))
	})

	It("should fail to deliver when the incoming buffer is full", func() {
		comp.EXPECT().NotifyRecv(port).Times(2)
		port.Deliver(newSampleMsg("Comp2.Port", port.AsRemote()))
		port.Deliver(newSampleMsg("Comp2.Port", port.AsRemote()))

		err := port.Deliver(newSampleMsg("Comp2.Port", port.AsRemote()))

		Expect(err).NotTo(BeNil())
	})

	It("should panic when delivering a message to another port", func() {
		msg := newSampleMsg("Comp2.Port", "SomeoneElse.Port")

		Expect(func() { port.Deliver(msg) }).To(Panic())
	})

	It("should notify the connection when the incoming buffer frees up", func() {
		comp.EXPECT().NotifyRecv(port).Times(2)
		msg1 := newSampleMsg("Comp2.Port", port.AsRemote())
		msg2 := newSampleMsg("Comp2.Port", port.AsRemote())
		port.Deliver(msg1)
		port.Deliver(msg2)

		conn.EXPECT().NotifyAvailable(port)

		retrieved := port.RetrieveIncoming()

		Expect(retrieved).To(BeIdenticalTo(msg1))
	})

	It("should notify the component when the outgoing buffer frees up", func() {
		conn.EXPECT().NotifySend().Times(2)
		msg1 := newSampleMsg(port.AsRemote(), "Comp2.Port")
		msg2 := newSampleMsg(port.AsRemote(), "Comp2.Port")
		port.Send(msg1)
		port.Send(msg2)

		comp.EXPECT().NotifyPortFree(port)

		retrieved := port.RetrieveOutgoing()

		Expect(retrieved).To(BeIdenticalTo(msg1))
		Expect(port.CanSend()).To(BeTrue())
	})

	It("should return nil when retrieving from an empty port", func() {
		Expect(port.RetrieveIncoming()).To(BeNil())
		Expect(port.RetrieveOutgoing()).To(BeNil())
		Expect(port.PeekIncoming()).To(BeNil())
		Expect(port.PeekOutgoing()).To(BeNil())
	})
})
