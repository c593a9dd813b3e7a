package stream

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/socforge/socforge/sim"
)

type dropRecorder struct {
	dropped []byte
}

func (r *dropRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos == HookPosStreamDrop {
		r.dropped = append(r.dropped, ctx.Item.(*DataMsg).Data)
	}
}

var _ = Describe("Crossbar", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection

		xbar *Crossbar
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()
		engine.EXPECT().Schedule(gomock.Any()).AnyTimes()

		conn = NewMockConnection(mockCtrl)
		conn.EXPECT().NotifySend().AnyTimes()
		conn.EXPECT().NotifyAvailable(gomock.Any()).AnyTimes()

		xbar = MakeBuilder().
			WithEngine(engine).
			WithFreq(100 * sim.MHz).
			Build("Xbar")
		xbar.SetPHYPeer("PHY.Stream")
		xbar.SetSidePeer(SideA, "Console.Stream")
		xbar.SetSidePeer(SideB, "Bridge.Stream")

		for _, p := range xbar.Ports() {
			p.SetConnection(conn)
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	deliver := func(port sim.Port, src sim.RemotePort, data byte) *DataMsg {
		msg := DataMsgBuilder{}.
			WithSrc(src).
			WithDst(port.AsRemote()).
			WithData(data).
			Build()
		Expect(port.Deliver(msg)).To(BeNil())

		return msg
	}

	It("should forward physical traffic to the selected side", func() {
		deliver(xbar.PHY(), "PHY.Stream", 0x41)

		madeProgress := xbar.Tick()

		Expect(madeProgress).To(BeTrue())
		out := xbar.Side(SideA).PeekOutgoing()
		Expect(out).NotTo(BeNil())
		Expect(out.Meta().Dst).To(Equal(sim.RemotePort("Console.Stream")))
		Expect(out.(*DataMsg).Data).To(Equal(byte(0x41)))
		Expect(xbar.PHY().PeekIncoming()).To(BeNil())
	})

	It("should forward selected side traffic to the physical side", func() {
		deliver(xbar.Side(SideA), "Console.Stream", 0x42)

		xbar.Tick()

		out := xbar.PHY().PeekOutgoing()
		Expect(out).NotTo(BeNil())
		Expect(out.Meta().Dst).To(Equal(sim.RemotePort("PHY.Stream")))
		Expect(out.(*DataMsg).Data).To(Equal(byte(0x42)))
	})

	It("should drain the non-selected side", func() {
		recorder := &dropRecorder{}
		xbar.AcceptHook(recorder)

		deliver(xbar.Side(SideB), "Bridge.Stream", 0x10)
		deliver(xbar.Side(SideB), "Bridge.Stream", 0x11)
		deliver(xbar.Side(SideB), "Bridge.Stream", 0x12)

		madeProgress := xbar.Tick()

		Expect(madeProgress).To(BeTrue())
		Expect(xbar.Side(SideB).PeekIncoming()).To(BeNil())
		Expect(xbar.PHY().PeekOutgoing()).To(BeNil())
		Expect(recorder.dropped).To(Equal([]byte{0x10, 0x11, 0x12}))
	})

	It("should switch traffic to side B on select", func() {
		xbar.Select(SideB)

		deliver(xbar.PHY(), "PHY.Stream", 0x43)
		deliver(xbar.Side(SideA), "Console.Stream", 0x44)

		xbar.Tick()

		out := xbar.Side(SideB).PeekOutgoing()
		Expect(out).NotTo(BeNil())
		Expect(out.Meta().Dst).To(Equal(sim.RemotePort("Bridge.Stream")))
		Expect(out.(*DataMsg).Data).To(Equal(byte(0x43)))
		Expect(xbar.Side(SideA).PeekIncoming()).To(BeNil())
	})

	It("should stall the physical side when the selected side is full", func() {
		for i := 0; i < 4; i++ {
			deliver(xbar.Side(SideA), "Console.Stream", byte(i))
			xbar.Tick()
		}
		Expect(xbar.PHY().PeekOutgoing()).NotTo(BeNil())

		deliver(xbar.Side(SideA), "Console.Stream", 0x99)
		xbar.Tick()

		Expect(xbar.Side(SideA).PeekIncoming()).NotTo(BeNil())
	})
})
