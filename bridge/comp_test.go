package bridge

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/stream"
)

var _ = Describe("Bridge", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection

		comp *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()
		engine.EXPECT().Schedule(gomock.Any()).AnyTimes()

		conn = NewMockConnection(mockCtrl)
		conn.EXPECT().NotifySend().AnyTimes()
		conn.EXPECT().NotifyAvailable(gomock.Any()).AnyTimes()

		comp = MakeBuilder().
			WithEngine(engine).
			Build("Bridge")
		comp.SetStreamPeer("Xbar.B")
		comp.SetBusPeer("Fabric.MasterPort[1]")

		for _, p := range comp.Ports() {
			p.SetConnection(conn)
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	feed := func(bytes []byte) {
		for _, b := range bytes {
			msg := stream.DataMsgBuilder{}.
				WithSrc("Xbar.B").
				WithDst(comp.StreamPort().AsRemote()).
				WithData(b).
				Build()
			Expect(comp.StreamPort().Deliver(msg)).To(BeNil())
		}
	}

	tick := func(n int) {
		for i := 0; i < n; i++ {
			comp.Tick()
		}
	}

	It("should execute a write frame", func() {
		feed([]byte{
			CmdWrite, 0x01,
			0x40, 0x00, 0x00, 0x10,
			0xde, 0xad, 0xbe, 0xef,
		})

		tick(12)

		out := comp.BusPort().PeekOutgoing()
		Expect(out).NotTo(BeNil())

		req := out.(*mem.WriteReq)
		Expect(req.Meta().Dst).To(Equal(sim.RemotePort("Fabric.MasterPort[1]")))
		Expect(req.Address).To(Equal(uint64(0x40000010)))
		Expect(req.Data).To(Equal([]byte{0xde, 0xad, 0xbe, 0xef}))
	})

	It("should finish a frame before parsing the next one", func() {
		feed([]byte{
			CmdWrite, 0x01,
			0x40, 0x00, 0x00, 0x00,
			0x01, 0x02, 0x03, 0x04,
			CmdRead, 0x01,
			0x20, 0x00, 0x00, 0x00,
		})

		tick(12)
		Expect(comp.BusPort().PeekOutgoing()).NotTo(BeNil())

		write := comp.BusPort().PeekOutgoing().(*mem.WriteReq)
		comp.BusPort().RetrieveOutgoing()

		tick(4)
		Expect(comp.BusPort().PeekOutgoing()).To(BeNil())

		rsp := mem.WriteDoneRspBuilder{}.
			WithSrc("Fabric.MasterPort[1]").
			WithDst(comp.BusPort().AsRemote()).
			WithRspTo(write.ID).
			Build()
		Expect(comp.BusPort().Deliver(rsp)).To(BeNil())

		tick(9)

		read := comp.BusPort().PeekOutgoing()
		Expect(read).NotTo(BeNil())
		Expect(read.(*mem.ReadReq).Address).To(Equal(uint64(0x20000000)))
	})

	It("should stream read data back one byte per tick", func() {
		feed([]byte{CmdRead, 0x01, 0x40, 0x00, 0x00, 0x00})

		tick(8)

		req := comp.BusPort().PeekOutgoing().(*mem.ReadReq)
		Expect(req.Address).To(Equal(uint64(0x40000000)))
		Expect(req.AccessByteSize).To(Equal(uint64(4)))
		comp.BusPort().RetrieveOutgoing()

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("Fabric.MasterPort[1]").
			WithDst(comp.BusPort().AsRemote()).
			WithRspTo(req.ID).
			WithData([]byte{0x11, 0x22, 0x33, 0x44}).
			Build()
		Expect(comp.BusPort().Deliver(rsp)).To(BeNil())

		tick(6)

		for _, want := range []byte{0x11, 0x22, 0x33, 0x44} {
			out := comp.StreamPort().PeekOutgoing()
			Expect(out).NotTo(BeNil())
			Expect(out.Meta().Dst).To(Equal(sim.RemotePort("Xbar.B")))
			Expect(out.(*stream.DataMsg).Data).To(Equal(want))
			comp.StreamPort().RetrieveOutgoing()
		}
	})

	It("should walk consecutive addresses across a multi-word read", func() {
		feed([]byte{CmdRead, 0x02, 0x40, 0x00, 0x00, 0x00})

		tick(8)

		first := comp.BusPort().PeekOutgoing().(*mem.ReadReq)
		Expect(first.Address).To(Equal(uint64(0x40000000)))
		comp.BusPort().RetrieveOutgoing()

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("Fabric.MasterPort[1]").
			WithDst(comp.BusPort().AsRemote()).
			WithRspTo(first.ID).
			WithData(make([]byte, 4)).
			Build()
		Expect(comp.BusPort().Deliver(rsp)).To(BeNil())

		tick(3)

		second := comp.BusPort().PeekOutgoing().(*mem.ReadReq)
		Expect(second.Address).To(Equal(uint64(0x40000004)))
	})

	It("should resynchronize after garbage bytes", func() {
		feed([]byte{0xff, 0x07})
		feed([]byte{CmdRead, 0x01, 0x10, 0x00, 0x00, 0x00})

		tick(10)

		req := comp.BusPort().PeekOutgoing()
		Expect(req).NotTo(BeNil())
		Expect(req.(*mem.ReadReq).Address).To(Equal(uint64(0x10000000)))
	})

	It("should drop zero-length frames", func() {
		feed([]byte{CmdRead, 0x00})
		feed([]byte{CmdRead, 0x01, 0x10, 0x00, 0x00, 0x00})

		tick(10)

		req := comp.BusPort().PeekOutgoing()
		Expect(req).NotTo(BeNil())
		Expect(req.(*mem.ReadReq).Address).To(Equal(uint64(0x10000000)))
	})
})
