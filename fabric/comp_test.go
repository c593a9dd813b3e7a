package fabric

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

type recordingHook struct {
	items []any
}

func (h *recordingHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == HookPosUnmappedAccess {
		h.items = append(h.items, ctx.Item)
	}
}

var _ = Describe("Fabric", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection

		comp        *Comp
		cpuPort     sim.Port
		bridgePort  sim.Port
		ramPort     sim.Port
		flashPort   sim.Port
		ramRegion   csr.Region
		flashRegion csr.Region
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
			WithFreq(100 * sim.MHz).
			Build("Fabric")

		cpuPort = comp.AddMaster("cpu")
		bridgePort = comp.AddMaster("bridge")

		ramRegion = csr.Region{Base: 0x40000000, Size: 0x10000000}
		flashRegion = csr.Region{
			Base: 0x20000000, Size: 0x1000000, Shadow: 0xa0000000,
		}
		ramPort = comp.AddSlave("main_ram", ramRegion, "RAM.Top")
		flashPort = comp.AddSlave("spiflash", flashRegion, "Flash.Top")

		for _, p := range comp.Ports() {
			p.SetConnection(conn)
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	deliverRead := func(port sim.Port, addr uint64) *mem.ReadReq {
		req := mem.ReadReqBuilder{}.
			WithSrc("Agent.Mem").
			WithDst(port.AsRemote()).
			WithAddress(addr).
			WithByteSize(4).
			Build()
		err := port.Deliver(req)
		Expect(err).To(BeNil())

		return req
	}

	Describe("Route", func() {
		It("should decode direct and shadow windows to the same slave", func() {
			direct, err := comp.Route(0x20001000)
			Expect(err).To(BeNil())

			shadow, err := comp.Route(0xa0001000)
			Expect(err).To(BeNil())

			Expect(direct).To(Equal(shadow))
			Expect(direct).To(Equal(sim.RemotePort("Flash.Top")))
		})

		It("should fail on unmapped addresses", func() {
			_, err := comp.Route(0xdead0000)

			var unmapped *UnmappedAddressError
			Expect(errors.As(err, &unmapped)).To(BeTrue())
			Expect(unmapped.Addr).To(Equal(uint64(0xdead0000)))
		})
	})

	It("should forward a read request to the decoded slave", func() {
		deliverRead(cpuPort, 0x40000040)

		madeProgress := comp.Tick()

		Expect(madeProgress).To(BeTrue())
		Expect(cpuPort.PeekIncoming()).To(BeNil())

		fwd := ramPort.PeekOutgoing()
		Expect(fwd).NotTo(BeNil())
		Expect(fwd.Meta().Dst).To(Equal(sim.RemotePort("RAM.Top")))
		Expect(fwd.(*mem.ReadReq).Address).To(Equal(uint64(0x40000040)))
	})

	It("should forward a write request with its data", func() {
		req := mem.WriteReqBuilder{}.
			WithSrc("Agent.Mem").
			WithDst(cpuPort.AsRemote()).
			WithAddress(0x20000100).
			WithData([]byte{0xde, 0xad, 0xbe, 0xef}).
			Build()
		Expect(cpuPort.Deliver(req)).To(BeNil())

		comp.Tick()

		fwd := flashPort.PeekOutgoing()
		Expect(fwd).NotTo(BeNil())
		Expect(fwd.(*mem.WriteReq).Data).To(Equal([]byte{0xde, 0xad, 0xbe, 0xef}))
	})

	It("should route shadow accesses to the owning slave", func() {
		deliverRead(cpuPort, 0xa0000100)

		comp.Tick()

		fwd := flashPort.PeekOutgoing()
		Expect(fwd).NotTo(BeNil())
		Expect(fwd.(*mem.ReadReq).Address).To(Equal(uint64(0xa0000100)))
	})

	It("should allow one outstanding transaction per slave", func() {
		deliverRead(cpuPort, 0x40000000)
		deliverRead(bridgePort, 0x40001000)

		comp.Tick()

		Expect(ramPort.PeekOutgoing()).NotTo(BeNil())
		ramPort.RetrieveOutgoing()
		Expect(ramPort.PeekOutgoing()).To(BeNil())
		Expect(bridgePort.PeekIncoming()).NotTo(BeNil())
	})

	It("should serve independent slaves in the same cycle", func() {
		deliverRead(cpuPort, 0x40000000)
		deliverRead(bridgePort, 0x20000000)

		comp.Tick()

		Expect(ramPort.PeekOutgoing()).NotTo(BeNil())
		Expect(flashPort.PeekOutgoing()).NotTo(BeNil())
	})

	It("should route the response back to the issuing master", func() {
		req := deliverRead(cpuPort, 0x40000080)
		comp.Tick()

		fwd := ramPort.PeekOutgoing()
		ramPort.RetrieveOutgoing()

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("RAM.Top").
			WithDst(ramPort.AsRemote()).
			WithRspTo(fwd.Meta().ID).
			WithData([]byte{1, 2, 3, 4}).
			Build()
		Expect(ramPort.Deliver(rsp)).To(BeNil())

		comp.Tick()

		toMaster := cpuPort.PeekOutgoing()
		Expect(toMaster).NotTo(BeNil())
		Expect(toMaster.Meta().Dst).To(Equal(sim.RemotePort("Agent.Mem")))
		Expect(toMaster.(*mem.DataReadyRsp).RespondTo).To(Equal(req.ID))
		Expect(toMaster.(*mem.DataReadyRsp).Data).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should free the slave after the response is routed", func() {
		deliverRead(cpuPort, 0x40000000)
		comp.Tick()
		fwd := ramPort.PeekOutgoing()
		ramPort.RetrieveOutgoing()

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("RAM.Top").
			WithDst(ramPort.AsRemote()).
			WithRspTo(fwd.Meta().ID).
			WithData(make([]byte, 4)).
			Build()
		ramPort.Deliver(rsp)
		comp.Tick()

		deliverRead(bridgePort, 0x40002000)
		comp.Tick()

		Expect(ramPort.PeekOutgoing()).NotTo(BeNil())
	})

	It("should drop unmapped accesses after invoking the hook", func() {
		hook := &recordingHook{}
		comp.AcceptHook(hook)

		req := deliverRead(cpuPort, 0xdead0000)

		madeProgress := comp.Tick()

		Expect(madeProgress).To(BeTrue())
		Expect(cpuPort.PeekIncoming()).To(BeNil())
		Expect(hook.items).To(HaveLen(1))
		Expect(hook.items[0]).To(BeIdenticalTo(req))
	})

	It("should rotate the grant under round robin arbitration", func() {
		deliverRead(cpuPort, 0x40000000)
		comp.Tick()
		fwd := ramPort.PeekOutgoing()
		ramPort.RetrieveOutgoing()

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("RAM.Top").
			WithDst(ramPort.AsRemote()).
			WithRspTo(fwd.Meta().ID).
			WithData(make([]byte, 4)).
			Build()
		ramPort.Deliver(rsp)

		deliverRead(cpuPort, 0x40000004)
		deliverRead(bridgePort, 0x40000008)
		comp.Tick()

		fwd2 := ramPort.PeekOutgoing()
		Expect(fwd2).NotTo(BeNil())
		Expect(fwd2.(*mem.ReadReq).Address).To(Equal(uint64(0x40000008)))
	})
})

var _ = Describe("Fabric with priority arbitration", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection

		comp       *Comp
		cpuPort    sim.Port
		bridgePort sim.Port
		ramPort    sim.Port
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
			WithArbitration(Priority).
			Build("Fabric")

		cpuPort = comp.AddMaster("cpu")
		bridgePort = comp.AddMaster("bridge")
		ramPort = comp.AddSlave("main_ram",
			csr.Region{Base: 0x40000000, Size: 0x1000000}, "RAM.Top")

		for _, p := range comp.Ports() {
			p.SetConnection(conn)
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should always grant the earliest-attached master first", func() {
		for round := 0; round < 3; round++ {
			cpuReq := mem.ReadReqBuilder{}.
				WithSrc("Agent.Mem").
				WithDst(cpuPort.AsRemote()).
				WithAddress(0x40000000).
				WithByteSize(4).
				Build()
			Expect(cpuPort.Deliver(cpuReq)).To(BeNil())

			bridgeReq := mem.ReadReqBuilder{}.
				WithSrc("Agent.Mem").
				WithDst(bridgePort.AsRemote()).
				WithAddress(0x40000100).
				WithByteSize(4).
				Build()
			if bridgePort.PeekIncoming() == nil {
				Expect(bridgePort.Deliver(bridgeReq)).To(BeNil())
			}

			comp.Tick()

			fwd := ramPort.PeekOutgoing()
			Expect(fwd).NotTo(BeNil())
			Expect(fwd.(*mem.ReadReq).Address).To(Equal(uint64(0x40000000)))
			ramPort.RetrieveOutgoing()

			rsp := mem.DataReadyRspBuilder{}.
				WithSrc("RAM.Top").
				WithDst(ramPort.AsRemote()).
				WithRspTo(fwd.Meta().ID).
				WithData(make([]byte, 4)).
				Build()
			Expect(ramPort.Deliver(rsp)).To(BeNil())
			comp.Tick()
			cpuPort.RetrieveOutgoing()
		}
	})
})
