package spiflash

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

type ignoredWriteRecorder struct {
	items []sim.Msg
}

func (r *ignoredWriteRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosWriteIgnored {
		return
	}

	r.items = append(r.items, ctx.Item.(sim.Msg))
}

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection

		flash     *Comp
		scheduled []*respondEvent
	)

	makeFlash := func(mode Mode) *Comp {
		f := MakeBuilder().
			WithEngine(engine).
			WithMode(mode).
			Build("Flash")
		f.TopPort().SetConnection(conn)

		return f
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		scheduled = nil
		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()
		engine.EXPECT().
			Schedule(gomock.Any()).
			Do(func(e sim.Event) {
				if evt, ok := e.(*respondEvent); ok {
					scheduled = append(scheduled, evt)
				}
			}).
			AnyTimes()

		conn = NewMockConnection(mockCtrl)
		conn.EXPECT().NotifySend().AnyTimes()
		conn.EXPECT().NotifyAvailable(gomock.Any()).AnyTimes()

		flash = makeFlash(Mode1x)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	deliverRead := func(f *Comp, addr uint64) *mem.ReadReq {
		req := mem.ReadReqBuilder{}.
			WithSrc("Fabric.SlavePort[2]").
			WithDst(f.TopPort().AsRemote()).
			WithAddress(addr).
			WithByteSize(4).
			Build()
		Expect(f.TopPort().Deliver(req)).To(BeNil())

		return req
	}

	It("should add nine dummy cycles to a single-I/O read", func() {
		Expect(flash.Program(0x100, []byte{0xca, 0xfe, 0x00, 0x01})).
			To(Succeed())
		req := deliverRead(flash, 0x20000100)

		Expect(flash.Tick()).To(BeTrue())

		Expect(scheduled).To(HaveLen(1))
		Expect(float64(scheduled[0].Time())).
			To(BeNumerically("~", 11e-8, 1e-12))

		Expect(flash.Handle(scheduled[0])).To(BeNil())

		rsp := flash.TopPort().PeekOutgoing().(*mem.DataReadyRsp)
		Expect(rsp.RespondTo).To(Equal(req.ID))
		Expect(rsp.Data).To(Equal([]byte{0xca, 0xfe, 0x00, 0x01}))
	})

	It("should add eleven dummy cycles in quad mode", func() {
		quad := makeFlash(Mode4x)
		deliverRead(quad, 0x20000000)

		quad.Tick()

		Expect(scheduled).To(HaveLen(1))
		Expect(float64(scheduled[0].Time())).
			To(BeNumerically("~", 13e-8, 1e-12))
	})

	It("should serve the same bytes through the shadow window", func() {
		Expect(flash.Program(0x200, []byte{1, 2, 3, 4})).To(Succeed())

		deliverRead(flash, 0xa0000200)
		flash.Tick()
		flash.Handle(scheduled[0])

		rsp := flash.TopPort().PeekOutgoing().(*mem.DataReadyRsp)
		Expect(rsp.Data).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should acknowledge and discard writes", func() {
		recorder := &ignoredWriteRecorder{}
		flash.AcceptHook(recorder)

		Expect(flash.Program(0x300, []byte{0xaa, 0xbb, 0xcc, 0xdd})).
			To(Succeed())

		req := mem.WriteReqBuilder{}.
			WithSrc("Fabric.SlavePort[2]").
			WithDst(flash.TopPort().AsRemote()).
			WithAddress(0x20000300).
			WithData([]byte{0, 0, 0, 0}).
			Build()
		Expect(flash.TopPort().Deliver(req)).To(BeNil())

		flash.Tick()

		Expect(recorder.items).To(HaveExactElements(sim.Msg(req)))
		Expect(float64(scheduled[0].Time())).
			To(BeNumerically("~", 2e-8, 1e-12))

		flash.Handle(scheduled[0])

		rsp := flash.TopPort().PeekOutgoing().(*mem.WriteDoneRsp)
		Expect(rsp.RespondTo).To(Equal(req.ID))

		read := deliverRead(flash, 0x20000300)
		flash.Tick()
		flash.Handle(scheduled[1])

		flash.TopPort().RetrieveOutgoing()
		dataRsp := flash.TopPort().PeekOutgoing().(*mem.DataReadyRsp)
		Expect(dataRsp.RespondTo).To(Equal(read.ID))
		Expect(dataRsp.Data).To(Equal([]byte{0xaa, 0xbb, 0xcc, 0xdd}))
	})
})
