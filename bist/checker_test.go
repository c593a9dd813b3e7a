package bist

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

var _ = Describe("Checker", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		conn     *MockConnection

		checker *Checker
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()
		engine.EXPECT().Schedule(gomock.Any()).AnyTimes()

		conn = NewMockConnection(mockCtrl)
		conn.EXPECT().NotifySend().AnyTimes()
		conn.EXPECT().NotifyAvailable(gomock.Any()).AnyTimes()

		checker = MakeCheckerBuilder().
			WithEngine(engine).
			Build("Checker")
		checker.SetPeer("DRAM.User[1]")
		checker.MemPort().SetConnection(conn)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	nextReq := func() *mem.ReadReq {
		checker.Tick()

		out := checker.MemPort().PeekOutgoing()
		Expect(out).NotTo(BeNil())
		checker.MemPort().RetrieveOutgoing()

		return out.(*mem.ReadReq)
	}

	respond := func(req *mem.ReadReq, data []byte) {
		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("DRAM.User[1]").
			WithDst(checker.MemPort().AsRemote()).
			WithRspTo(req.ID).
			WithData(data).
			Build()
		Expect(checker.MemPort().Deliver(rsp)).To(BeNil())
	}

	It("should read the whole sequence back without errors", func() {
		checker.SetBase(0x40000000)
		checker.SetLength(3)
		checker.Shoot()

		seq := Sequence{Base: 0x40000000, Length: 3}
		for i := uint64(0); i < 3; i++ {
			req := nextReq()

			Expect(req.Address).To(Equal(0x40000000 + i*4))
			Expect(req.AccessByteSize).To(Equal(uint64(4)))

			respond(req, seq.DataAt(req.Address))
		}

		checker.Tick()

		Expect(checker.Done()).To(BeTrue())
		Expect(checker.ErrorCount()).To(Equal(uint64(0)))
	})

	It("should count a corrupted word and keep going", func() {
		checker.SetBase(0x0)
		checker.SetLength(3)
		checker.Shoot()

		seq := Sequence{Base: 0x0, Length: 3}
		for i := 0; i < 3; i++ {
			req := nextReq()

			data := seq.DataAt(req.Address)
			if i == 1 {
				data[0] ^= 0xff
			}

			respond(req, data)
		}

		checker.Tick()

		Expect(checker.Done()).To(BeTrue())
		Expect(checker.ErrorCount()).To(Equal(uint64(1)))

		_, completed := checker.Progress()
		Expect(completed).To(Equal(uint64(3)))
	})

	It("should verify pseudo-random addressing against the pattern", func() {
		checker = MakeCheckerBuilder().
			WithEngine(engine).
			WithRandom(true).
			WithSeed(7).
			Build("RandomChecker")
		checker.SetPeer("DRAM.User[1]")
		checker.MemPort().SetConnection(conn)

		checker.SetBase(0x1000)
		checker.SetLength(4)
		checker.Shoot()

		seq := Sequence{Base: 0x1000, Length: 4, Random: true, Seed: 7}
		for i := 0; i < 4; i++ {
			req := nextReq()

			Expect(req.Address).To(BeNumerically(">=", 0x1000))
			Expect(req.Address).To(BeNumerically("<", 0x1000+4*4))
			Expect(req.Address % 4).To(Equal(uint64(0)))

			respond(req, seq.DataAt(req.Address))
		}

		checker.Tick()

		Expect(checker.Done()).To(BeTrue())
		Expect(checker.ErrorCount()).To(Equal(uint64(0)))
	})
})
