package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should calculate the period", func() {
		Expect(float64((1 * GHz).Period())).To(BeNumerically("~", 1e-9, 1e-15))
		Expect(float64((100 * MHz).Period())).To(BeNumerically("~", 1e-8, 1e-15))
	})

	It("should panic on the period of 0 Hz", func() {
		Expect(func() { Freq(0).Period() }).To(Panic())
	})

	It("should get this tick", func() {
		f := 1 * GHz
		Expect(float64(f.ThisTick(1.1e-9))).
			To(BeNumerically("~", 2e-9, 1e-15))
		Expect(float64(f.ThisTick(2e-9))).
			To(BeNumerically("~", 2e-9, 1e-15))
	})

	It("should get the next tick", func() {
		f := 1 * GHz
		Expect(float64(f.NextTick(1.1e-9))).
			To(BeNumerically("~", 2e-9, 1e-15))
		Expect(float64(f.NextTick(2e-9))).
			To(BeNumerically("~", 3e-9, 1e-15))
	})

	It("should stay on the grid over many next ticks", func() {
		f := 100 * MHz
		t := VTimeInSec(0)
		for i := 0; i < 1000; i++ {
			t = f.NextTick(t)
		}
		Expect(float64(t)).To(BeNumerically("~", 1000e-8, 1e-12))
	})

	It("should get the time n cycles later", func() {
		f := 1 * GHz
		Expect(float64(f.NCyclesLater(10, 1.5e-9))).
			To(BeNumerically("~", 11e-9, 1e-15))
	})

	It("should count cycles", func() {
		f := 100 * MHz
		Expect(f.Cycle(1.5e-8)).To(Equal(uint64(2)))
		Expect(f.Cycle(0)).To(Equal(uint64(0)))
	})
})
