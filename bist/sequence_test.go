package bist

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Sequence", func() {
	It("should walk consecutive word addresses", func() {
		seq := Sequence{Base: 0x40000000, Length: 4}
		addrs := seq.Addresses()

		for _, want := range []uint64{
			0x40000000, 0x40000004, 0x40000008, 0x4000000c,
		} {
			addr, ok := addrs.Next()
			Expect(ok).To(BeTrue())
			Expect(addr).To(Equal(want))
		}

		_, ok := addrs.Next()
		Expect(ok).To(BeFalse())
	})

	It("should produce the same random walk for the same seed", func() {
		seq := Sequence{Base: 0x40000000, Length: 64, Random: true, Seed: 7}

		first := collectAddrs(seq)
		second := collectAddrs(seq)

		Expect(second).To(Equal(first))
	})

	It("should change the random walk with the seed", func() {
		seqA := Sequence{Base: 0, Length: 64, Random: true, Seed: 1}
		seqB := Sequence{Base: 0, Length: 64, Random: true, Seed: 2}

		Expect(collectAddrs(seqA)).NotTo(Equal(collectAddrs(seqB)))
	})

	It("should keep random addresses inside the region", func() {
		seq := Sequence{Base: 0x1000, Length: 10, Random: true, Seed: 42}

		for _, addr := range collectAddrs(seq) {
			Expect(addr).To(BeNumerically(">=", 0x1000))
			Expect(addr).To(BeNumerically("<", 0x1000+10*wordBytes))
			Expect(addr % wordBytes).To(Equal(uint64(0)))
		}
	})

	It("should key the data pattern by absolute address", func() {
		seq := Sequence{Base: 0x40000000, Length: 8}

		Expect(seq.DataAt(0x40000000)).To(Equal(seq.DataAt(0x40000000)))
		Expect(seq.DataAt(0x40000000)).NotTo(Equal(seq.DataAt(0x40000004)))
		Expect(seq.DataAt(0x40000000)).To(HaveLen(4))
	})

	It("should change the data pattern with the seed", func() {
		plain := Sequence{Seed: 0}
		seeded := Sequence{Seed: 99}

		Expect(plain.DataAt(0x100)).NotTo(Equal(seeded.DataAt(0x100)))
	})
})

func collectAddrs(seq Sequence) []uint64 {
	var out []uint64

	addrs := seq.Addresses()
	for {
		addr, ok := addrs.Next()
		if !ok {
			return out
		}

		out = append(out, addr)
	}
}
