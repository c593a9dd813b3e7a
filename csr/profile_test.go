package csr

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Profile", func() {
	It("should keep entries in insertion order", func() {
		p := MakeProfileBuilder().
			WithCSR("uart", 2).
			WithCSR("timer0", 4).
			WithCSR("leds", 20).
			Build()

		Expect(p.Names()).To(Equal([]string{"uart", "timer0", "leds"}))
	})

	It("should fold repeated registrations into one entry", func() {
		p := MakeProfileBuilder().
			WithCSR("ethmac", 31).
			WithRegion("ethmac", 0x30000000, 0x2000).
			WithIRQ("ethmac", 2).
			Build()

		Expect(p.Len()).To(Equal(1))

		entry, found := p.Get("ethmac")
		Expect(found).To(BeTrue())
		Expect(entry.Index).To(Equal(31))
		Expect(entry.IRQ).To(Equal(2))
		Expect(entry.Region.Base).To(Equal(uint64(0x30000000)))
	})

	It("should let later registrations override earlier ones", func() {
		p := MakeProfileBuilder().
			WithCSR("uart", 2).
			WithCSR("uart", 7).
			Build()

		entry, _ := p.Get("uart")
		Expect(entry.Index).To(Equal(7))
		Expect(p.Len()).To(Equal(1))
	})
})

var _ = Describe("Merge", func() {
	It("should let the override win while keeping the base order", func() {
		base := MakeProfileBuilder().
			WithCSR("uartA", 5).
			WithCSR("uartB", 6).
			Build()
		override := MakeProfileBuilder().
			WithCSR("uartB", 7).
			WithCSR("spi", 8).
			Build()

		merged := Merge(base, override)

		Expect(merged.Names()).To(Equal([]string{"uartA", "uartB", "spi"}))

		uartA, _ := merged.Get("uartA")
		uartB, _ := merged.Get("uartB")
		spi, _ := merged.Get("spi")
		Expect(uartA.Index).To(Equal(5))
		Expect(uartB.Index).To(Equal(7))
		Expect(spi.Index).To(Equal(8))
	})

	It("should keep base fields that the override does not set", func() {
		base := MakeProfileBuilder().
			WithCSR("spiflash", 16).
			WithShadowRegion("spiflash", 0x20000000, 0x1000000, 0xa0000000).
			Build()
		override := MakeProfileBuilder().
			WithCSR("spiflash", 12).
			Build()

		merged := Merge(base, override)

		entry, _ := merged.Get("spiflash")
		Expect(entry.Index).To(Equal(12))
		Expect(entry.HasRegion).To(BeTrue())
		Expect(entry.Region.Shadow).To(Equal(uint64(0xa0000000)))
	})

	It("should not modify the inputs", func() {
		base := MakeProfileBuilder().WithCSR("uart", 2).Build()
		override := MakeProfileBuilder().WithCSR("uart", 9).Build()

		Merge(base, override)

		baseEntry, _ := base.Get("uart")
		overrideEntry, _ := override.Get("uart")
		Expect(baseEntry.Index).To(Equal(2))
		Expect(overrideEntry.Index).To(Equal(9))
	})

	It("should be layerable over profile chains", func() {
		base := MakeProfileBuilder().
			WithCSR("crg", 0).
			WithCSR("uart", 2).
			Build()
		variant := MakeProfileBuilder().
			WithCSR("ethmac", 31).
			Build()
		user := MakeProfileBuilder().
			WithCSR("uart", 3).
			Build()

		merged := Merge(Merge(base, variant), user)

		Expect(merged.Names()).To(Equal([]string{"crg", "uart", "ethmac"}))
		uart, _ := merged.Get("uart")
		Expect(uart.Index).To(Equal(3))
	})
})
