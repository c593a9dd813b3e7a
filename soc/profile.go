package soc

import (
	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/ethmac"
)

// BaseProfile returns the allocation every variant starts from: the
// register indices, interrupt lines, and address windows of the peripherals
// a minimal chip carries. Entries that only reserve a register block, like
// the identifier or the LED drivers, carry no region and no component.
func BaseProfile() *csr.Profile {
	return csr.MakeProfileBuilder().
		WithCSR("crg", 0).
		WithCSR("uart_phy", 1).
		WithCSR("uart", 2).
		WithIRQ("uart", 0).
		WithCSR("identifier", 3).
		WithCSR("timer0", 4).
		WithIRQ("timer0", 1).
		WithCSR("sdram", 8).
		WithRegion("rom", 0x00000000, 0x8000).
		WithRegion("sram", 0x10000000, 0x8000).
		WithCSR("spiflash", 16).
		WithShadowRegion("spiflash", 0x20000000, 1<<24, 0xa0000000).
		WithCSR("ddrphy", 17).
		WithCSR("dna", 18).
		WithCSR("xadc", 19).
		WithCSR("leds", 20).
		WithCSR("rgb_leds", 21).
		WithCSR("generator", 22).
		WithCSR("checker", 23).
		WithRegion("main_ram", 0x40000000, 0x10000000).
		WithRegion("csr", 0x60000000, 0x10000).
		Build()
}

// EthernetProfile returns the allocations the Ethernet variant layers on
// top of the base: the PHY and MAC register blocks, the MAC interrupt, and
// the buffer SRAM window with its shadow.
func EthernetProfile() *csr.Profile {
	return csr.MakeProfileBuilder().
		WithCSR("ethphy", 30).
		WithCSR("ethmac", 31).
		WithIRQ("ethmac", 2).
		WithShadowRegion("ethmac", 0x30000000, ethmac.BufferSize, 0xb0000000).
		Build()
}

// EtherboneProfile returns the allocations of the remote-bus variant: the
// PHY register block and the bus core register block. The core handles
// packets on its own, so there is no interrupt and no buffer window.
//
// The core claims the same register index as the MAC, so enabling both
// variants at once fails to resolve.
func EtherboneProfile() *csr.Profile {
	return csr.MakeProfileBuilder().
		WithCSR("ethphy", 30).
		WithCSR("ethcore", 31).
		Build()
}
