package soc

import (
	"fmt"

	"github.com/socforge/socforge/bist"
	"github.com/socforge/socforge/bridge"
	"github.com/socforge/socforge/crg"
	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/dram"
	"github.com/socforge/socforge/ethmac"
	"github.com/socforge/socforge/fabric"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/simulation"
	"github.com/socforge/socforge/spiflash"
	"github.com/socforge/socforge/stream"
	"github.com/socforge/socforge/tracing"
	"github.com/socforge/socforge/uart"
)

// selfTestSeed keys the self-test pattern so both engines derive the same
// expectations independently.
const selfTestSeed = 0xace1

// selfTestWords is the default length of a self-test run. The engines can
// be re-armed with a different length through the accessors.
const selfTestWords = 1024

// Builder composes chips.
type Builder struct {
	simulation     *simulation.Simulation
	clockFreq      sim.Freq
	baud           uint64
	arbitration    fabric.Arbitration
	selfTestDomain string
	randomSelfTest bool
	flashMode      string
	ethernet       bool
	etherbone      bool
	overrides      *csr.Profile
}

// MakeBuilder returns a builder with the conventional defaults: a 100 MHz
// system clock, a 115200 baud console, round-robin arbitration, the
// self-test pair in the system domain, and single-wide flash I/O.
func MakeBuilder() Builder {
	return Builder{
		clockFreq:      100 * sim.MHz,
		baud:           115200,
		selfTestDomain: "sys",
		flashMode:      "1x",
	}
}

// WithSimulation sets the simulation the chip is built into. The chip uses
// the simulation's engine and registers all its components there.
func (b Builder) WithSimulation(s *simulation.Simulation) Builder {
	b.simulation = s
	return b
}

// WithClockFreq sets the system clock frequency. The 4x domains scale with
// it; the auxiliary domains keep their fixed rates.
func (b Builder) WithClockFreq(freq sim.Freq) Builder {
	b.clockFreq = freq
	return b
}

// WithBaud sets the console line rate in bits per second.
func (b Builder) WithBaud(baud uint64) Builder {
	b.baud = baud
	return b
}

// WithArbitration selects how the fabric picks among masters.
func (b Builder) WithArbitration(a fabric.Arbitration) Builder {
	b.arbitration = a
	return b
}

// WithSelfTestDomain places the self-test pair in "sys" or "clk50".
func (b Builder) WithSelfTestDomain(domain string) Builder {
	b.selfTestDomain = domain
	return b
}

// WithRandomSelfTest selects pseudo-random self-test addressing.
func (b Builder) WithRandomSelfTest(random bool) Builder {
	b.randomSelfTest = random
	return b
}

// WithFlashMode selects the flash I/O width, "1x" or "4x".
func (b Builder) WithFlashMode(mode string) Builder {
	b.flashMode = mode
	return b
}

// WithEthernet enables the Ethernet variant: the MAC with its buffer
// window and interrupt, and the eth_rx/eth_tx clock domains.
func (b Builder) WithEthernet() Builder {
	b.ethernet = true
	return b
}

// WithEtherbone enables the remote-bus variant: the bus core register
// block and the eth_rx/eth_tx clock domains, with no MAC.
func (b Builder) WithEtherbone() Builder {
	b.etherbone = true
	return b
}

// WithOverrides layers a user profile on top of the base and variant
// profiles. Overrides replace the fields they set and keep the rest.
func (b Builder) WithOverrides(p *csr.Profile) Builder {
	b.overrides = p
	return b
}

// Build composes the chip under the given name. The profile stack is
// resolved first; a conflict or an address window that does not decode to
// any slave aborts the composition with that error and no partial chip.
func (b Builder) Build(name string) (*SoC, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	resolved, err := b.resolveProfiles()
	if err != nil {
		return nil, err
	}

	s := &SoC{
		name:       name,
		simulation: b.simulation,
		resolved:   resolved,
		busFreq:    b.clockFreq,
	}

	b.buildClockTree(s)
	b.buildBus(s)
	b.buildConsolePath(s)
	b.buildSelfTest(s)

	if err := routeMustBeTotal(s); err != nil {
		return nil, err
	}

	b.register(s)

	return s, nil
}

func (b Builder) parametersMustBeValid() error {
	if b.simulation == nil {
		return fmt.Errorf("a simulation is required to compose a chip")
	}

	if b.selfTestDomain != "sys" && b.selfTestDomain != "clk50" {
		return fmt.Errorf("self-test domain %q is not one of sys, clk50",
			b.selfTestDomain)
	}

	if b.flashMode != "1x" && b.flashMode != "4x" {
		return fmt.Errorf("flash mode %q is not one of 1x, 4x", b.flashMode)
	}

	return nil
}

func (b Builder) resolveProfiles() (*csr.Map, error) {
	profile := BaseProfile()

	if b.ethernet {
		profile = csr.Merge(profile, EthernetProfile())
	}

	if b.etherbone {
		profile = csr.Merge(profile, EtherboneProfile())
	}

	if b.overrides != nil {
		profile = csr.Merge(profile, b.overrides)
	}

	return csr.Resolve(profile)
}

func (b Builder) buildClockTree(s *SoC) {
	engine := b.simulation.GetEngine()

	s.pll = crg.MakePLLBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		Build(s.name + ".PLL")

	seq := crg.MakeBuilder().
		WithEngine(engine).
		WithSource(s.pll).
		AddDomain(crg.Domain{
			Name:   "sys",
			Freq:   b.clockFreq,
			Policy: crg.Countdown,
		}).
		AddDomain(crg.Domain{
			Name:   "sys4x",
			Freq:   4 * b.clockFreq,
			Policy: crg.ResetLess,
		}).
		AddDomain(crg.Domain{
			Name:   "sys4x_dqs",
			Freq:   4 * b.clockFreq,
			Policy: crg.ResetLess,
		}).
		AddDomain(crg.Domain{
			Name:    "clk200",
			Freq:    200 * sim.MHz,
			Policy:  crg.Countdown,
			Initial: 15,
		}).
		AddDomain(crg.Domain{
			Name:   "clk50",
			Freq:   50 * sim.MHz,
			Policy: crg.Countdown,
			After:  "sys",
		})

	if b.ethernet || b.etherbone {
		s.ethPLL = crg.MakePLLBuilder().
			WithEngine(engine).
			WithFreq(25 * sim.MHz).
			Build(s.name + ".EthPLL")

		seq = seq.
			AddDomain(crg.Domain{
				Name:   "eth_rx",
				Freq:   25 * sim.MHz,
				Policy: crg.Async,
				Source: s.ethPLL,
			}).
			AddDomain(crg.Domain{
				Name:   "eth_tx",
				Freq:   25 * sim.MHz,
				Policy: crg.Async,
				Source: s.ethPLL,
			})
	}

	s.sequencer = seq.Build(s.name + ".CRG")
}

func (b Builder) buildBus(s *SoC) {
	engine := b.simulation.GetEngine()

	s.bus = fabric.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithArbitration(b.arbitration).
		Build(s.name + ".Fabric")

	romRegion := mustRegion(s.resolved, "rom")
	s.rom = dram.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithLatency(1).
		WithCapacity(romRegion.Size).
		WithAddressOffset(romRegion.Base).
		Build(s.name + ".Rom")
	b.attachSlave(s, "rom", romRegion, s.rom.TopPort())

	sramRegion := mustRegion(s.resolved, "sram")
	s.sram = dram.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithLatency(1).
		WithCapacity(sramRegion.Size).
		WithAddressOffset(sramRegion.Base).
		Build(s.name + ".Sram")
	b.attachSlave(s, "sram", sramRegion, s.sram.TopPort())

	flashRegion := mustRegion(s.resolved, "spiflash")
	s.flash = spiflash.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithMode(b.flashModeValue()).
		WithRegion(flashRegion).
		Build(s.name + ".SpiFlash")
	b.attachSlave(s, "spiflash", flashRegion, s.flash.TopPort())

	mainRegion := mustRegion(s.resolved, "main_ram")
	s.mainRAM = dram.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithCapacity(mainRegion.Size).
		WithAddressOffset(mainRegion.Base).
		WithUserPort("Generator").
		WithUserPort("Checker").
		Build(s.name + ".MainRam")
	b.attachSlave(s, "main_ram", mainRegion, s.mainRAM.TopPort())

	csrRegion := mustRegion(s.resolved, "csr")
	s.csrWindow = dram.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithLatency(1).
		WithCapacity(csrRegion.Size).
		WithAddressOffset(csrRegion.Base).
		Build(s.name + ".CSRWindow")
	b.attachSlave(s, "csr", csrRegion, s.csrWindow.TopPort())

	if b.ethernet {
		macRegion := mustRegion(s.resolved, "ethmac")
		s.mac = ethmac.MakeBuilder().
			WithEngine(engine).
			WithFreq(b.clockFreq).
			WithRegion(macRegion).
			WithCSRIndex(mustIndex(s.resolved, "ethmac")).
			WithIRQLine(mustIRQ(s.resolved, "ethmac")).
			Build(s.name + ".EthMac")
		b.attachSlave(s, "ethmac", macRegion, s.mac.TopPort())
	}
}

func (b Builder) attachSlave(
	s *SoC,
	name string,
	region csr.Region,
	slavePort sim.Port,
) {
	busPort := s.bus.AddSlave(name, region, slavePort.AsRemote())
	s.link(busPort, slavePort)
}

func (b Builder) buildConsolePath(s *SoC) {
	engine := b.simulation.GetEngine()

	s.phy = uart.MakePHYBuilder().
		WithEngine(engine).
		WithBaud(b.baud).
		Build(s.name + ".UartPhy")

	s.crossbar = stream.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		Build(s.name + ".Crossbar")

	s.console = uart.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		WithCSRIndex(mustIndex(s.resolved, "uart")).
		WithIRQLine(mustIRQ(s.resolved, "uart")).
		Build(s.name + ".Uart")

	s.bridge = bridge.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.clockFreq).
		Build(s.name + ".Bridge")

	s.phy.SetPeer(s.crossbar.PHY().AsRemote())
	s.crossbar.SetPHYPeer(s.phy.StreamPort().AsRemote())
	s.link(s.phy.StreamPort(), s.crossbar.PHY())

	s.console.SetPeer(s.crossbar.Side(stream.SideA).AsRemote())
	s.crossbar.SetSidePeer(stream.SideA, s.console.StreamPort().AsRemote())
	s.link(s.crossbar.Side(stream.SideA), s.console.StreamPort())

	s.bridge.SetStreamPeer(s.crossbar.Side(stream.SideB).AsRemote())
	s.crossbar.SetSidePeer(stream.SideB, s.bridge.StreamPort().AsRemote())
	s.link(s.crossbar.Side(stream.SideB), s.bridge.StreamPort())

	busPort := s.bus.AddMaster("bridge")
	s.bridge.SetBusPeer(busPort.AsRemote())
	s.link(s.bridge.BusPort(), busPort)
}

func (b Builder) buildSelfTest(s *SoC) {
	engine := b.simulation.GetEngine()
	freq := b.selfTestFreq()
	mainRegion := mustRegion(s.resolved, "main_ram")

	s.generator = bist.MakeGeneratorBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithRandom(b.randomSelfTest).
		WithSeed(selfTestSeed).
		WithReset(s.sequencer.Reset(b.selfTestDomain)).
		Build(s.name + ".Generator")

	s.checker = bist.MakeCheckerBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithRandom(b.randomSelfTest).
		WithSeed(selfTestSeed).
		WithReset(s.sequencer.Reset(b.selfTestDomain)).
		Build(s.name + ".Checker")

	s.sequencer.AcceptHook(s.generator)
	s.sequencer.AcceptHook(s.checker)

	genPort := s.mainRAM.UserPort("Generator")
	s.generator.SetPeer(genPort.AsRemote())
	s.link(s.generator.MemPort(), genPort)

	chkPort := s.mainRAM.UserPort("Checker")
	s.checker.SetPeer(chkPort.AsRemote())
	s.link(s.checker.MemPort(), chkPort)

	s.generator.SetBase(mainRegion.Base)
	s.generator.SetLength(selfTestWords)
	s.checker.SetBase(mainRegion.Base)
	s.checker.SetLength(selfTestWords)
}

func (b Builder) selfTestFreq() sim.Freq {
	if b.selfTestDomain == "clk50" {
		return 50 * sim.MHz
	}

	return b.clockFreq
}

func (b Builder) flashModeValue() spiflash.Mode {
	if b.flashMode == "4x" {
		return spiflash.Mode4x
	}

	return spiflash.Mode1x
}

// routeMustBeTotal probes the first and last byte of every window of every
// mapped region, shadows included.
func routeMustBeTotal(s *SoC) error {
	for _, a := range s.resolved.MemTable() {
		bounds := []uint64{
			a.Region.Base,
			a.Region.Base + a.Region.Size - 1,
		}
		if a.Region.Shadow != 0 {
			bounds = append(bounds,
				a.Region.Shadow,
				a.Region.Shadow+a.Region.Size-1)
		}

		for _, addr := range bounds {
			if _, err := s.bus.Route(addr); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b Builder) register(s *SoC) {
	components := []sim.Component{s.pll}
	if s.ethPLL != nil {
		components = append(components, s.ethPLL)
	}

	components = append(components,
		s.bus,
		s.rom, s.sram, s.flash, s.mainRAM, s.csrWindow,
		s.phy, s.crossbar, s.console, s.bridge,
		s.generator, s.checker,
	)
	if s.mac != nil {
		components = append(components, s.mac)
	}

	for _, c := range components {
		b.simulation.RegisterComponent(c)
	}

	tracer := b.simulation.GetVisTracer()
	traced := []tracing.NamedHookable{
		s.rom, s.sram, s.flash, s.mainRAM, s.csrWindow,
		s.bridge, s.generator, s.checker,
	}
	if s.mac != nil {
		traced = append(traced, s.mac)
	}

	for _, d := range traced {
		tracing.CollectTrace(d, tracer)
	}

	if monitor := b.simulation.GetMonitor(); monitor != nil {
		monitor.RegisterSequencer(s.sequencer)
		monitor.RegisterSelfTest("Generator", s.generator)
		monitor.RegisterSelfTest("Checker", s.checker)
	}
}

func mustRegion(m *csr.Map, name string) csr.Region {
	region, found := m.Region(name)
	if !found {
		panic(fmt.Sprintf("the profile stack lost the %s window", name))
	}

	return region
}

func mustIndex(m *csr.Map, name string) int {
	index, found := m.Index(name)
	if !found {
		panic(fmt.Sprintf("the profile stack lost the %s register block", name))
	}

	return index
}

func mustIRQ(m *csr.Map, name string) int {
	line, found := m.IRQ(name)
	if !found {
		panic(fmt.Sprintf("the profile stack lost the %s interrupt", name))
	}

	return line
}
