// Package soc turns layered profiles plus a handful of switches into a
// wired chip model. The composer resolves the profile stack into a map,
// builds the clock tree, the bus fabric, the memories, the console path,
// and the self-test pair, plugs every port, and verifies that every mapped
// address decodes to a slave before handing the system back.
package soc

import (
	"fmt"
	"io"

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
	"github.com/socforge/socforge/uart"
)

// SoC is one composed chip model. All the parts are built, wired, and
// registered; the caller owns running the engine and arming the self-test.
type SoC struct {
	name       string
	simulation *simulation.Simulation
	resolved   *csr.Map
	busFreq    sim.Freq

	pll       *crg.PLL
	ethPLL    *crg.PLL
	sequencer *crg.Comp

	bus       *fabric.Comp
	rom       *dram.Comp
	sram      *dram.Comp
	mainRAM   *dram.Comp
	csrWindow *dram.Comp
	flash     *spiflash.Comp
	mac       *ethmac.Comp

	phy      *uart.PHY
	crossbar *stream.Crossbar
	console  *uart.Comp
	bridge   *bridge.Comp

	generator *bist.Generator
	checker   *bist.Checker

	links int
}

// Name returns the name the chip was composed under.
func (s *SoC) Name() string {
	return s.name
}

// Map returns the resolved allocation of the composed profile stack.
func (s *SoC) Map() *csr.Map {
	return s.resolved
}

// Fabric returns the bus fabric.
func (s *SoC) Fabric() *fabric.Comp {
	return s.bus
}

// Sequencer returns the clock/reset sequencer.
func (s *SoC) Sequencer() *crg.Comp {
	return s.sequencer
}

// Generator returns the self-test pattern generator.
func (s *SoC) Generator() *bist.Generator {
	return s.generator
}

// Checker returns the self-test pattern checker.
func (s *SoC) Checker() *bist.Checker {
	return s.checker
}

// Bridge returns the host bridge mastering the fabric.
func (s *SoC) Bridge() *bridge.Comp {
	return s.bridge
}

// UART returns the console endpoint.
func (s *SoC) UART() *uart.Comp {
	return s.console
}

// PHY returns the serial line model feeding the crossbar.
func (s *SoC) PHY() *uart.PHY {
	return s.phy
}

// Crossbar returns the stream crossbar that switches the serial line
// between the console and the host bridge.
func (s *SoC) Crossbar() *stream.Crossbar {
	return s.crossbar
}

// MainRAM returns the main memory controller the self-test exercises.
func (s *SoC) MainRAM() *dram.Comp {
	return s.mainRAM
}

// EthMAC returns the Ethernet MAC. It is nil unless the chip was composed
// with the Ethernet variant.
func (s *SoC) EthMAC() *ethmac.Comp {
	return s.mac
}

// link plugs the given ports into a fresh one-cycle connection.
func (s *SoC) link(ports ...sim.Port) {
	conn := sim.NewDirectConnection(
		fmt.Sprintf("%s.Conn[%d]", s.name, s.links),
		s.simulation.GetEngine(), s.busFreq)
	s.links++

	for _, p := range ports {
		conn.PlugIn(p)
	}
}

// ExportCSRCSV writes the canonical allocation table: one line per control
// register block, one per address window, one per interrupt, in map order.
// The output is byte-identical across runs for the same profile stack.
func (s *SoC) ExportCSRCSV(w io.Writer) error {
	for _, a := range s.resolved.CSRTable() {
		if _, err := fmt.Fprintf(w, "csr,%s,%d\n", a.Name, a.Index); err != nil {
			return err
		}
	}

	for _, a := range s.resolved.MemTable() {
		_, err := fmt.Fprintf(w, "mem,%s,0x%08x,0x%x,0x%08x\n",
			a.Name, a.Region.Base, a.Region.Size, a.Region.Shadow)
		if err != nil {
			return err
		}
	}

	for _, a := range s.resolved.IRQTable() {
		if _, err := fmt.Fprintf(w, "irq,%s,%d\n", a.Name, a.Line); err != nil {
			return err
		}
	}

	return nil
}

type csrRow struct {
	Name  string
	Index int
}

type memRow struct {
	Name   string
	Base   uint64
	Size   uint64
	Shadow uint64
}

type irqRow struct {
	Name string
	Line int
}

type selfTestRow struct {
	Engine    string
	Done      bool
	TimedOut  bool
	Issued    uint64
	Completed uint64
	Errors    uint64
}

// RecordArtifacts inserts the allocation tables and the current self-test
// status into the simulation's output database. Call it once per run, after
// the engine has finished.
func (s *SoC) RecordArtifacts() {
	rec := s.simulation.GetDataRecorder()

	rec.CreateTable("csr_map", csrRow{})
	for _, a := range s.resolved.CSRTable() {
		rec.InsertData("csr_map", csrRow{Name: a.Name, Index: a.Index})
	}

	rec.CreateTable("mem_map", memRow{})
	for _, a := range s.resolved.MemTable() {
		rec.InsertData("mem_map", memRow{
			Name:   a.Name,
			Base:   a.Region.Base,
			Size:   a.Region.Size,
			Shadow: a.Region.Shadow,
		})
	}

	rec.CreateTable("irq_map", irqRow{})
	for _, a := range s.resolved.IRQTable() {
		rec.InsertData("irq_map", irqRow{Name: a.Name, Line: a.Line})
	}

	rec.CreateTable("selftest", selfTestRow{})
	rec.InsertData("selftest", s.selfTestStatus("Generator", s.generator, 0))
	rec.InsertData("selftest", s.selfTestStatus(
		"Checker", s.checker, s.checker.ErrorCount()))

	rec.Flush()
}

type selfTestEngine interface {
	Done() bool
	TimedOut() bool
	Progress() (issued, completed uint64)
}

func (s *SoC) selfTestStatus(
	name string,
	engine selfTestEngine,
	errors uint64,
) selfTestRow {
	issued, completed := engine.Progress()

	return selfTestRow{
		Engine:    name,
		Done:      engine.Done(),
		TimedOut:  engine.TimedOut(),
		Issued:    issued,
		Completed: completed,
		Errors:    errors,
	}
}
