// Package fabric provides the system bus of a composed chip. The fabric
// decodes the addresses of master requests to slave ports and arbitrates
// among the masters.
package fabric

import (
	"fmt"

	"github.com/socforge/socforge/csr"
	"github.com/socforge/socforge/mem"
	"github.com/socforge/socforge/sim"
)

// HookPosUnmappedAccess marks a request whose address decodes to no slave.
// The request is dropped and the transaction never completes.
var HookPosUnmappedAccess = &sim.HookPos{Name: "Unmapped Access"}

// An UnmappedAddressError reports an address that no slave window covers.
type UnmappedAddressError struct {
	Addr uint64
}

func (e *UnmappedAddressError) Error() string {
	return fmt.Sprintf("address 0x%08x is not mapped to any slave", e.Addr)
}

// Arbitration selects how the fabric picks among masters with pending
// requests.
type Arbitration int

const (
	// RoundRobin rotates the highest-priority master every cycle.
	RoundRobin Arbitration = iota

	// Priority always serves the earliest-attached master first.
	Priority
)

// Comp is the bus fabric. Masters and slaves do not talk to each other
// directly. A master sends requests to its fabric-side port; the fabric
// forwards them to the decoded slave and routes the response back.
type Comp struct {
	*sim.TickingComponent

	arbitration Arbitration

	masters []*masterEntry
	slaves  []*slaveEntry

	nextMasterID int
}

type masterEntry struct {
	name string
	port sim.Port
}

type slaveEntry struct {
	name   string
	region csr.Region
	port   sim.Port
	remote sim.RemotePort

	busy *transaction
}

type transaction struct {
	req        mem.AccessReq
	fwdID      string
	masterPort sim.Port
}

// AddMaster creates a fabric-side port for one bus master. The returned port
// is where the master addresses its requests.
func (c *Comp) AddMaster(name string) sim.Port {
	entry := &masterEntry{name: name}
	entry.port = sim.NewPort(c, 4, 4,
		fmt.Sprintf("%s.MasterPort[%d]", c.Name(), len(c.masters)))

	c.AddPort(fmt.Sprintf("Master[%d]", len(c.masters)), entry.port)
	c.masters = append(c.masters, entry)

	return entry.port
}

// AddSlave registers a slave behind an address region. The returned
// fabric-side port and the slave's own port must be plugged into the same
// connection.
func (c *Comp) AddSlave(
	name string,
	region csr.Region,
	remote sim.RemotePort,
) sim.Port {
	entry := &slaveEntry{
		name:   name,
		region: region,
		remote: remote,
	}
	entry.port = sim.NewPort(c, 4, 4,
		fmt.Sprintf("%s.SlavePort[%d]", c.Name(), len(c.slaves)))

	c.AddPort(fmt.Sprintf("Slave[%d]", len(c.slaves)), entry.port)
	c.slaves = append(c.slaves, entry)

	return entry.port
}

// Route decodes an address to the port of the owning slave. Shadow windows
// decode to the same slave as the direct window. Unmatched addresses return
// an UnmappedAddressError.
func (c *Comp) Route(addr uint64) (sim.RemotePort, error) {
	for _, s := range c.slaves {
		if s.region.Contains(addr) {
			return s.remote, nil
		}
	}

	return "", &UnmappedAddressError{Addr: addr}
}

// SlaveNames returns the names of the registered slaves in attach order.
func (c *Comp) SlaveNames() []string {
	names := make([]string, len(c.slaves))
	for i, s := range c.slaves {
		names[i] = s.name
	}

	return names
}

// Tick moves responses back to the masters and forwards granted requests to
// the slaves.
func (c *Comp) Tick() bool {
	madeProgress := c.respond()
	madeProgress = c.issue() || madeProgress

	return madeProgress
}

func (c *Comp) respond() bool {
	madeProgress := false

	for _, slave := range c.slaves {
		if slave.busy == nil {
			continue
		}

		item := slave.port.PeekIncoming()
		if item == nil {
			continue
		}

		rsp, ok := item.(sim.Rsp)
		if !ok {
			panic(fmt.Sprintf(
				"fabric slave port received a non-response message %T", item))
		}

		if rsp.GetRspTo() != slave.busy.fwdID {
			panic("slave responded to a request that is not outstanding")
		}

		if !c.sendRspToMaster(slave.busy, rsp) {
			continue
		}

		slave.port.RetrieveIncoming()
		slave.busy = nil
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) sendRspToMaster(txn *transaction, rsp sim.Rsp) bool {
	var toMaster sim.Msg

	switch r := rsp.(type) {
	case *mem.DataReadyRsp:
		toMaster = mem.DataReadyRspBuilder{}.
			WithSrc(txn.masterPort.AsRemote()).
			WithDst(txn.req.Meta().Src).
			WithRspTo(txn.req.Meta().ID).
			WithData(r.Data).
			Build()
	case *mem.WriteDoneRsp:
		toMaster = mem.WriteDoneRspBuilder{}.
			WithSrc(txn.masterPort.AsRemote()).
			WithDst(txn.req.Meta().Src).
			WithRspTo(txn.req.Meta().ID).
			Build()
	default:
		panic(fmt.Sprintf("fabric cannot route response type %T", rsp))
	}

	err := txn.masterPort.Send(toMaster)

	return err == nil
}

func (c *Comp) issue() bool {
	madeProgress := false

	for _, master := range c.arbitrationOrder() {
		madeProgress = c.issueFromMaster(master) || madeProgress
	}

	if c.arbitration == RoundRobin && len(c.masters) > 0 {
		c.nextMasterID = (c.nextMasterID + 1) % len(c.masters)
	}

	return madeProgress
}

// arbitrationOrder returns the masters in the order they are served this
// cycle.
func (c *Comp) arbitrationOrder() []*masterEntry {
	if c.arbitration == Priority {
		return c.masters
	}

	order := make([]*masterEntry, 0, len(c.masters))
	for i := 0; i < len(c.masters); i++ {
		order = append(order,
			c.masters[(i+c.nextMasterID)%len(c.masters)])
	}

	return order
}

func (c *Comp) issueFromMaster(master *masterEntry) bool {
	item := master.port.PeekIncoming()
	if item == nil {
		return false
	}

	req, ok := item.(mem.AccessReq)
	if !ok {
		panic(fmt.Sprintf(
			"fabric master port received a non-access message %T", item))
	}

	slave := c.decode(req.GetAddress())
	if slave == nil {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosUnmappedAccess,
			Item:   req,
		})
		master.port.RetrieveIncoming()

		return true
	}

	if slave.busy != nil {
		return false
	}

	fwd := c.forwardedReq(req, slave)
	if err := slave.port.Send(fwd); err != nil {
		return false
	}

	master.port.RetrieveIncoming()
	slave.busy = &transaction{
		req:        req,
		fwdID:      fwd.Meta().ID,
		masterPort: master.port,
	}

	return true
}

func (c *Comp) decode(addr uint64) *slaveEntry {
	for _, s := range c.slaves {
		if s.region.Contains(addr) {
			return s
		}
	}

	return nil
}

func (c *Comp) forwardedReq(req mem.AccessReq, slave *slaveEntry) mem.AccessReq {
	switch r := req.(type) {
	case *mem.ReadReq:
		return mem.ReadReqBuilder{}.
			WithSrc(slave.port.AsRemote()).
			WithDst(slave.remote).
			WithAddress(r.Address).
			WithByteSize(r.AccessByteSize).
			Build()
	case *mem.WriteReq:
		return mem.WriteReqBuilder{}.
			WithSrc(slave.port.AsRemote()).
			WithDst(slave.remote).
			WithAddress(r.Address).
			WithData(r.Data).
			WithDirtyMask(r.DirtyMask).
			Build()
	}

	panic(fmt.Sprintf("fabric cannot forward request type %T", req))
}
