package sim

// DirectConnection connects ports and forwards messages one cycle after they
// are sent.
type DirectConnection struct {
	*TickingComponent

	ports      []Port
	ends       map[RemotePort]Port
	nextPortID int
}

// NewDirectConnection creates a new DirectConnection.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewTickingComponent(name, engine, freq, c)
	c.ends = make(map[RemotePort]Port)

	return c
}

// PlugIn connects a port to the connection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.ends[port.AsRemote()] = port
	port.SetConnection(c)
}

// Unplug removes a port from the connection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the port can receive
// messages again.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.TickLater()
}

// NotifySend is called by a port to notify that the port has something to
// send.
func (c *DirectConnection) NotifySend() {
	c.TickLater()
}

// Tick forwards messages from the outgoing buffers to the destination ports.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	if len(c.ports) > 0 {
		c.nextPortID = (c.nextPortID + 1) % len(c.ports)
	}

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dstPort, found := c.ends[head.Meta().Dst]
		if !found {
			panic("message sent to a port not plugged into the connection, " +
				string(head.Meta().Dst))
		}

		err := dstPort.Deliver(head)
		if err != nil {
			break
		}

		port.RetrieveOutgoing()
		madeProgress = true
	}

	return madeProgress
}
