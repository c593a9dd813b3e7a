package sim

import (
	"fmt"
	"sync"
)

// A PortOwner is an element that owns ports.
type PortOwner interface {
	// AddPort registers a port under a short name like "Top" or "Ctrl".
	AddPort(name string, port Port)

	// GetPortByName returns the port by its short name. It panics if the
	// port is not found.
	GetPortByName(name string) Port

	// Ports returns all the ports owned, in registration order.
	Ports() []Port
}

// PortOwnerBase provides an implementation of the PortOwner interface.
type PortOwnerBase struct {
	ports     map[string]Port
	portNames []string
}

// NewPortOwnerBase creates a new PortOwnerBase.
func NewPortOwnerBase() *PortOwnerBase {
	return &PortOwnerBase{
		ports: make(map[string]Port),
	}
}

// AddPort adds a new port with a given name.
func (b *PortOwnerBase) AddPort(name string, port Port) {
	if _, found := b.ports[name]; found {
		panic(fmt.Sprintf("port %q already exists", name))
	}

	b.ports[name] = port
	b.portNames = append(b.portNames, name)
}

// GetPortByName returns the port with the given name.
func (b *PortOwnerBase) GetPortByName(name string) Port {
	port, found := b.ports[name]
	if !found {
		panic(fmt.Sprintf("port %q does not exist", name))
	}

	return port
}

// Ports returns a slice of all the ports in registration order.
func (b *PortOwnerBase) Ports() []Port {
	list := make([]Port, 0, len(b.portNames))
	for _, name := range b.portNames {
		list = append(list, b.ports[name])
	}

	return list
}

// A Component is a element that is being simulated.
type Component interface {
	Named
	Handler
	Hookable
	PortOwner

	NotifyRecv(port Port)
	NotifyPortFree(port Port)
}

// ComponentBase provides the basic function that other components can use.
type ComponentBase struct {
	HookableBase
	*PortOwnerBase
	sync.Mutex

	name string
}

// NewComponentBase creates a new ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	c.PortOwnerBase = NewPortOwnerBase()

	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
