package csr

import "fmt"

// ConflictKind tells which resource two peripherals are fighting over.
type ConflictKind int

// The kinds of conflicts that resolving a profile can find.
const (
	CSRIndexConflict ConflictKind = iota
	IRQLineConflict
	RegionConflict
)

func (k ConflictKind) String() string {
	switch k {
	case CSRIndexConflict:
		return "csr index"
	case IRQLineConflict:
		return "irq line"
	case RegionConflict:
		return "memory region"
	}

	return "unknown"
}

// A ConflictError reports that two peripherals claim the same resource. It
// always names both parties.
type ConflictError struct {
	Kind         ConflictKind
	NameA, NameB string

	Index            int
	RegionA, RegionB Region
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case CSRIndexConflict:
		return fmt.Sprintf("csr index %d is assigned to both %q and %q",
			e.Index, e.NameA, e.NameB)
	case IRQLineConflict:
		return fmt.Sprintf("irq line %d is assigned to both %q and %q",
			e.Index, e.NameA, e.NameB)
	case RegionConflict:
		return fmt.Sprintf("memory region of %q %s overlaps that of %q %s",
			e.NameA, e.RegionA, e.NameB, e.RegionB)
	}

	return "unknown conflict"
}

// A CSRAssignment is one line of the resolved control register table.
type CSRAssignment struct {
	Name  string
	Index int
}

// An IRQAssignment is one line of the resolved interrupt table.
type IRQAssignment struct {
	Name string
	Line int
}

// A MemAssignment is one line of the resolved memory region table.
type MemAssignment struct {
	Name   string
	Region Region
}

// A Map is the resolved allocation of a profile. It is immutable and its
// tables are deterministic: resolving the same profile always produces the
// same tables in the same order.
type Map struct {
	csrTable []CSRAssignment
	irqTable []IRQAssignment
	memTable []MemAssignment
	byName   map[string]Entry
}

// Resolve validates a profile and returns its resolved map. Control register
// indices must be pairwise distinct, interrupt lines must be pairwise
// distinct, and memory regions, shadow windows included, must be pairwise
// disjoint. The first violation is returned as a ConflictError.
func Resolve(p *Profile) (*Map, error) {
	m := &Map{
		byName: make(map[string]Entry),
	}

	indexOwner := make(map[int]string)
	irqOwner := make(map[int]string)

	for _, entry := range p.entries {
		if entry.HasIndex {
			if owner, taken := indexOwner[entry.Index]; taken {
				return nil, &ConflictError{
					Kind:  CSRIndexConflict,
					NameA: owner,
					NameB: entry.Name,
					Index: entry.Index,
				}
			}

			indexOwner[entry.Index] = entry.Name
			m.csrTable = append(m.csrTable, CSRAssignment{
				Name:  entry.Name,
				Index: entry.Index,
			})
		}

		if entry.HasIRQ {
			if owner, taken := irqOwner[entry.IRQ]; taken {
				return nil, &ConflictError{
					Kind:  IRQLineConflict,
					NameA: owner,
					NameB: entry.Name,
					Index: entry.IRQ,
				}
			}

			irqOwner[entry.IRQ] = entry.Name
			m.irqTable = append(m.irqTable, IRQAssignment{
				Name: entry.Name,
				Line: entry.IRQ,
			})
		}

		if entry.HasRegion {
			for _, prev := range m.memTable {
				if prev.Region.Overlaps(entry.Region) {
					return nil, &ConflictError{
						Kind:    RegionConflict,
						NameA:   prev.Name,
						NameB:   entry.Name,
						RegionA: prev.Region,
						RegionB: entry.Region,
					}
				}
			}

			m.memTable = append(m.memTable, MemAssignment{
				Name:   entry.Name,
				Region: entry.Region,
			})
		}

		m.byName[entry.Name] = entry
	}

	return m, nil
}

// CSRTable returns the control register table in profile order.
func (m *Map) CSRTable() []CSRAssignment {
	table := make([]CSRAssignment, len(m.csrTable))
	copy(table, m.csrTable)

	return table
}

// IRQTable returns the interrupt table in profile order.
func (m *Map) IRQTable() []IRQAssignment {
	table := make([]IRQAssignment, len(m.irqTable))
	copy(table, m.irqTable)

	return table
}

// MemTable returns the memory region table in profile order.
func (m *Map) MemTable() []MemAssignment {
	table := make([]MemAssignment, len(m.memTable))
	copy(table, m.memTable)

	return table
}

// Index returns the control register index of the named peripheral.
func (m *Map) Index(name string) (int, bool) {
	entry, found := m.byName[name]
	if !found || !entry.HasIndex {
		return 0, false
	}

	return entry.Index, true
}

// IRQ returns the interrupt line of the named peripheral.
func (m *Map) IRQ(name string) (int, bool) {
	entry, found := m.byName[name]
	if !found || !entry.HasIRQ {
		return 0, false
	}

	return entry.IRQ, true
}

// Region returns the memory region of the named peripheral.
func (m *Map) Region(name string) (Region, bool) {
	entry, found := m.byName[name]
	if !found || !entry.HasRegion {
		return Region{}, false
	}

	return entry.Region, true
}

// FindRegion returns the region that the address falls in, considering both
// direct and shadow windows.
func (m *Map) FindRegion(addr uint64) (MemAssignment, bool) {
	for _, a := range m.memTable {
		if a.Region.Contains(addr) {
			return a, true
		}
	}

	return MemAssignment{}, false
}
