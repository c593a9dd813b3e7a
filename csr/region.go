// Package csr keeps the bookkeeping of a system on chip: control register
// indices, interrupt lines, and memory regions. Peripheral allocations are
// collected in profiles, profiles are merged in layers, and a resolved map
// is the single source of truth for address decoding and artifact emission.
package csr

import "fmt"

// A Region is a window in the physical address space. A region with a
// non-zero Shadow is also visible at the shadow address, backed by the same
// peripheral.
type Region struct {
	Base   uint64
	Size   uint64
	Shadow uint64
}

// Contains tells if the address falls in the region, through either the
// direct or the shadow window.
func (r Region) Contains(addr uint64) bool {
	for _, w := range r.windows() {
		if addr >= w[0] && addr < w[0]+r.Size {
			return true
		}
	}

	return false
}

// Offset converts an address in any window of the region to the offset from
// the start of the region. It panics if the address is not in the region.
func (r Region) Offset(addr uint64) uint64 {
	for _, w := range r.windows() {
		if addr >= w[0] && addr < w[0]+r.Size {
			return addr - w[0]
		}
	}

	panic(fmt.Sprintf("address 0x%x is not in the region", addr))
}

// Overlaps tells if any window of the region intersects any window of the
// other region.
func (r Region) Overlaps(other Region) bool {
	for _, w1 := range r.windows() {
		for _, w2 := range other.windows() {
			if w1[0] < w2[0]+other.Size && w2[0] < w1[0]+r.Size {
				return true
			}
		}
	}

	return false
}

// End returns the first address after the direct window.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

func (r Region) String() string {
	if r.Shadow != 0 {
		return fmt.Sprintf("[0x%08x, 0x%08x), shadow 0x%08x",
			r.Base, r.Base+r.Size, r.Shadow)
	}

	return fmt.Sprintf("[0x%08x, 0x%08x)", r.Base, r.Base+r.Size)
}

func (r Region) windows() [][2]uint64 {
	windows := [][2]uint64{{r.Base, r.Size}}
	if r.Shadow != 0 {
		windows = append(windows, [2]uint64{r.Shadow, r.Size})
	}

	return windows
}
