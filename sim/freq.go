package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency.
type Freq float64

// Defines the unit of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// cycleEpsilon absorbs floating-point error when converting a time to a
// position on the tick grid. It is measured in cycles.
const cycleEpsilon = 1e-6

// Period returns the time between two consecutive ticks.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}
	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of elapsed cycles.
func (f Freq) Cycle(t VTimeInSec) uint64 {
	return uint64(math.Round(float64(t) * float64(f)))
}

// ThisTick returns the current tick time. If the given time is not on a tick
// boundary, it returns the next tick time.
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	count := math.Ceil(float64(now)*float64(f) - cycleEpsilon)
	return VTimeInSec(count / float64(f))
}

// NextTick returns the next tick time that is strictly after the given time.
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	count := math.Floor(float64(now)*float64(f) + cycleEpsilon)
	return VTimeInSec((count + 1) / float64(f))
}

// NCyclesLater returns the time after N cycles, aligned to the tick grid.
func (f Freq) NCyclesLater(n int, now VTimeInSec) VTimeInSec {
	count := math.Floor(float64(now)*float64(f) + cycleEpsilon)
	return VTimeInSec((count + float64(n)) / float64(f))
}

// NoEarlierThan returns the tick time that is either at or immediately after
// the given time.
func (f Freq) NoEarlierThan(t VTimeInSec) VTimeInSec {
	return f.ThisTick(t)
}
