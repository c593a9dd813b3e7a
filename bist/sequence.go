// Package bist provides the memory self-test engine, a generator that fills
// a region with an address-keyed pattern and a checker that reads it back
// and counts mismatches.
package bist

// wordBytes is the bus word size. Sequences address whole words.
const wordBytes = 4

// lfsrTaps is a maximal-length polynomial for the 32-bit Galois LFSR.
const lfsrTaps uint32 = 0xb4bcd35c

// A Sequence is a deterministic address and data program. The data pattern
// is a pure function of the absolute word address, so a generator and a
// checker built from the same sequence derive identical expectations
// without sharing state.
type Sequence struct {
	Base   uint64
	Length uint64
	Random bool
	Seed   uint32
}

// DataAt returns the word pattern stored at addr.
func (s Sequence) DataAt(addr uint64) []byte {
	word := mix32(uint32(addr/wordBytes) ^ s.Seed)

	data := make([]byte, wordBytes)
	for i := range data {
		data[i] = byte(word >> (8 * i))
	}

	return data
}

// Addresses returns a stream that walks the addresses of the sequence in
// issue order.
func (s Sequence) Addresses() *AddrStream {
	state := s.Seed
	if state == 0 {
		state = 0xace1
	}

	return &AddrStream{seq: s, state: state}
}

// An AddrStream yields the addresses of a sequence one by one.
type AddrStream struct {
	seq   Sequence
	index uint64
	state uint32
}

// Next returns the next address. The second return value is false once the
// sequence is exhausted.
func (a *AddrStream) Next() (uint64, bool) {
	if a.index >= a.seq.Length {
		return 0, false
	}

	offset := a.index
	if a.seq.Random {
		a.state = lfsrStep(a.state)
		offset = uint64(a.state) % a.seq.Length
	}

	a.index++

	return a.seq.Base + offset*wordBytes, true
}

func lfsrStep(s uint32) uint32 {
	if s&1 != 0 {
		return (s >> 1) ^ lfsrTaps
	}

	return s >> 1
}

func mix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16

	return x
}
