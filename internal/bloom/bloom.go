// Package bloom implements the Bloom filter used by the LIP operator
// (spec §4.7): a fixed-size bit array sized off a target false-positive
// rate, with rolling hit-rate bookkeeping so LIP can reorder filters by
// observed selectivity between probe batches.
package bloom

import (
	"math"
	"math/bits"
	"math/rand"
)

// DefaultMemory is the default rolling-history window length (spec §6.4).
const DefaultMemory = 10

// Filter is one Bloom filter instance, sized for n expected keys at a
// target false-positive rate epsilon.
type Filter struct {
	numHashes int
	numCells  uint64
	bits      []byte
	seeds     []uint64

	memory  int
	history []histEntry // rolling window, oldest first
	hits    uint64
	probes  uint64
	sumHits uint64
	sumProbes uint64

	// ForeignKeyColumn is the fact-table column this filter gates (spec
	// §4.7 "Construction"); it is plain data the LIP operator reads. The
	// rolling-window length is kept in the unexported memory field.
	ForeignKeyColumn string
}

type histEntry struct {
	hits, probes uint64
}

// New allocates a Bloom filter sized for n expected keys at false-positive
// rate epsilon (spec §4.7 "Bloom filter semantics"):
//
//	num_hashes = round(-log2(epsilon))
//	num_cells  = n * num_hashes / ln(2)
//	num_bytes  = ceil(num_cells / 8)
func New(n int, epsilon float64, memory int, fkColumn string) *Filter {
	if memory <= 0 {
		memory = DefaultMemory
	}
	numHashes := int(math.Round(-math.Log2(epsilon)))
	if numHashes < 1 {
		numHashes = 1
	}
	numCells := uint64(math.Ceil(float64(n) * float64(numHashes) / math.Ln2))
	if numCells < 8 {
		numCells = 8
	}
	numBytes := (numCells + 7) / 8

	f := &Filter{
		numHashes:        numHashes,
		numCells:         numCells,
		bits:             make([]byte, numBytes),
		seeds:            make([]uint64, numHashes),
		memory:           memory,
		ForeignKeyColumn: fkColumn,
	}
	rng := rand.New(rand.NewSource(0x9E3779B97F4A7C15))
	for i := range f.seeds {
		f.seeds[i] = rng.Uint64()
	}
	return f
}

// NumHashes returns the number of hash functions used per insert/probe.
func (f *Filter) NumHashes() int { return f.numHashes }

// NumCells returns the filter's bit-array length in bits.
func (f *Filter) NumCells() uint64 { return f.numCells }

// hashBit computes the i-th hash of key reduced mod numCells, via a fixed
// 64-bit avalanche of (key<<32)^seed (spec §9: a stronger finalizer than
// the source's weak hash chain, without changing soundness).
func (f *Filter) hashBit(key uint64, i int) uint64 {
	x := (key << 32) ^ f.seeds[i]
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x % f.numCells
}

func (f *Filter) setBit(bit uint64) {
	f.bits[bit/8] |= 1 << (bit % 8)
}

func (f *Filter) testBit(bit uint64) bool {
	return f.bits[bit/8]&(1<<(bit%8)) != 0
}

// Insert sets all numHashes bits for key.
func (f *Filter) Insert(key uint64) {
	for i := 0; i < f.numHashes; i++ {
		f.setBit(f.hashBit(key, i))
	}
}

// Probe tests all numHashes bits for key, counting the call as a probe
// and, if every bit is set, as a hit (spec §4.7 "Bloom filter semantics").
// LIP is advisory: a false positive here just means one extra fact row
// survives into the real join; Probe never produces a false negative.
func (f *Filter) Probe(key uint64) bool {
	f.probes++
	for i := 0; i < f.numHashes; i++ {
		if !f.testBit(f.hashBit(key, i)) {
			return false
		}
	}
	f.hits++
	return true
}

// Update appends the current (hits, probes) counters to the rolling
// history, evicting the oldest entry once the window is full, and resets
// the instantaneous counters (spec §4.7 "update()").
func (f *Filter) Update() {
	f.history = append(f.history, histEntry{hits: f.hits, probes: f.probes})
	f.sumHits += f.hits
	f.sumProbes += f.probes
	if len(f.history) > f.memory {
		oldest := f.history[0]
		f.history = f.history[1:]
		f.sumHits -= oldest.hits
		f.sumProbes -= oldest.probes
	}
	f.hits, f.probes = 0, 0
}

// HitRate returns the rolling hits/probes ratio, defaulting to 1 when no
// probes have been recorded yet (spec §4.7 "hit_rate()").
func (f *Filter) HitRate() float64 {
	if f.sumProbes == 0 {
		return 1
	}
	return float64(f.sumHits) / float64(f.sumProbes)
}

// BitCount returns the number of set bits, for diagnostics/tests.
func (f *Filter) BitCount() int {
	n := 0
	for _, b := range f.bits {
		n += bits.OnesCount8(b)
	}
	return n
}
