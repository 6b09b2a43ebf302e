package negamax

import (
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

// DefaultCapacity is a prime close to 2^23.
const DefaultCapacity = 8388593

const entrySize = 16

const depthMask = (1 << 6) - 1

// 16 bytes (entrySize)
type TableEntry struct {
	key          uint64
	score        int16
	flagAndDepth uint8
	// play is the best move found plus one; zero means no move was stored.
	play uint8
}

func (t TableEntry) flag() uint8 {
	return t.flagAndDepth >> 6
}

func (t TableEntry) depth() uint8 {
	return t.flagAndDepth & depthMask
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag() != 0
}

// move returns the stored best move, or -1.
func (t TableEntry) move() int {
	return int(t.play) - 1
}

func newEntry(score int16, flag uint8, depth int, bestMove int) TableEntry {
	e := TableEntry{score: score, flagAndDepth: flag<<6 | uint8(depth)&depthMask}
	if bestMove >= 0 {
		e.play = uint8(bestMove + 1)
	}
	return e
}

// TranspositionTable is a fixed-size, lossy cache of search results. A
// key maps to the slot key % capacity and every store overwrites the slot.
// It is not safe for concurrent stores; give each searching goroutine its
// own table.
type TranspositionTable struct {
	table        []TableEntry
	created      atomic.Uint64
	lookups      atomic.Uint64
	hits         atomic.Uint64
	t2collisions atomic.Uint64
}

// TableStats is a snapshot of the table counters.
type TableStats struct {
	Capacity     int    `yaml:"capacity"`
	Created      uint64 `yaml:"created"`
	Lookups      uint64 `yaml:"lookups"`
	Hits         uint64 `yaml:"hits"`
	T2Collisions uint64 `yaml:"t2_collisions"`
}

func NewTranspositionTable(capacity int) *TranspositionTable {
	t := &TranspositionTable{}
	t.allocate(capacity)
	return t
}

func (t *TranspositionTable) Capacity() int {
	return len(t.table)
}

func (t *TranspositionTable) lookup(key uint64) TableEntry {
	t.lookups.Add(1)
	idx := key % uint64(len(t.table))
	if t.table[idx].key != key {
		if t.table[idx].valid() {
			// There is another unrelated position in this slot.
			t.t2collisions.Add(1)
		}
		return TableEntry{}
	}
	t.hits.Add(1)
	return t.table[idx]
}

func (t *TranspositionTable) store(key uint64, tentry TableEntry) {
	idx := key % uint64(len(t.table))
	tentry.key = key
	// just overwrite whatever is there.
	t.table[idx] = tentry
	t.created.Add(1)
}

// Lookup returns the stored depth, flag and value for key. A slot holding a
// different key is a miss.
func (t *TranspositionTable) Lookup(key uint64) (depth int, flag uint8, value int16, ok bool) {
	e := t.lookup(key)
	if !e.valid() {
		return 0, 0, 0, false
	}
	return int(e.depth()), e.flag(), e.score, true
}

// Store writes an entry unconditionally.
func (t *TranspositionTable) Store(key uint64, depth int, flag uint8, value int16) {
	t.store(key, newEntry(value, flag, depth, -1))
}

func (t *TranspositionTable) allocate(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if t.table != nil && len(t.table) == capacity {
		clear(t.table)
	} else {
		t.table = make([]TableEntry, capacity)
	}
	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}

// Reset sizes the table to a fraction of the total system memory and
// empties it. Keys are spread by modulo, so any capacity works; an odd one
// is picked to avoid lining up with the column lanes of the key.
func (t *TranspositionTable) Reset(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	numElems := int(desiredNElems) | 1
	if desiredNElems < 1 {
		// memory could not be determined.
		numElems = DefaultCapacity
	}
	t.allocate(numElems)

	log.Info().Int("num-elems", numElems).
		Float64("desired-num-elems", desiredNElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-size")
}

// Clear empties the table without changing its size.
func (t *TranspositionTable) Clear() {
	t.allocate(len(t.table))
}

func (t *TranspositionTable) Stats() TableStats {
	return TableStats{
		Capacity:     len(t.table),
		Created:      t.created.Load(),
		Lookups:      t.lookups.Load(),
		Hits:         t.hits.Load(),
		T2Collisions: t.t2collisions.Load(),
	}
}
