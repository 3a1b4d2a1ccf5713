// Package vertexmap implements the concurrent vertex->cell directory every
// worker consults to find or create the Cell for a given vertex ID.
//
// It is a sharded, open-addressed, CAS-based map: the sharding and
// per-slot atomic.Pointer CAS come straight from the teacher's
// shadowmem.CASBasedShadow (golden-ratio multiplicative hash, linear
// probing, lock-free Load/Store), generalized from a fixed 65536-slot
// array to a configurable number of independently-resizable shards. The
// resize protocol within a shard -- pin with a "members" counter, and an
// opportunistic load-factor resize only proceeds when the inserting put
// sees itself as the sole member -- is grounded on the original C++'s openAddressed.h, which
// needed the same thing because its table (unlike the teacher's, which is
// fixed-size) grows as new vertices are discovered mid-run.
package vertexmap

import (
	"sync/atomic"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/graph"
)

// DefaultShardBits is the default shard-selection width (2^12 shards),
// the value the original's openShardedMap.hpp uses.
const DefaultShardBits = 12

const (
	initialCapacity = 16
	maxProbes       = 8
	goldenRatio     = 0x9E3779B97F4A7C15
)

type entry struct {
	key  graph.Vertex
	cell *engine.Cell
}

// shard is one independently-resizable slice of the map. members counts
// in-flight put operations; maybeResize only starts a load-factor resize
// when it reads members == 1 (the calling put alone), in the spirit of
// openAddressed.h's put() growth gate. forceResize does not consult it.
type shard struct {
	table    atomic.Pointer[[]atomic.Pointer[entry]]
	size     atomic.Int64
	members  atomic.Int64
}

func newShard() *shard {
	s := &shard{}
	t := make([]atomic.Pointer[entry], initialCapacity)
	s.table.Store(&t)
	return s
}

// Map is the sharded concurrent vertex->cell directory.
type Map struct {
	shardBits uint
	shardMask uint64
	shards    []*shard
}

// New builds a Map with 2^shardBits independent shards. shardBits=0
// selects DefaultShardBits.
func New(shardBits uint) *Map {
	if shardBits == 0 {
		shardBits = DefaultShardBits
	}
	n := 1 << shardBits
	m := &Map{
		shardBits: shardBits,
		shardMask: uint64(n - 1),
		shards:    make([]*shard, n),
	}
	for i := range m.shards {
		m.shards[i] = newShard()
	}
	return m
}

func mix(key graph.Vertex) uint64 {
	h := uint64(key) * goldenRatio
	h ^= h >> 33
	h *= goldenRatio
	h ^= h >> 29
	return h
}

func (m *Map) shardFor(key graph.Vertex) *shard {
	return m.shards[mix(key)&m.shardMask]
}

// PutIfAbsent returns the cell already stored for key, or stores newCell
// and returns it if key was absent. The bool result is true iff newCell
// is the one that ended up stored (this call won the race to create it).
// This is the contract every caller (the stealing queue, neighbor
// discovery in the worker loop) depends on: exactly one *Cell per vertex
// is ever live at a time.
//
// A successful probe is only trusted once it is confirmed that s.table
// still points at the snapshot the probe read from. forceResize's
// overflow path (unlike maybeResize's opportunistic one) swaps the table
// without waiting for quiescence, so a concurrent PutIfAbsent can still be
// holding a stale snapshot when the swap happens; without this check its
// write (or its discovery of an existing entry) would land in an
// already-orphaned array and silently vanish, letting two calls for the
// same vertex each believe they created the canonical cell. Re-probing
// against whatever table is current whenever the snapshot turns out to be
// stale keeps the contract intact regardless of how the resize interleaves.
func (m *Map) PutIfAbsent(key graph.Vertex, newCell *engine.Cell) (*engine.Cell, bool) {
	s := m.shardFor(key)
	s.members.Add(1)
	defer s.members.Add(-1)

	for {
		tablePtr := s.table.Load()
		table := *tablePtr
		idx := probeHash(key, len(table))

		inserted, found := false, false
		var result *engine.Cell

	probe:
		for i := 0; i < maxProbes; i++ {
			slot := &table[(idx+i)%len(table)]
			cur := slot.Load()
			if cur == nil {
				e := &entry{key: key, cell: newCell}
				if slot.CompareAndSwap(nil, e) {
					s.size.Add(1)
					inserted, result = true, newCell
					break probe
				}
				cur = slot.Load()
				if cur == nil {
					continue
				}
			}
			if cur.key == key {
				found, result = true, cur.cell
				break probe
			}
		}

		if inserted || found {
			if s.table.Load() != tablePtr {
				// The table was swapped out from under this probe; the
				// outcome above is not guaranteed visible through the
				// current table. Retry from scratch against whatever is
				// current now.
				continue
			}
			if inserted {
				m.maybeResize(s, tablePtr)
			}
			return result, inserted
		}

		// Collision overflow: force a resize and retry the whole probe.
		m.forceResize(s, tablePtr)
	}
}

// Get looks up the cell for key without creating one.
func (m *Map) Get(key graph.Vertex) (*engine.Cell, bool) {
	s := m.shardFor(key)
	table := *s.table.Load()
	idx := probeHash(key, len(table))
	for i := 0; i < maxProbes; i++ {
		slot := &table[(idx+i)%len(table)]
		cur := slot.Load()
		if cur == nil {
			return nil, false
		}
		if cur.key == key {
			return cur.cell, true
		}
	}
	return nil, false
}

func probeHash(key graph.Vertex, capacity int) int {
	return int(mix(key) % uint64(capacity))
}

// maybeResize doubles the shard's table when its load factor crosses 0.5
// and no other put is concurrently in flight (members == 1, i.e. just
// this caller). Losing the race to be the sole member is not an error --
// it just means someone else will check again on their own next put.
func (m *Map) maybeResize(s *shard, oldPtr *[]atomic.Pointer[entry]) {
	if s.size.Load()*2 < int64(len(*oldPtr)) {
		return
	}
	if s.members.Load() != 1 {
		return
	}
	m.forceResize(s, oldPtr)
}

// forceResize grows the table unconditionally, rehashing every live
// entry. Called either from maybeResize's quiescence check or from a
// collision-overflow recovery path where correctness, not just load
// factor, demands more room. oldPtr must be the pointer observed by the
// caller (not a fresh load) so the final CompareAndSwap only succeeds if
// nobody else resized first.
func (m *Map) forceResize(s *shard, oldPtr *[]atomic.Pointer[entry]) {
	old := *oldPtr
	newCap := len(old) * 2
	newTable := make([]atomic.Pointer[entry], newCap)
	for i := range old {
		e := old[i].Load()
		if e == nil {
			continue
		}
		idx := probeHash(e.key, newCap)
		for p := 0; p < newCap; p++ {
			slot := &newTable[(idx+p)%newCap]
			if slot.CompareAndSwap(nil, e) {
				break
			}
		}
	}
	s.table.CompareAndSwap(oldPtr, &newTable)
}

// Len returns the approximate total number of entries across all shards.
// Diagnostics only.
func (m *Map) Len() int {
	total := 0
	for _, s := range m.shards {
		total += int(s.size.Load())
	}
	return total
}
