// Package engine holds the two mutually-referencing core types of the
// parallel SCC search: Cell (one per vertex, tracking ownership, rank, and
// the neighbor frontier) and Search (one per concurrent DFS, owning two
// stacks of *Cell). They live in the same package because each genuinely
// needs the other's concrete type -- a Cell's status is "owned by a
// *Search" and a Search's stacks are "[]*Cell" -- exactly as the original
// C++ keeps Cell<V> and Search as mutually referencing types in one
// translation unit.
package engine

import (
	"sync/atomic"

	"github.com/parascc/partarjan/internal/blockedlist"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/refcount"
)

// ClaimResult reports the outcome of a Cell.Claim attempt.
type ClaimResult int

const (
	// Claimed means the calling search now owns the cell.
	Claimed ClaimResult = iota
	// AlreadyComplete means the cell had already finished its SCC.
	AlreadyComplete
	// Occupied means another live search already owns the cell.
	Occupied
)

// sentinel searches stand in for the untyped NEW/COMPLETE states the
// original C++ represents as fake Search* values (CellStatus::NEW_CELL,
// CellStatus::COMPLETE_CELL in typedefs.h). They are never scheduled and
// compared only by pointer identity.
var (
	newSentinel      = &Search{}
	completeSentinel = &Search{}
)

// Cell is the per-vertex state shared by every search that visits it. Its
// lifetime spans many recycles: Age distinguishes one incarnation from the
// next so that stale WeakRefs taken before a recycle are detected rather
// than silently reused.
type Cell struct {
	Vertex graph.Vertex

	// Index and Rank are Tarjan's discovery index and lowlink, valid only
	// while the cell is owned (status neither NEW nor COMPLETE).
	Index uint32
	rank  atomic.Uint32

	status atomic.Pointer[Search]
	age    atomic.Uint32

	blocked *blockedlist.List[Search]
	refs    refcount.Counter

	// neighbors is the remaining unexplored frontier, as weak references
	// taken at claim time (onNeighbor age snapshots protect against a
	// neighbor cell being recycled between discovery and visit).
	neighbors []refcount.WeakRef[Cell]
	nextNbr   int
}

// NewCell constructs a cell for vertex v in its initial NEW state.
func NewCell(v graph.Vertex, blockedP uint) *Cell {
	c := &Cell{Vertex: v, blocked: blockedlist.New[Search](blockedP)}
	c.status.Store(newSentinel)
	c.refs.Bump()
	return c
}

// CurrentAge implements refcount.Aged.
func (c *Cell) CurrentAge() uint32 { return c.age.Load() }

// IsNew reports whether the cell has never been claimed in its current
// incarnation (age must match, since a recycled cell resets to NEW too).
func (c *Cell) IsNew(age uint32) bool {
	return c.age.Load() == age && c.status.Load() == newSentinel
}

// IsComplete reports whether the cell finished its SCC in its current
// incarnation.
func (c *Cell) IsComplete(age uint32) bool {
	return c.age.Load() == age && c.status.Load() == completeSentinel
}

// isUnclaimed reports whether a weak reference is safe to grab: the cell
// is still NEW or already COMPLETE as of the snapshot age carried by the
// reference, or the cell has since moved on to a different incarnation
// entirely (age mismatch), in which case whatever it once meant for this
// reference is moot either way. Mirrors cell.h's isUnclaimed, which ORs
// the same three conditions.
func isUnclaimed(ref refcount.WeakRef[Cell]) bool {
	if ref.Zero() {
		return false
	}
	return ref.Ptr.IsNew(ref.AgeAtRef) || ref.Ptr.IsComplete(ref.AgeAtRef) || ref.Ptr.CurrentAge() != ref.AgeAtRef
}

// Owner returns the search that currently owns the cell, or nil if the
// cell is NEW or COMPLETE.
func (c *Cell) Owner() *Search {
	s := c.status.Load()
	if s == newSentinel || s == completeSentinel {
		return nil
	}
	return s
}

// OnStackOf reports whether this cell is already owned by s (i.e. sitting
// on s's Tarjan stack right now).
func (c *Cell) OnStackOf(s *Search) bool {
	return c.status.Load() == s
}

// Claim attempts to transition the cell from NEW to owned by s. It reports
// Claimed, AlreadyComplete, or Occupied -- it never retries past a single
// observed occupant, matching the original's single-CAS claim().
func (c *Cell) Claim(s *Search) ClaimResult {
	cur := c.status.Load()
	switch cur {
	case completeSentinel:
		return AlreadyComplete
	case newSentinel:
		if c.status.CompareAndSwap(newSentinel, s) {
			return Claimed
		}
		cur = c.status.Load()
		if cur == completeSentinel {
			return AlreadyComplete
		}
		return Occupied
	default:
		return Occupied
	}
}

// ClaimOrFail is the boolean-only variant used by the stealing queue and
// coordinator when distinguishing Occupied from AlreadyComplete does not
// matter -- only whether s now owns the cell.
func (c *Cell) ClaimOrFail(s *Search) bool {
	return c.Claim(s) == Claimed
}

// MarkComplete transitions the cell to COMPLETE. Callers must hold
// ownership (be the current owner) before calling this.
func (c *Cell) MarkComplete() {
	c.status.Store(completeSentinel)
}

// InitIndex assigns this cell's Tarjan index/rank when it is first pushed
// onto a search's stacks.
func (c *Cell) InitIndex(idx uint32) {
	c.Index = idx
	c.rank.Store(idx)
}

// Rank returns the current lowlink value.
func (c *Cell) Rank() uint32 { return c.rank.Load() }

// Promote lowers the cell's rank to min(current, candidate). Only the
// owning search's single worker goroutine calls this, so a plain
// load-compare-store is sufficient -- no other goroutine mutates Rank for
// a cell this search owns.
func (c *Cell) Promote(candidateRank uint32) {
	if candidateRank < c.rank.Load() {
		c.rank.Store(candidateRank)
	}
}

// Transfer reassigns this cell to newOwner with its index/rank shifted by
// delta, the way stack-transfer re-bases a suffix of cells moved from one
// search's stacks onto another's. It is only safe when called from a
// suspension resolution whose caller holds the cycle's consensus token,
// so no other goroutine writes the cell meanwhile.
func (c *Cell) Transfer(delta uint32, newOwner *Search) {
	c.Index += delta
	c.rank.Store(c.rank.Load() + delta)
	c.status.Store(newOwner)
}

// AddNeighbor appends a newly-discovered successor cell to this cell's
// unexplored frontier.
func (c *Cell) AddNeighbor(n *Cell, age uint32) {
	c.neighbors = append(c.neighbors, refcount.WeakRef[Cell]{Ptr: n, AgeAtRef: age})
}

// BestNeighbor implements the original's neighbor-choice heuristic:
// prefer the most recently discovered neighbor (back of the slice) if it
// is still unclaimed or already on this cell's own stack, since revisiting
// it is cheap and likely to extend the current search without contention;
// otherwise scan from the front for the first such candidate. If nothing
// qualifies, fall back to popping the back entry anyway so the caller can
// attempt (and likely fail, cheaply) a claim.
func (c *Cell) BestNeighbor(self *Search) (refcount.WeakRef[Cell], bool) {
	for len(c.neighbors) > 0 {
		back := c.neighbors[len(c.neighbors)-1]
		if back.Zero() {
			c.neighbors = c.neighbors[:len(c.neighbors)-1]
			continue
		}
		if isUnclaimed(back) || back.Ptr.OnStackOf(self) {
			c.neighbors = c.neighbors[:len(c.neighbors)-1]
			return back, true
		}

		for i := 0; i < len(c.neighbors)-1; i++ {
			cand := c.neighbors[i]
			if cand.Zero() {
				continue
			}
			if isUnclaimed(cand) || cand.Ptr.OnStackOf(self) {
				c.neighbors = append(c.neighbors[:i], c.neighbors[i+1:]...)
				return cand, true
			}
		}

		c.neighbors = c.neighbors[:len(c.neighbors)-1]
		return back, true
	}
	return refcount.WeakRef[Cell]{}, false
}

// BlockSearch records s as blocked on this cell becoming complete.
func (c *Cell) BlockSearch(s *Search) {
	c.blocked.PushBack(s)
}

// BlockedSearches exposes the blocked list for bulk-unsuspend scans.
func (c *Cell) BlockedSearches() *blockedlist.List[Search] { return c.blocked }

// Recycle bumps the age (invalidating all outstanding weak references) and
// resets the cell to NEW, ready for reuse from the worker's free list of
// spare cells. The blocked list is only reset if it was ever written to,
// matching the original's "only clear if non-empty" shortcut.
func (c *Cell) Recycle() {
	if c.blocked.Size() > 0 {
		c.blocked.Reset()
	}
	c.neighbors = c.neighbors[:0]
	c.nextNbr = 0
	c.age.Add(1)
	c.status.Store(newSentinel)
}

// InitCell re-arms a recycled cell for a fresh vertex, bumping the
// artificial refcount that keeps it alive for the duration of ownership.
func (c *Cell) InitCell(v graph.Vertex) {
	c.Vertex = v
	c.status.Store(newSentinel)
	c.refs.Bump()
}

// PermitRecycling releases the artificial reference taken at InitCell
// time; once the count reaches zero the cell may be recycled.
func (c *Cell) PermitRecycling() bool {
	return c.refs.Release()
}

// GetReference promotes a weak reference to a strong one, but only if the
// cell's age still matches expectedAge -- otherwise the cell has already
// been recycled for a different vertex and the reference is stale.
func (c *Cell) GetReference(expectedAge uint32) (refcount.Ref, bool) {
	if c.age.Load() != expectedAge {
		return refcount.Ref{}, false
	}
	return c.refs.Promote()
}

// WeakRef takes a weak reference to this cell at its current age.
func (c *Cell) WeakRef() refcount.WeakRef[Cell] {
	return refcount.WeakRef[Cell]{Ptr: c, AgeAtRef: c.age.Load()}
}
