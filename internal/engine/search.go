package engine

import (
	"sync/atomic"

	"github.com/parascc/partarjan/internal/invariant"
)

// Search is one concurrent depth-first traversal. It owns two parallel
// stacks of cells: tarjanStack holds every cell visited and not yet popped
// into a finished SCC, controlStack holds the subset still being explored
// (a cell leaves the control stack once all its neighbors are exhausted,
// but stays on the Tarjan stack until its SCC is built).
type Search struct {
	Worker int // which worker goroutine currently drives this search

	tarjanStack  []*Cell
	controlStack []*Cell
	cellCount    uint32

	blockedOn atomic.Pointer[Cell]

	// age is the consensus-protocol counter from suspensionManager.cpp:
	// even means idle/resolvable, odd means another thread has already won
	// the CAS race to resolve a cycle this search is part of. It is
	// distinct from Cell.age, which counts object recycles.
	age atomic.Uint32
}

// NewSearch returns a fresh, empty search.
func NewSearch() *Search { return &Search{} }

// Age returns the current consensus-protocol age.
func (s *Search) Age() uint32 { return s.age.Load() }

// AgeCAS attempts to move the age from old to new, used by the suspension
// manager's consensus token.
func (s *Search) AgeCAS(old, new uint32) bool { return s.age.CompareAndSwap(old, new) }

// AgeAdd adjusts the age by delta (typically +1 to restore even parity
// after resolving a cycle).
func (s *Search) AgeAdd(delta uint32) { s.age.Add(delta) }

// PushToStacks pushes cell onto both stacks and assigns it the next Tarjan
// index.
func (s *Search) PushToStacks(c *Cell) {
	c.InitIndex(s.cellCount)
	s.cellCount++
	s.tarjanStack = append(s.tarjanStack, c)
	s.controlStack = append(s.controlStack, c)
}

// SetRoot starts a fresh traversal at c; identical to PushToStacks, kept
// as a distinct name for call-site clarity at root selection.
func (s *Search) SetRoot(c *Cell) { s.PushToStacks(c) }

// RefreshCellCount resets cellCount to one past the current Tarjan-stack
// top's index, needed after a stack transfer changes what "next index"
// means for this search.
func (s *Search) RefreshCellCount() {
	if len(s.tarjanStack) == 0 {
		s.cellCount = 0
		return
	}
	top := s.tarjanStack[len(s.tarjanStack)-1]
	s.cellCount = top.Index + 1
}

// TarjanTop returns the top of the Tarjan stack.
func (s *Search) TarjanTop() *Cell { return s.tarjanStack[len(s.tarjanStack)-1] }

// TarjanEmpty reports whether the Tarjan stack is empty.
func (s *Search) TarjanEmpty() bool { return len(s.tarjanStack) == 0 }

// PopTarjan removes and returns the top of the Tarjan stack.
func (s *Search) PopTarjan() *Cell {
	top := s.tarjanStack[len(s.tarjanStack)-1]
	s.tarjanStack = s.tarjanStack[:len(s.tarjanStack)-1]
	return top
}

// ControlTop returns the top of the control stack.
func (s *Search) ControlTop() *Cell { return s.controlStack[len(s.controlStack)-1] }

// ControlEmpty reports whether the control stack is empty, i.e. the
// search has no more active frontier to expand.
func (s *Search) ControlEmpty() bool { return len(s.controlStack) == 0 }

// PopControl removes and returns the top of the control stack.
func (s *Search) PopControl() *Cell {
	top := s.controlStack[len(s.controlStack)-1]
	s.controlStack = s.controlStack[:len(s.controlStack)-1]
	return top
}

// Done reports whether the search has finished all its work (empty
// control stack -- it may still be waiting for a blocked cell to free its
// Tarjan-stack entries via transfer, but has no more neighbors to visit).
func (s *Search) Done() bool { return s.ControlEmpty() }

// SuspendOn records that this search is blocked waiting for conflict to
// complete.
func (s *Search) SuspendOn(conflict *Cell) { s.blockedOn.Store(conflict) }

// BlockedOn returns the cell this search is currently suspended on, or nil.
func (s *Search) BlockedOn() *Cell { return s.blockedOn.Load() }

// ClearBlockedOnCAS clears blockedOn iff it still equals expected,
// matching the original's CAS(Sn.blockedOn, expected, nullptr).
func (s *Search) ClearBlockedOnCAS(expected *Cell) bool {
	return s.blockedOn.CompareAndSwap(expected, nil)
}

// Reset rearms a recycled search for reuse from the worker's free list:
// clears both stacks, zeroes cellCount, and bumps age by 2 to
// preserve even parity while still invalidating anything that compared
// against the old value.
func (s *Search) Reset() {
	s.tarjanStack = s.tarjanStack[:0]
	s.controlStack = s.controlStack[:0]
	s.cellCount = 0
	s.blockedOn.Store(nil)
	s.age.Add(2)
}

// TransferCells moves a contiguous suffix of src's stacks -- from the top
// down to and including the boundary cell findTransferBoundary locates at
// or below conflictCell -- onto dest's stacks, re-indexed by dest's cell
// count minus the boundary cell's index so the moved cells continue
// dest's numbering. This is the core of blocking-cycle resolution: each
// other search on the cycle hands the part of its stacks involved in the
// cycle to the suspending search instead of deadlocking forever.
//
// It mirrors Search::transferCells in the original almost statement for
// statement, including the two independent reverse scans (once over the
// Tarjan stack, once over the control stack) since the two stacks hold
// overlapping but not identical cell sets.
func TransferCells(src, dest *Search, conflictCell *Cell) {
	tarjanBoundary := findTransferBoundary(src.tarjanStack, conflictCell)
	delta := dest.cellCount - src.tarjanStack[tarjanBoundary].Index

	moved := append([]*Cell(nil), src.tarjanStack[tarjanBoundary:]...)
	for _, c := range moved {
		c.Transfer(delta, dest)
	}
	dest.tarjanStack = append(dest.tarjanStack, moved...)
	src.tarjanStack = src.tarjanStack[:tarjanBoundary]

	ctrlBoundary := findTransferBoundary(src.controlStack, conflictCell)
	ctrlMoved := append([]*Cell(nil), src.controlStack[ctrlBoundary:]...)
	// cells in ctrlMoved are normally already re-based above (a subset of
	// moved); Transfer is not idempotent (it adds delta again), so only
	// cells not yet owned by dest are transferred here.
	for _, c := range ctrlMoved {
		if c.Owner() != dest {
			c.Transfer(delta, dest)
		}
	}
	dest.controlStack = append(dest.controlStack, ctrlMoved...)
	src.controlStack = src.controlStack[:ctrlBoundary]

	if len(src.tarjanStack) == 0 {
		src.blockedOn.Store(nil)
	} else {
		boundary := moved[0]
		src.SuspendOn(boundary)
		boundary.BlockSearch(src)
	}
	src.RefreshCellCount()
	dest.RefreshCellCount()
}

// findTransferBoundary scans stack from the top down, tracking the
// minimum rank seen so far (inclusive of the cell just visited), until it
// has passed conflictCell and the cell just visited has its own index no
// greater than that minimum -- i.e. it is the root of its SCC. It returns
// the index (into stack) of that cell, the same termination condition
// search.cpp's transferCells uses to find where a blocking cycle's shared
// ancestry begins.
func findTransferBoundary(stack []*Cell, conflictCell *Cell) int {
	minRank := stack[len(stack)-1].Rank()
	reachedCC := false
	for i := len(stack) - 1; i >= 0; i-- {
		c := stack[i]
		if c == conflictCell {
			reachedCC = true
		}
		if c.Rank() < minRank {
			minRank = c.Rank()
		}
		if reachedCC && c.Index <= minRank {
			return i
		}
	}
	invariant.Raise("engine", "transfer boundary not found on a stack of size %d", len(stack))
	return 0
}
