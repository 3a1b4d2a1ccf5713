// Package suspension implements the blocking-cycle detection and
// resolution protocol: when a search reaches a cell owned by another
// search, it suspends on that cell, and the manager checks whether the
// chain of "who's blocked on whom" loops back to the suspending search
// itself. If it does, the searches along that loop all hold cells from
// the same still-unfinished SCC, and exactly one of them (chosen by a
// CAS-guarded consensus token) gets to fold everyone else's frontier into
// its own via a stack transfer so the deadlock resolves instead of
// spinning forever.
//
// Grounded statement-for-statement on the original's suspensionManager.cpp.
package suspension

import (
	"unsafe"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/pendingqueue"
)

// Outcome reports what Suspend decided.
type Outcome int

const (
	// Suspended means the search is now parked waiting on conflictCell.
	Suspended Outcome = iota
	// Resumed means the search can continue immediately -- either the
	// conflict cell was already complete, or a blocking cycle was found
	// and resolved in the search's favor via stack transfer.
	Resumed
)

// Manager runs the suspend/detect/resolve protocol for one coordinator
// run. It is stateless across calls except for the Pending queue it
// feeds resumable searches into.
type Manager struct {
	pending *pendingqueue.Queue
}

// New builds a Manager that hands resumed searches to pending.
func New(pending *pendingqueue.Queue) *Manager {
	return &Manager{pending: pending}
}

// pathStep records one hop of the blocking chain during cycle detection.
type pathStep struct {
	search    *engine.Search
	cell      *engine.Cell
	searchAge uint32
	cellAge   uint32
}

// Suspend parks sn on conflictCell, then checks whether doing so closed a
// cycle of blocked searches. If it did, and this call wins the consensus
// race to resolve it, the conflicting cells are transferred onto sn's
// stacks and Resumed is returned along with any searches from the
// resolved cycle whose stacks emptied out as a result (the caller's
// worker should return these to its free list); otherwise Suspended is
// returned and the worker loop moves on to another search.
func (m *Manager) Suspend(sn *engine.Search, conflictCell *engine.Cell) (Outcome, []*engine.Search) {
	snAge := sn.Age()

	conflictCell.BlockSearch(sn)
	sn.SuspendOn(conflictCell)

	if conflictCell.IsComplete(conflictCell.CurrentAge()) {
		if sn.ClearBlockedOnCAS(conflictCell) {
			return Resumed, nil
		}
		return Suspended, nil
	}

	path, ok := firstPass(sn)
	if !ok {
		return Suspended, nil
	}

	minIdx, ok := secondPass(sn, snAge, path)
	if !ok {
		return Suspended, nil
	}

	minSearch := path[minIdx].search
	if !minSearch.AgeCAS(path[minIdx].searchAge, path[minIdx].searchAge+1) {
		return Suspended, nil
	}

	sn.ClearBlockedOnCAS(conflictCell)

	runCellTransfer(path, sn)

	minSearch.AgeAdd(1)

	var done []*engine.Search
	for _, step := range path {
		if step.search.Done() {
			done = append(done, step.search)
		}
	}

	return Resumed, done
}

// firstPass walks the blocking chain starting at sn's direct conflict,
// following owner->blockedOn links until it either returns to sn (a
// candidate cycle) or hits a dead end (no cycle, just suspend).
func firstPass(sn *engine.Search) ([]pathStep, bool) {
	var path []pathStep
	si := sn
	for {
		ci := si.BlockedOn()
		if ci == nil {
			return nil, false
		}
		ai := ci.CurrentAge()
		if si.BlockedOn() != ci {
			return nil, false
		}

		next := ci.Owner()
		if next == nil {
			return nil, false
		}
		li := next.Age()
		if li&1 == 1 {
			// Someone else is already resolving a cycle through here.
			return nil, false
		}

		path = append(path, pathStep{search: next, cell: ci, searchAge: li, cellAge: ai})
		si = next
		if si == sn {
			return path, true
		}
	}
}

// secondPass re-walks the same chain recorded by firstPass, confirming
// every step is unchanged (same cell, same owner, same ages). If anything
// moved, the apparent cycle was transient and the caller must suspend
// instead of resolving. On success it returns the index of the path
// entry holding the numerically-lowest search pointer, used as the
// consensus tiebreak so only one participant attempts the resolution.
func secondPass(sn *engine.Search, snAge uint32, path []pathStep) (minIdx int, ok bool) {
	n := len(path)
	si := sn
	for i := 0; i < n; i++ {
		ci := si.BlockedOn()
		prev := path[(i-1+n)%n].searchAge
		if si.Age() != prev {
			return 0, false
		}
		if ci != path[i].cell {
			return 0, false
		}

		next := ci.Owner()
		if next != path[i].search {
			return 0, false
		}
		if ci.CurrentAge() != path[i].cellAge {
			return 0, false
		}

		if lessSearch(next, path[minIdx].search) {
			minIdx = i
		}
		si = next
	}

	// path[0].cell is always conflictCell: the first pass's opening read
	// was sn.BlockedOn() itself. Re-check it fresh in case a concurrent
	// BulkUnsuspend cleared sn's blockedOn out from under us (the cell it
	// was waiting on completed mid-walk), and check sn's own age against
	// what the walk recorded for it (path[n-1].search is sn, since the
	// chain closes back onto the suspending search) to catch a consensus
	// claim racing in on sn from some other cycle's resolution.
	last := path[n-1]
	if sn.BlockedOn() != path[0].cell || snAge != last.searchAge {
		return 0, false
	}
	return minIdx, true
}

// lessSearch provides the arbitrary-but-stable tiebreak the original gets
// for free from raw pointer comparison.
func lessSearch(a, b *engine.Search) bool {
	return uintptr(unsafe.Pointer(a)) < uintptr(unsafe.Pointer(b))
}

// runCellTransfer folds every search in path (except the last, which is
// sn itself) into sn via TransferCells, then adjusts sn's new stack top
// rank to account for the cell the second-to-last search was blocked on.
func runCellTransfer(path []pathStep, sn *engine.Search) {
	for i := 0; i < len(path)-1; i++ {
		engine.TransferCells(path[i].search, sn, path[i].cell)
	}
	if !sn.ControlEmpty() {
		sn.ControlTop().Promote(path[len(path)-1].cell.Index)
	}
}

// BulkUnsuspend scans every search recorded as blocked on completeCell
// and, for each one still actually suspended there (verified with a CAS
// rather than trusting the list, since entries are never removed from
// it), clears its blockedOn field and enqueues it onto pending for a
// worker to pick back up.
func (m *Manager) BulkUnsuspend(completeCell *engine.Cell) {
	completeCell.BlockedSearches().ForEach(func(s *engine.Search) {
		if s.ClearBlockedOnCAS(completeCell) {
			m.pending.Add(s)
		}
	})
}
