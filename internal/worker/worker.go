// Package worker implements one goroutine's DFS step loop: drive a
// search forward one cell at a time, claim or suspend on each neighbor,
// and emit finished SCCs as the control stack unwinds.
//
// Grounded on worker.cpp's Worker::execute/initNeighbors/buildSCC/
// buildSingletonSCC, adapted from the original's thread-per-Worker-object
// model to one Worker struct driven by a single goroutine that the
// coordinator launches with runtime.LockOSThread, matching the spec's
// "parallel OS threads, one per worker, no green threads" requirement.
package worker

import (
	"context"
	"runtime"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/invariant"
	"github.com/parascc/partarjan/internal/obslog"
	"github.com/parascc/partarjan/internal/suspension"
	"github.com/parascc/partarjan/internal/vertexmap"
)

// Scheduler is the subset of coordinator behavior a Worker needs: pulling
// pending/root searches and resolving a claim conflict. Implemented by
// internal/coordinator.Coordinator; expressed as an interface here purely
// to avoid worker importing coordinator (coordinator already imports
// worker).
type Scheduler interface {
	Suspend(sn *engine.Search, conflict *engine.Cell) (suspension.Outcome, []*engine.Search)
	ResumeAllBlockedOn(cell *engine.Cell)
	NextSearch(w *Worker) *engine.Search
}

// Worker runs one goroutine's share of the parallel search. It owns its
// own spare-cell/spare-search free lists so recycling never needs a lock.
type Worker struct {
	ID        int
	Mask      uint64
	graph     graph.Graph
	vmap      *vertexmap.Map
	scheduler Scheduler
	log       obslog.Logger
	blockedP  uint

	spareCell   *engine.Cell
	spareSearch *engine.Search

	recycledCells  []*engine.Cell
	recycledSearch []*engine.Search

	// SCCs accumulates this worker's share of the result; the coordinator
	// concatenates every worker's slice once all goroutines finish.
	SCCs [][]graph.Vertex
}

// New builds a Worker with its own spare cell/search ready to go.
func New(id int, g graph.Graph, vmap *vertexmap.Map, sched Scheduler, log obslog.Logger, blockedP uint) *Worker {
	w := &Worker{
		ID:        id,
		Mask:      1 << uint(id),
		graph:     g,
		vmap:      vmap,
		scheduler: sched,
		log:       log,
		blockedP:  blockedP,
	}
	w.AllocateSpareCell()
	w.spareSearch = engine.NewSearch()
	return w
}

// Run is the goroutine body: pin to an OS thread and loop fetching and
// executing searches until the scheduler reports no more work anywhere or
// ctx is cancelled. An invariant.Error panic raised anywhere in the
// loop (an unreachable invariant violation) is recovered here and turned
// into a clean error return, the way the teacher's detector goroutines
// recover instrumentation panics before they cross a goroutine boundary.
func (w *Worker) Run(ctx context.Context) (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(invariant.Error); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		search := w.scheduler.NextSearch(w)
		if search == nil {
			return nil
		}
		w.execute(search)
	}
}

// execute drives one search forward until its control stack empties,
// handling neighbor claims, suspensions, and SCC emission as cells finish.
func (w *Worker) execute(search *engine.Search) {
	for !search.ControlEmpty() {
		curr := search.ControlTop()

		succ, hasMore := curr.BestNeighbor(search)
		if hasMore {
			ref, ok := succ.Ptr.GetReference(succ.AgeAtRef)
			if !ok || succ.Ptr.IsComplete(succ.AgeAtRef) {
				ref.Release()
				continue
			}
			child := succ.Ptr
			_ = ref // held until this neighbor has been handled; released on every path below

			if child.OnStackOf(search) {
				curr.Promote(child.Index)
				ref.Release()
				continue
			}

			switch child.Claim(search) {
			case engine.Claimed:
				search.PushToStacks(child)
				w.initNeighbors(child)
			case engine.Occupied:
				ref.Release()
				outcome, done := w.scheduler.Suspend(search, child)
				w.reclaimDone(done)
				if outcome == suspension.Suspended {
					return
				}
				continue
			case engine.AlreadyComplete:
				// nothing to do
			}
			ref.Release()
			continue
		}

		search.PopControl()
		if !search.ControlEmpty() {
			search.ControlTop().Promote(curr.Rank())
		}

		if curr.Index == curr.Rank() {
			if curr == search.TarjanTop() {
				w.buildSingletonSCC(search, curr)
			} else {
				w.buildSCC(search, curr)
			}
		}
	}

	w.reclaim(search)
}

// initNeighbors populates cell's unexplored frontier with a Cell for
// every successor vertex, allocating fresh vertex-map entries (and spare
// cells to back them) as needed.
func (w *Worker) initNeighbors(cell *engine.Cell) {
	for _, succ := range w.graph.Neighbors(cell.Vertex) {
		w.spareCell.InitCell(succ)
		neighbor, created := w.vmap.PutIfAbsent(succ, w.spareCell)
		if created {
			w.AllocateSpareCell()
		}

		age := neighbor.CurrentAge()
		if !neighbor.IsComplete(age) {
			cell.AddNeighbor(neighbor, age)
		}
	}
}

// buildSCC pops the run of cells from search's Tarjan stack down to and
// including head, marks them complete, resumes anything blocked on them,
// and emits the collected vertex set as one SCC.
func (w *Worker) buildSCC(search *engine.Search, head *engine.Cell) {
	var scc []graph.Vertex

	search.TarjanTop().MarkComplete()
	popped := []*engine.Cell{search.PopTarjan()}
	for popped[len(popped)-1] != head {
		c := search.PopTarjan()
		c.MarkComplete()
		popped = append(popped, c)
	}

	for _, c := range popped {
		w.scheduler.ResumeAllBlockedOn(c)
		w.releaseCell(c)
		scc = append(scc, c.Vertex)
	}

	w.SCCs = append(w.SCCs, scc)
}

// buildSingletonSCC handles the common case of a cell whose rank equals
// its own index and which sits alone atop the Tarjan stack: it forms an
// SCC of size one all by itself.
func (w *Worker) buildSingletonSCC(search *engine.Search, cell *engine.Cell) {
	search.PopTarjan()
	cell.MarkComplete()
	w.scheduler.ResumeAllBlockedOn(cell)
	w.releaseCell(cell)
	w.SCCs = append(w.SCCs, []graph.Vertex{cell.Vertex})
}

// releaseCell drops the artificial reference a cell carries from the
// moment it is claimed. If that was the last outstanding reference,
// Reference.cpp's deleter would call recycleThis() on it in the
// original; here that means bumping its age and handing it back to this
// worker's free list so AllocateSpareCell can reissue it.
func (w *Worker) releaseCell(c *engine.Cell) {
	if c.PermitRecycling() {
		c.Recycle()
		w.recycledCells = append(w.recycledCells, c)
	}
}

// reclaim returns search to the free list once its control stack is
// empty and it holds no more cells worth keeping around.
func (w *Worker) reclaim(search *engine.Search) {
	search.Reset()
	w.recycledSearch = append(w.recycledSearch, search)
}

// reclaimDone reclaims every search a suspension resolution reported as
// finished (empty stacks after folding into the winner).
func (w *Worker) reclaimDone(done []*engine.Search) {
	for _, s := range done {
		w.reclaim(s)
	}
}

// AllocateSpareCell hands w a fresh spare cell, reusing a recycled one
// when available instead of allocating. Returns the new spare, primarily
// for the stealing queue's "allocate replacement" callback.
func (w *Worker) AllocateSpareCell() *engine.Cell {
	if n := len(w.recycledCells); n > 0 {
		w.spareCell = w.recycledCells[n-1]
		w.recycledCells = w.recycledCells[:n-1]
		w.spareCell.InitCell(0)
		return w.spareCell
	}
	w.spareCell = engine.NewCell(0, w.blockedP)
	return w.spareCell
}

// AllocateSpareSearch hands w a fresh spare search for a new root,
// reusing a recycled one when available. Exposed for the coordinator's
// NextSearch implementation.
func (w *Worker) AllocateSpareSearch() *engine.Search {
	var s *engine.Search
	if n := len(w.recycledSearch); n > 0 {
		s = w.recycledSearch[n-1]
		w.recycledSearch = w.recycledSearch[:n-1]
	} else {
		s = engine.NewSearch()
	}
	w.spareSearch = s
	return s
}

// SpareCell exposes the current spare cell to the stealing queue.
func (w *Worker) SpareCell() *engine.Cell { return w.spareCell }

// SpareSearch exposes the current spare search to the coordinator.
func (w *Worker) SpareSearch() *engine.Search { return w.spareSearch }

// InitNeighbors exposes initNeighbors for the coordinator's root-claim
// path (a freshly claimed root needs its frontier populated exactly like
// any other claimed cell).
func (w *Worker) InitNeighbors(cell *engine.Cell) { w.initNeighbors(cell) }
