package worker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/obslog"
	"github.com/parascc/partarjan/internal/stealingqueue"
	"github.com/parascc/partarjan/internal/suspension"
	"github.com/parascc/partarjan/internal/vertexmap"
)

// fakeScheduler is a single-worker stand-in for internal/coordinator: it
// never needs to actually resolve a conflict, since a lone worker tracing a
// cycle always finds its own cell already on its own stack (OnStackOf)
// rather than owned by some other search.
type fakeScheduler struct {
	suspendCalls int
	resumeCalls  int
}

func (f *fakeScheduler) Suspend(*engine.Search, *engine.Cell) (suspension.Outcome, []*engine.Search) {
	f.suspendCalls++
	return suspension.Suspended, nil
}

func (f *fakeScheduler) ResumeAllBlockedOn(*engine.Cell) { f.resumeCalls++ }

func (f *fakeScheduler) NextSearch(*Worker) *engine.Search { return nil }

// claimRoot mirrors coordinator.Coordinator.NextSearch's root-claim path: a
// worker trying to start a fresh search for an unclaimed root vertex.
func claimRoot(t *testing.T, w *Worker, q *stealingqueue.Queue) *engine.Search {
	t.Helper()
	root, ok := q.Next(w.SpareCell(), w.AllocateSpareCell)
	require.True(t, ok)

	spare := w.SpareSearch()
	require.True(t, root.ClaimOrFail(spare))
	w.InitNeighbors(root)
	spare.SetRoot(root)
	w.AllocateSpareSearch()
	return spare
}

func TestExecuteSingleWorkerDAGEmitsOneSingletonPerVertex(t *testing.T) {
	g := graph.NewAdjacencyList(
		[]graph.Vertex{0, 1, 2},
		map[graph.Vertex][]graph.Vertex{0: {1}, 1: {2}, 2: nil},
	)
	vmap := vertexmap.New(0)
	sched := &fakeScheduler{}
	w := New(0, g, vmap, sched, obslog.NewNop(), 3)
	q := stealingqueue.New(g.Vertices(), vmap, 3)

	search := claimRoot(t, w, q)
	w.execute(search)

	require.Equal(t, 0, sched.suspendCalls)
	require.Equal(t, 3, sched.resumeCalls)

	require.Len(t, w.SCCs, 3)
	for _, scc := range w.SCCs {
		require.Len(t, scc, 1)
	}
	var got []graph.Vertex
	for _, scc := range w.SCCs {
		got = append(got, scc[0])
	}
	require.ElementsMatch(t, []graph.Vertex{0, 1, 2}, got)
}

func TestExecuteSingleWorkerTwoCycleFormsOneSCC(t *testing.T) {
	g := graph.NewAdjacencyList(
		[]graph.Vertex{0, 1},
		map[graph.Vertex][]graph.Vertex{0: {1}, 1: {0}},
	)
	vmap := vertexmap.New(0)
	sched := &fakeScheduler{}
	w := New(0, g, vmap, sched, obslog.NewNop(), 3)
	q := stealingqueue.New(g.Vertices(), vmap, 3)

	search := claimRoot(t, w, q)
	w.execute(search)

	require.Equal(t, 0, sched.suspendCalls)
	require.Len(t, w.SCCs, 1)
	require.ElementsMatch(t, []graph.Vertex{0, 1}, w.SCCs[0])
}

func TestExecuteSingleWorkerSelfLoopFormsSingletonSCC(t *testing.T) {
	g := graph.NewAdjacencyList([]graph.Vertex{0}, map[graph.Vertex][]graph.Vertex{0: {0}})
	vmap := vertexmap.New(0)
	sched := &fakeScheduler{}
	w := New(0, g, vmap, sched, obslog.NewNop(), 3)
	q := stealingqueue.New(g.Vertices(), vmap, 3)

	search := claimRoot(t, w, q)
	w.execute(search)

	require.Len(t, w.SCCs, 1)
	require.Equal(t, []graph.Vertex{0}, w.SCCs[0])
}

func TestQueueExhaustedAfterSingleRootCoversWholeDAG(t *testing.T) {
	g := graph.NewAdjacencyList(
		[]graph.Vertex{0, 1},
		map[graph.Vertex][]graph.Vertex{0: {1}, 1: nil},
	)
	vmap := vertexmap.New(0)
	sched := &fakeScheduler{}
	w := New(0, g, vmap, sched, obslog.NewNop(), 3)
	q := stealingqueue.New(g.Vertices(), vmap, 3)

	search := claimRoot(t, w, q)
	w.execute(search)
	require.Len(t, w.SCCs, 2)

	// Vertex 1 was already claimed as vertex 0's neighbor, so the queue's
	// own attempt to hand it out as a fresh root must find it non-NEW and
	// skip straight to exhaustion.
	_, ok := q.Next(w.SpareCell(), w.AllocateSpareCell)
	require.False(t, ok)
}
