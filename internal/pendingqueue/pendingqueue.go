// Package pendingqueue implements the lock-free queue of resumable
// searches that workers drain before pulling a fresh root from the
// stealing queue.
//
// The original offers two implementations behind a common Pending
// interface -- a mutex-guarded deque and a lock-free queue built on a
// third-party MPMC structure (moodycamel::ConcurrentQueue). This package
// takes the lock-free option, built the way the teacher builds its own
// lock-free structures (CAS retry loops over atomic.Pointer, as in
// shadowmem.CASBasedShadow) rather than reaching for a channel: a Treiber
// stack of nodes, which gives push/pop in O(1) without a lock at the cost
// of LIFO rather than FIFO order -- acceptable here since nothing depends
// on resume order, only on eventually resuming everyone.
package pendingqueue

import (
	"sync/atomic"

	"github.com/parascc/partarjan/internal/engine"
)

type node struct {
	search *engine.Search
	next   *node
}

// Queue is a lock-free MPMC stack of pending searches.
type Queue struct {
	top  atomic.Pointer[node]
	size atomic.Int64
}

// New returns an empty Queue.
func New() *Queue { return &Queue{} }

// Add enqueues a single search for later resumption.
func (q *Queue) Add(s *engine.Search) {
	if s == nil {
		return
	}
	n := &node{search: s}
	for {
		old := q.top.Load()
		n.next = old
		if q.top.CompareAndSwap(old, n) {
			q.size.Add(1)
			return
		}
	}
}

// AddAll enqueues a batch of searches, skipping any nil entries, after
// the original's convention of marking searches that do not need resuming
// as null in a batch.
func (q *Queue) AddAll(batch []*engine.Search) {
	for _, s := range batch {
		q.Add(s)
	}
}

// Get pops one pending search, or returns nil if the queue is empty.
func (q *Queue) Get() *engine.Search {
	for {
		old := q.top.Load()
		if old == nil {
			return nil
		}
		if q.top.CompareAndSwap(old, old.next) {
			q.size.Add(-1)
			return old.search
		}
	}
}

// IsDone reports whether the queue is currently empty. Like the
// original's size_approx()==0, this is a point-in-time snapshot, not a
// linearizable guarantee -- callers only use it as a termination hint.
func (q *Queue) IsDone() bool { return q.top.Load() == nil }
