// Package coordinator owns the shared state one parallel SCC computation
// needs across all worker goroutines: the vertex map, the stealing queue
// handing out roots, the pending queue of resumable searches, the
// suspension manager, and the termination-detection bitmask.
//
// Grounded on multiThreadedTarjan.cpp/.hpp: Coordinator.Run corresponds to
// MultiThreadedTarjan::run, and NextSearch to MultiThreadedTarjan::getSearch
// (pending first, then the stealing queue, then participate in the
// all-workers-idle termination protocol).
package coordinator

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/obslog"
	"github.com/parascc/partarjan/internal/pendingqueue"
	"github.com/parascc/partarjan/internal/stealingqueue"
	"github.com/parascc/partarjan/internal/suspension"
	"github.com/parascc/partarjan/internal/vertexmap"
	"github.com/parascc/partarjan/internal/worker"
)

// Options configures one ComputeSCCs run.
type Options struct {
	NumThreads   int
	MapShardBits uint
	BlockedListP uint
	Logger       obslog.Logger
}

// DefaultOptions returns sane defaults: one worker per available CPU, the
// vertex map's and blocked list's pack-grounded default sizes.
func DefaultOptions() Options {
	return Options{
		NumThreads:   0, // resolved to runtime.NumCPU by New
		MapShardBits: vertexmap.DefaultShardBits,
		BlockedListP: 0, // resolved to blockedlist.DefaultP
		Logger:       obslog.NewNop(),
	}
}

// Coordinator runs one parallel SCC computation to completion.
type Coordinator struct {
	graph   graph.Graph
	vmap    *vertexmap.Map
	pending *pendingqueue.Queue
	susMgr  *suspension.Manager
	queue   *stealingqueue.Queue
	log     obslog.Logger

	blockedP   uint
	numThreads int
	allFlags   uint64
	flags      atomic.Uint64
}

// New builds a Coordinator ready to run over g with the given options.
// Zero-valued fields in opts are resolved to their documented defaults.
func New(g graph.Graph, opts Options) *Coordinator {
	if opts.MapShardBits == 0 {
		opts.MapShardBits = vertexmap.DefaultShardBits
	}
	if opts.Logger == nil {
		opts.Logger = obslog.NewNop()
	}

	numThreads := opts.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	if numThreads > 63 {
		// The termination bitmask is a single uint64; workers are
		// capped at 63, one below the original's NUM_THREADS <= 64.
		numThreads = 63
	}

	pending := pendingqueue.New()
	vmap := vertexmap.New(opts.MapShardBits)
	return &Coordinator{
		graph:      g,
		vmap:       vmap,
		pending:    pending,
		susMgr:     suspension.New(pending),
		queue:      stealingqueue.New(g.Vertices(), vmap, opts.BlockedListP),
		log:        opts.Logger,
		blockedP:   opts.BlockedListP,
		numThreads: numThreads,
	}
}

// Run spawns the configured number of worker goroutines, each pinned to
// its own OS thread, drives them to completion via errgroup, and returns
// every SCC discovered.
func (c *Coordinator) Run(ctx context.Context) ([][]graph.Vertex, error) {
	numThreads := c.numThreads
	c.allFlags = (uint64(1) << uint(numThreads)) - 1

	workers := make([]*worker.Worker, numThreads)
	for i := range workers {
		workers[i] = worker.New(i, c.graph, c.vmap, c, c.log, c.blockedP)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all [][]graph.Vertex
	for _, w := range workers {
		all = append(all, w.SCCs...)
	}
	return all, nil
}

// NextSearch implements worker.Scheduler. It drains pending first, then
// tries to claim a fresh root off the stealing queue, and finally
// participates in termination detection: a worker announces itself idle
// by setting its bit in flags, and the whole computation is done once
// every bit is set. Workers that go idle but later find a pending search
// (because another worker's suspend resolution enqueued one) simply pick
// it up on their next pass -- flags is reset to empty by the first caller
// to notice it's all set isn't needed here because all workers observing
// allFlags return nil together.
func (c *Coordinator) NextSearch(w *worker.Worker) *engine.Search {
	mask := w.Mask
	updateASAP := true

	for {
		if s := c.pending.Get(); s != nil {
			return s
		}

		root, ok := c.queue.Next(w.SpareCell(), func() *engine.Cell {
			return w.AllocateSpareCell()
		})
		if ok {
			spare := w.SpareSearch()
			if root.ClaimOrFail(spare) {
				w.InitNeighbors(root)
				spare.SetRoot(root)
				w.AllocateSpareSearch()
				return spare
			}
			continue
		}

		if updateASAP {
			c.setFlag(mask)
		}
		updateASAP = (!updateASAP) && (c.flags.Load()&mask == 0)

		if c.flags.Load() == c.allFlags {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
}

// setFlag atomically ORs mask into flags via a CAS retry loop -- the
// generic atomic.Uint64 has no built-in Or, unlike C++'s atomic<uint64_t>
// operator|=.
func (c *Coordinator) setFlag(mask uint64) {
	for {
		old := c.flags.Load()
		if old&mask != 0 {
			return
		}
		if c.flags.CompareAndSwap(old, old|mask) {
			return
		}
	}
}

// Suspend implements worker.Scheduler.
func (c *Coordinator) Suspend(sn *engine.Search, conflict *engine.Cell) (suspension.Outcome, []*engine.Search) {
	outcome, done := c.susMgr.Suspend(sn, conflict)
	if outcome == suspension.Resumed {
		// A search resuming means progress happened; clear every
		// worker's idle bit so late-arriving work isn't missed by a
		// worker that already declared itself done.
		c.flags.Store(0)
	}
	return outcome, done
}

// ResumeAllBlockedOn implements worker.Scheduler.
func (c *Coordinator) ResumeAllBlockedOn(cell *engine.Cell) {
	if cell.BlockedSearches().Size() == 0 {
		return
	}
	c.susMgr.BulkUnsuspend(cell)
	c.flags.Store(0)
}
