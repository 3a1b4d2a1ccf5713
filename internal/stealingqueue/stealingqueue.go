// Package stealingqueue hands out unclaimed root vertices to idle workers.
//
// Grounded on stealingQueue.cpp's UnrootedStealingQueue: an atomic cursor
// fetch-add picks the next candidate vertex, a spare cell is written with
// that vertex and raced into the vertex map, and the winner (or whoever's
// cell ended up canonical) checks whether it is still NEW -- if another
// search already claimed it, the queue moves on rather than retrying.
package stealingqueue

import (
	"sync/atomic"

	"github.com/parascc/partarjan/internal/engine"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/vertexmap"
)

// Queue distributes unexplored vertices to workers as DFS roots.
type Queue struct {
	vertices []graph.Vertex
	index    atomic.Int64
	vmap     *vertexmap.Map
	blockedP uint
}

// New builds a Queue over vertices, resolving cells through vmap. blockedP
// sizes each newly allocated cell's inline blocked-list bucket.
func New(vertices []graph.Vertex, vmap *vertexmap.Map, blockedP uint) *Queue {
	return &Queue{vertices: vertices, vmap: vmap, blockedP: blockedP}
}

// Next returns the cell for the next unclaimed root vertex, or (nil,
// false) once every vertex has been tried. spareCell is a caller-owned
// cell ready to be written with a new vertex; if this call consumes it,
// allocateSpare is invoked so the caller can hand Next a fresh one next
// time -- mirroring Worker::allocateSpareCell in the original, where a
// spare is only replaced once actually spent.
func (q *Queue) Next(spareCell *engine.Cell, allocateSpare func() *engine.Cell) (*engine.Cell, bool) {
	for {
		idx := q.index.Add(1) - 1
		if idx >= int64(len(q.vertices)) {
			return nil, false
		}

		v := q.vertices[idx]
		spareCell.InitCell(v)
		cell, created := q.vmap.PutIfAbsent(v, spareCell)
		if created {
			spareCell = allocateSpare()
		}

		if cell.IsNew(cell.CurrentAge()) {
			return cell, true
		}
		// Already claimed or complete: move on to the next candidate.
	}
}
