// Package partarjan is the public façade over the parallel
// strongly-connected-components core: construct a graph, call
// ComputeSCCs, get back every SCC. It mirrors the role the teacher's
// internal/race/api package plays over internal/race/... -- a thin
// top-level entry point that wires the internal packages together and is
// the only thing library consumers need to import.
package partarjan

import (
	"context"
	"fmt"

	"github.com/parascc/partarjan/internal/coordinator"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/obslog"
)

// Graph is the read-only neighbor-list view ComputeSCCs consumes.
type Graph = graph.Graph

// Vertex identifies a graph node.
type Vertex = graph.Vertex

// AdjacencyList is a ready-made in-memory Graph implementation.
type AdjacencyList = graph.AdjacencyList

// NewAdjacencyList builds an AdjacencyList from an explicit vertex set
// and adjacency map.
var NewAdjacencyList = graph.NewAdjacencyList

// Options configures a ComputeSCCs run. NumThreads<=0 selects
// runtime.NumCPU(); MapShardBits and BlockedListP<=0 select the
// documented defaults (2^12 shards, inline bucket of 8).
type Options struct {
	NumThreads   int
	MapShardBits uint
	BlockedListP uint
	Logger       obslog.Logger
}

// ComputeSCCs runs the parallel search to completion over g and returns
// every strongly connected component discovered, each as a slice of
// vertex IDs in no particular order. It returns ctx's error if ctx is
// cancelled before the computation finishes, or an error wrapping an
// internal invariant violation if one is detected.
func ComputeSCCs(ctx context.Context, g Graph, opts Options) ([][]Vertex, error) {
	if g == nil {
		return nil, fmt.Errorf("partarjan: graph is nil")
	}
	c := coordinator.New(g, coordinator.Options{
		NumThreads:   opts.NumThreads,
		MapShardBits: opts.MapShardBits,
		BlockedListP: opts.BlockedListP,
		Logger:       opts.Logger,
	})
	return c.Run(ctx)
}
