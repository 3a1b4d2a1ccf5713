// Package graphgen builds synthetic graphs for benchmarking and the
// scenario tests in the core's test suite: a uniform random digraph, and
// a clustered graph of many small strongly connected components wired
// together by sparse inter-cluster edges (scenario: "100x100 clusters",
// stressing blocking-cycle resolution across many simultaneously-active
// searches rather than one giant SCC).
//
// Modeled on the teacher's benchmark workload constructors
// (internal/race/api/benchmark_workloads_test.go), which build their
// synthetic inputs by hand with math/rand rather than pulling in a
// dedicated graph-generation library -- there is no such dependency
// anywhere in the pack to reuse here.
package graphgen

import (
	"math/rand"

	"github.com/parascc/partarjan/internal/graph"
)

// Random builds a directed graph over n vertices where each vertex gets
// edgeFactor outgoing edges to uniformly random targets (self-loops and
// duplicate edges are allowed, matching how large-scale SCC benchmarks
// are usually generated).
func Random(n, edgeFactor int, rng *rand.Rand) *graph.AdjacencyList {
	vertices := make([]graph.Vertex, n)
	adj := make(map[graph.Vertex][]graph.Vertex, n)
	for i := 0; i < n; i++ {
		v := graph.Vertex(i)
		vertices[i] = v
		succs := make([]graph.Vertex, edgeFactor)
		for j := 0; j < edgeFactor; j++ {
			succs[j] = graph.Vertex(rng.Intn(n))
		}
		adj[v] = succs
	}
	return graph.NewAdjacencyList(vertices, adj)
}

// Clustered builds clusterCount disjoint cliques (each clusterSize
// vertices, all pointing at each other -- guaranteeing one SCC per
// cluster) and then adds interEdges forward-only edges from a
// lower-numbered cluster to a higher-numbered one. Forward-only is load
// bearing, not cosmetic: an edge running the other way could close a
// cycle across clusters and merge two of them into one larger SCC, which
// is exactly the shape this generator exists to avoid. This is the stress
// scenario for blocking-cycle resolution: many small SCCs discovered
// concurrently by different searches, each liable to collide with another
// search partway through.
func Clustered(clusterCount, clusterSize, interEdges int, rng *rand.Rand) *graph.AdjacencyList {
	n := clusterCount * clusterSize
	vertices := make([]graph.Vertex, n)
	adj := make(map[graph.Vertex][]graph.Vertex, n)

	for i := 0; i < n; i++ {
		vertices[i] = graph.Vertex(i)
	}

	for cl := 0; cl < clusterCount; cl++ {
		base := cl * clusterSize
		for i := 0; i < clusterSize; i++ {
			v := graph.Vertex(base + i)
			var succs []graph.Vertex
			for j := 0; j < clusterSize; j++ {
				if j == i {
					continue
				}
				succs = append(succs, graph.Vertex(base+j))
			}
			adj[v] = succs
		}
	}

	for i := 0; i < interEdges; i++ {
		if clusterCount < 2 {
			break
		}
		fromCl := rng.Intn(clusterCount - 1)
		toCl := fromCl + 1 + rng.Intn(clusterCount-fromCl-1)
		from := graph.Vertex(fromCl*clusterSize + rng.Intn(clusterSize))
		to := graph.Vertex(toCl*clusterSize + rng.Intn(clusterSize))
		adj[from] = append(adj[from], to)
	}

	return graph.NewAdjacencyList(vertices, adj)
}
