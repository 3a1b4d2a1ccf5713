// Package refscc is a plain single-threaded Tarjan SCC implementation
// used by tests, to check the parallel engine's output against a trusted
// baseline (Testable Property #4: the multiset of SCCs matches a
// sequential reference implementation for the same graph), and by the
// CLI's bench command as the sequential timing baseline.
//
// The core packages never import it. Grounded on the original's
// singleThreadedTarjan.cpp (same lowlink/index bookkeeping, iterative
// rather than recursive to avoid stack-depth limits on large inputs).
package refscc

import "github.com/parascc/partarjan/internal/graph"

// Compute returns every strongly connected component of g, each as a
// slice of vertex IDs, via a standard iterative Tarjan's algorithm.
func Compute(g graph.Graph) [][]graph.Vertex {
	c := &computer{
		index:   make(map[graph.Vertex]int),
		lowlink: make(map[graph.Vertex]int),
		onStack: make(map[graph.Vertex]bool),
	}
	for _, v := range g.Vertices() {
		if _, seen := c.index[v]; !seen {
			c.strongConnect(g, v)
		}
	}
	return c.sccs
}

type frame struct {
	v        graph.Vertex
	children []graph.Vertex
	pos      int
}

type computer struct {
	next    int
	index   map[graph.Vertex]int
	lowlink map[graph.Vertex]int
	onStack map[graph.Vertex]bool
	stack   []graph.Vertex
	sccs    [][]graph.Vertex
}

// strongConnect runs an explicit-stack DFS rooted at start, the iterative
// equivalent of the original's recursive strongconnect().
func (c *computer) strongConnect(g graph.Graph, start graph.Vertex) {
	var work []*frame
	c.push(start)
	work = append(work, &frame{v: start, children: g.Neighbors(start)})

	for len(work) > 0 {
		f := work[len(work)-1]

		if f.pos < len(f.children) {
			w := f.children[f.pos]
			f.pos++

			if _, seen := c.index[w]; !seen {
				c.push(w)
				work = append(work, &frame{v: w, children: g.Neighbors(w)})
				continue
			}
			if c.onStack[w] {
				if c.index[w] < c.lowlink[f.v] {
					c.lowlink[f.v] = c.index[w]
				}
			}
			continue
		}

		work = work[:len(work)-1]
		if len(work) > 0 {
			parent := work[len(work)-1]
			if c.lowlink[f.v] < c.lowlink[parent.v] {
				c.lowlink[parent.v] = c.lowlink[f.v]
			}
		}

		if c.lowlink[f.v] == c.index[f.v] {
			var scc []graph.Vertex
			for {
				top := c.stack[len(c.stack)-1]
				c.stack = c.stack[:len(c.stack)-1]
				c.onStack[top] = false
				scc = append(scc, top)
				if top == f.v {
					break
				}
			}
			c.sccs = append(c.sccs, scc)
		}
	}
}

func (c *computer) push(v graph.Vertex) {
	c.index[v] = c.next
	c.lowlink[v] = c.next
	c.next++
	c.stack = append(c.stack, v)
	c.onStack[v] = true
}
