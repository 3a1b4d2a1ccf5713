package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// fileFormat is the on-disk JSON shape LoadFile reads: an explicit vertex
// list plus a directed edge list. There is no serialization library
// anywhere in the pack to reuse for this, so it is read with the standard
// encoding/json decoder, same as the rest of the corpus does for its own
// one-off config/report structs.
type fileFormat struct {
	Vertices []Vertex    `json:"vertices"`
	Edges    [][2]Vertex `json:"edges"`
}

// LoadFile reads a graph described as JSON ({"vertices": [...], "edges":
// [[u,v], ...]}) from path and builds an AdjacencyList from it.
func LoadFile(path string) (*AdjacencyList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read %s: %w", path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("graph: parse %s: %w", path, err)
	}

	adj := make(map[Vertex][]Vertex, len(ff.Vertices))
	for _, v := range ff.Vertices {
		adj[v] = nil
	}
	for _, e := range ff.Edges {
		adj[e[0]] = append(adj[e[0]], e[1])
	}

	return NewAdjacencyList(ff.Vertices, adj), nil
}
