package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdjacencyListBasics(t *testing.T) {
	g := NewAdjacencyList(
		[]Vertex{0, 1, 2},
		map[Vertex][]Vertex{0: {1, 2}, 1: {2}, 2: nil},
	)

	require.Equal(t, 3, g.VertexCount())
	require.ElementsMatch(t, []Vertex{0, 1, 2}, g.Vertices())
	require.ElementsMatch(t, []Vertex{1, 2}, g.Neighbors(0))
	require.Empty(t, g.Neighbors(2))
}

func TestAdjacencyListIsDefensivelyCopied(t *testing.T) {
	vertices := []Vertex{0, 1}
	adj := map[Vertex][]Vertex{0: {1}}
	g := NewAdjacencyList(vertices, adj)

	vertices[0] = 99
	adj[0][0] = 99

	require.Equal(t, Vertex(0), g.Vertices()[0])
	require.Equal(t, Vertex(1), g.Neighbors(0)[0])
}

func TestAddEdgeAndAddVertex(t *testing.T) {
	g := NewAdjacencyList([]Vertex{0}, map[Vertex][]Vertex{0: nil})
	g.AddEdge(0, 1)
	require.ElementsMatch(t, []Vertex{1}, g.Neighbors(0))

	g.AddVertex(2)
	require.Equal(t, 2, g.VertexCount())
	require.Empty(t, g.Neighbors(2))

	g.AddVertex(2) // re-adding an existing vertex must be a no-op
	require.Equal(t, 2, g.VertexCount())
}

func TestLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	body := `{"vertices":[0,1,2],"edges":[[0,1],[1,2],[2,0]]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	g, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, g.VertexCount())
	require.ElementsMatch(t, []Vertex{1}, g.Neighbors(0))
	require.ElementsMatch(t, []Vertex{2}, g.Neighbors(1))
	require.ElementsMatch(t, []Vertex{0}, g.Neighbors(2))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadFileInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}
