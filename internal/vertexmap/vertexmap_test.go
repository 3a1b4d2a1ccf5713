package vertexmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parascc/partarjan/internal/engine"
)

func TestPutIfAbsentInsertsOnce(t *testing.T) {
	m := New(4)
	c1 := engine.NewCell(1, 3)

	got, inserted := m.PutIfAbsent(1, c1)
	require.True(t, inserted)
	require.Equal(t, c1, got)

	c2 := engine.NewCell(1, 3)
	got2, inserted2 := m.PutIfAbsent(1, c2)
	require.False(t, inserted2)
	require.Equal(t, c1, got2, "the first-inserted cell is canonical")
}

func TestGetMissing(t *testing.T) {
	m := New(4)
	_, ok := m.Get(42)
	require.False(t, ok)
}

func TestGetAfterPut(t *testing.T) {
	m := New(4)
	c := engine.NewCell(7, 3)
	m.PutIfAbsent(7, c)

	got, ok := m.Get(7)
	require.True(t, ok)
	require.Equal(t, c, got)
}

func TestResizeAcrossLoadFactor(t *testing.T) {
	m := New(1) // 2 shards, tiny initial table, forces resizes quickly
	const n = 2000

	for i := 0; i < n; i++ {
		v := uint32(i)
		c := engine.NewCell(v, 3)
		got, inserted := m.PutIfAbsent(v, c)
		require.True(t, inserted)
		require.Equal(t, c, got)
	}

	require.Equal(t, n, m.Len())

	for i := 0; i < n; i++ {
		v := uint32(i)
		got, ok := m.Get(v)
		require.True(t, ok)
		require.Equal(t, v, got.Vertex)
	}
}

func TestConcurrentPutIfAbsentExactlyOneWinnerPerKey(t *testing.T) {
	m := New(2)
	const workers = 32
	const keys = 50

	winners := make([][]bool, keys)
	for k := range winners {
		winners[k] = make([]bool, workers)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				c := engine.NewCell(uint32(k), 3)
				_, inserted := m.PutIfAbsent(uint32(k), c)
				if inserted {
					mu.Lock()
					winners[k][w] = true
					mu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	for k := 0; k < keys; k++ {
		count := 0
		for w := 0; w < workers; w++ {
			if winners[k][w] {
				count++
			}
		}
		require.Equal(t, 1, count, "vertex %d must have exactly one winning insert", k)
	}
}

func TestDefaultShardBitsWhenZero(t *testing.T) {
	m := New(0)
	require.Equal(t, uint(DefaultShardBits), m.shardBits)
}
