package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/parascc/partarjan/internal/coordinator"
	"github.com/parascc/partarjan/internal/graph"
	"github.com/parascc/partarjan/internal/graphgen"
	"github.com/parascc/partarjan/internal/refscc"
)

var (
	benchClusters    int
	benchClusterSize int
	benchInterEdges  int
	benchRandom      int
	benchEdgeFactor  int
	benchSeed        int64
	benchSkipRef     bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Generate a synthetic graph and time the parallel core against the sequential reference",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchClusters, "clusters", 0, "number of disjoint SCC clusters to generate (0 disables the clustered workload)")
	benchCmd.Flags().IntVar(&benchClusterSize, "cluster-size", 100, "vertices per cluster")
	benchCmd.Flags().IntVar(&benchInterEdges, "inter-edges", 1000, "random edges added between clusters")
	benchCmd.Flags().IntVar(&benchRandom, "random", 0, "vertices in a uniform random graph (0 disables the random workload)")
	benchCmd.Flags().IntVar(&benchEdgeFactor, "edge-factor", 4, "outgoing edges per vertex in the random workload")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "random seed")
	benchCmd.Flags().BoolVar(&benchSkipRef, "skip-ref", false, "skip timing the sequential reference implementation")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchClusters == 0 && benchRandom == 0 {
		return fmt.Errorf("partarjan: specify --clusters or --random to pick a workload")
	}

	rng := rand.New(rand.NewSource(benchSeed))

	var g graph.Graph
	if benchClusters > 0 {
		log.Info("generating clustered graph: %d clusters x %d vertices, %d inter-edges", benchClusters, benchClusterSize, benchInterEdges)
		g = graphgen.Clustered(benchClusters, benchClusterSize, benchInterEdges, rng)
	} else {
		log.Info("generating random graph: %d vertices, edge factor %d", benchRandom, benchEdgeFactor)
		g = graphgen.Random(benchRandom, benchEdgeFactor, rng)
	}

	opts := coordinator.Options{
		NumThreads:   cfg.Engine.NumThreads,
		MapShardBits: uint(cfg.Engine.MapShardBits),
		BlockedListP: uint(cfg.Engine.BlockedListP),
		Logger:       log,
	}

	start := time.Now()
	c := coordinator.New(g, opts)
	sccs, err := c.Run(context.Background())
	if err != nil {
		return fmt.Errorf("partarjan: bench: %w", err)
	}
	parallelElapsed := time.Since(start)
	fmt.Printf("parallel:   %d SCCs in %s\n", len(sccs), parallelElapsed)

	if !benchSkipRef {
		start = time.Now()
		refSCCs := refscc.Compute(g)
		refElapsed := time.Since(start)
		fmt.Printf("sequential: %d SCCs in %s\n", len(refSCCs), refElapsed)
		if len(refSCCs) != len(sccs) {
			fmt.Printf("warning: SCC count mismatch (parallel=%d sequential=%d)\n", len(sccs), len(refSCCs))
		}
	}

	return nil
}
