package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parascc/partarjan/internal/coordinator"
	"github.com/parascc/partarjan/internal/graph"
)

var (
	runInput   string
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute strongly connected components for a graph file",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "path to a graph JSON file (required)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort if the computation does not finish within this duration (0 = no timeout)")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	g, err := graph.LoadFile(runInput)
	if err != nil {
		return err
	}
	log.Info("loaded graph: %d vertices", g.VertexCount())

	ctx := context.Background()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	opts := coordinator.Options{
		NumThreads:   cfg.Engine.NumThreads,
		MapShardBits: uint(cfg.Engine.MapShardBits),
		BlockedListP: uint(cfg.Engine.BlockedListP),
		Logger:       log,
	}

	start := time.Now()
	c := coordinator.New(g, opts)
	sccs, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("partarjan: run: %w", err)
	}
	elapsed := time.Since(start)

	log.Info("found %d SCCs in %s", len(sccs), elapsed)
	for i, scc := range sccs {
		fmt.Fprintf(os.Stdout, "scc[%d]: %v\n", i, scc)
	}
	return nil
}
