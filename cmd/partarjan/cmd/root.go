// Package cmd implements the partarjan CLI: run computes SCCs for a graph
// file, bench generates a synthetic graph and times the parallel core
// against the sequential reference.
//
// Structured like the sibling perf-analysis repo's cmd/cli/cmd package: a
// package-level rootCmd with persistent flags, a PersistentPreRunE that
// wires up the logger from the verbose/config flags, and subcommands that
// register themselves via init().
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parascc/partarjan/internal/config"
	"github.com/parascc/partarjan/internal/obslog"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config
	log obslog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "partarjan",
	Short: "Parallel strongly-connected-components computation",
	Long: `partarjan computes the strongly connected components of a directed
graph using a concurrent, multi-search variant of Tarjan's algorithm: many
goroutines run independent depth-first searches over a shared vertex map,
coordinating through a claim protocol and resolving cross-search cycles by
transferring stack segments between them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := obslog.ParseLevel(cfg.Log.Level)
		if verbose {
			level = obslog.LevelDebug
		}
		log = obslog.NewStderr(level)
		return nil
	},
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a partarjan.yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	binName := BinName()
	rootCmd.Example = `  # Compute SCCs for a graph file
  ` + binName + ` run -i graph.json

  # Benchmark the parallel core against the sequential reference on a
  # generated clustered graph
  ` + binName + ` bench --clusters 100 --cluster-size 100`
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
