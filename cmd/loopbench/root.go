package main

import (
	"github.com/spf13/cobra"
)

const programName = "loopbench"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   programName,
		Short: "Exercise the loop worker pools with a synthetic workload",
		Long: `loopbench maps a generated sequence of items through a bounded pool of
workers and reports how many results came back, how many were distinct,
how long the run took, and how many mapping calls ran at once.

Configuration is read from config.yml (or --config), then from
LOOPBENCH_* environment variables, then from flags.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}
