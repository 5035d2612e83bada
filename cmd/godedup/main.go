package main

import (
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:     "godedup",
	Short:   "go-dedup - deduplication benchmark for chunked container images",
	Long:    "go-dedup rebuilds container-image snapshots through a content-defined chunking pipeline and measures how much storage a shared content-addressed blob store saves compared to the plain OCI layout.",
	Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		switch {
		case verbose:
			level = "debug"
		case quiet:
			level = "error"
		}
		return log.SetLevel(level)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Minimal output (overrides verbose)")
}
