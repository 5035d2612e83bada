// cmd/godedup/bench_cmd.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativeyann17/go-dedup/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(benchCmd())
}

func benchCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Fetch, rebuild and analyze the configured snapshots",
		Long: `Run the full benchmark pipeline described by a yaml config:
fetch every snapshot with skopeo, unpack it with umoci, repack it into a
content-defined-chunked image with the configured builder, then report the
deduplication statistics of both layouts.

All three tools are invoked as external programs and must be installed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadConfig(configPath)
			if err != nil {
				return err
			}

			log := func(format string, args ...interface{}) {
				if !quiet {
					fmt.Printf(format+"\n", args...)
				}
			}

			log("Benchmarking %s across %d snapshots", cfg.Image, len(cfg.Tags))
			log("  Root:     %s", cfg.RootDir)
			log("  Chunking: min=%d avg=%d max=%d", cfg.Chunking.Min, cfg.Chunking.Avg, cfg.Chunking.Max)
			log("")

			runner := pipeline.NewRunner(cfg)
			runner.SetQuiet(quiet)

			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Print(result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "godedup.yaml", "Benchmark config file")

	return cmd
}
