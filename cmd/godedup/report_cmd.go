// cmd/godedup/report_cmd.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativeyann17/go-dedup/pkg/analyze"
)

func init() {
	rootCmd.AddCommand(reportCmd())
}

func reportCmd() *cobra.Command {
	var rootDir string
	var tags []string
	var manifestName string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute dedup statistics over already-populated directories",
		Long: `Analyze snapshot directories that an earlier bench run (or the external
tools run by hand) left under the root directory, without re-running the
fetch/unpack/rebuild stages. Every configured snapshot must have both its
plain and its chunked image directory in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &analyze.Options{
				RootDir:      rootDir,
				Tags:         tags,
				ManifestName: manifestName,
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			var progress analyze.ProgressFunc
			if verbose {
				progress = func(layout analyze.Layout, tag string) {
					fmt.Printf("  scanning %s (%s layout)\n", tag, layout)
				}
			}

			result, err := analyze.Report(opts, progress)
			if err != nil {
				return err
			}

			fmt.Print(result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVarP(&rootDir, "root", "r", "", "Root directory holding the plain and chunked trees (required)")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Snapshot tags to analyze (required)")
	cmd.Flags().StringVar(&manifestName, "name", analyze.DefaultManifestName, "Manifest name of the rebuilt filesystem image")

	_ = cmd.MarkFlagRequired("root")
	_ = cmd.MarkFlagRequired("tags")

	return cmd
}
