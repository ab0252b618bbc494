package cmd

import (
	"context"
	"os"

	"github.com/relaydl/relaydl/internal/output"
	"github.com/spf13/cobra"
)

var providerOutputDir string

func newProviderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider <identifier>",
		Short: "Expand a tagged repository identifier (hf:, s3://, gdrive:, modelscope:) and download every file it names",
		Long: "provider resolves identifiers like hf:org/model, s3://bucket/prefix, " +
			"gdrive:<file-id>, and modelscope:org/model@revision into one or more " +
			"files, then downloads them through the same resumable pipeline as get.",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			destDir := providerOutputDir
			if destDir == "" {
				destDir = "."
			}
			if err := os.MkdirAll(destDir, 0755); err != nil {
				output.PrintError("failed to create output directory: " + err.Error())
				os.Exit(1)
			}

			resolver := registryFromFlags()
			items, err := resolver.Resolve(context.Background(), args[0], destDir)
			if err != nil {
				output.PrintError("failed to resolve identifier: " + err.Error())
				os.Exit(1)
			}
			if len(items) == 0 {
				output.PrintWarning("identifier resolved to no files")
				return
			}
			workers := 4
			maxConns := 64
			if workers*connections > maxConns {
				workers = max(maxConns/connections, 1)
			}
			runBatch(items, workers)
		},
	}
	cmd.Flags().StringVarP(&providerOutputDir, "output-dir", "o", ".", "Directory to place downloaded files in")
	return cmd
}
