package cmd

import (
	"os"

	"github.com/relaydl/relaydl/internal/output"
	"github.com/relaydl/relaydl/internal/tasklist"
	"github.com/spf13/cobra"
)

var (
	batchOutputDir string
	batchWorkers   int
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <task-list-file>",
		Short: "Download every item listed in a task-list file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			destDir := batchOutputDir
			if destDir == "" {
				destDir = "."
			}
			if err := os.MkdirAll(destDir, 0755); err != nil {
				output.PrintError("failed to create output directory: " + err.Error())
				os.Exit(1)
			}
			items, err := tasklist.Read(args[0], destDir)
			if err != nil {
				output.PrintError("failed to read task list: " + err.Error())
				os.Exit(1)
			}
			if len(items) == 0 {
				output.PrintWarning("no items found in task list")
				return
			}
			workers := batchWorkers
			maxConns := 64
			if workers*connections > maxConns {
				workers = max(maxConns/connections, 1)
			}
			runBatch(items, workers)
		},
	}
	cmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", ".", "Directory to place downloaded files in")
	cmd.Flags().IntVarP(&batchWorkers, "workers", "w", 4, "Number of files to download in parallel")
	return cmd
}
