package cmd

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/relaydl/relaydl/internal/dlcore"
	"github.com/relaydl/relaydl/internal/output"
	"github.com/relaydl/relaydl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	getOutput string
	getDigest string
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download a single file, resuming if a partial download exists",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			raw := args[0]
			if _, err := url.Parse(raw); err != nil {
				output.PrintError("invalid URL")
				os.Exit(1)
			}

			dest := getOutput
			if dest == "" {
				dest = filepath.Base(raw)
				if idx := strings.IndexAny(dest, "?#"); idx >= 0 {
					dest = dest[:idx]
				}
			}
			if _, err := os.Stat(dest); err == nil {
				dest = utils.RenewOutputPath(dest)
			}

			item := dlcore.DownloadItem{
				ID:             uuid.NewString(),
				URL:            raw,
				Destination:    dest,
				ExpectedDigest: getDigest,
			}
			runBatch([]dlcore.DownloadItem{item}, 1)
		},
	}
	cmd.Flags().StringVarP(&getOutput, "output", "o", "", "Output file path (relaydl infers a name from the URL if not provided)")
	cmd.Flags().StringVarP(&getDigest, "digest", "d", "", "Expected SHA-256 digest, lowercase hex")
	return cmd
}
