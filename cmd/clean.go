package cmd

import (
	"fmt"

	"github.com/relaydl/relaydl/internal/output"
	"github.com/relaydl/relaydl/internal/utils"
	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove .part/.part.json pairs whose final file already exists",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			removed, err := utils.CleanOrphans(dir)
			if err != nil {
				output.PrintError("clean failed: " + err.Error())
				return
			}
			output.PrintSuccess(fmt.Sprintf("removed %d orphaned .part pair(s)", removed))
		},
	}
}
