package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var reviseArgs toolsurface.ReviseArgs

var reviseCmd = &cobra.Command{
	Use:   "revise <id>",
	Short: "Supersede an observation with revised content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviseArgs.ID = args[0]
		dispatch("mem-revise", reviseArgs)
		return nil
	},
}

func init() {
	reviseCmd.Flags().StringVar(&reviseArgs.Title, "title", "", "new title")
	reviseCmd.Flags().StringVar(&reviseArgs.Subtitle, "subtitle", "", "new subtitle")
	reviseCmd.Flags().StringSliceVar(&reviseArgs.Facts, "fact", nil, "a replacement fact (repeatable)")
	reviseCmd.Flags().StringVar(&reviseArgs.Narrative, "narrative", "", "new narrative")
	reviseCmd.Flags().StringSliceVar(&reviseArgs.Concepts, "concept", nil, "a replacement concept tag (repeatable)")
	reviseCmd.Flags().IntVar(&reviseArgs.Importance, "importance", 0, "new importance weight")
	rootCmd.AddCommand(reviseCmd)
}
