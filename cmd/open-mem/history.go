package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var historyArgs toolsurface.HistoryArgs

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Chronological timeline of observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatch("mem-history", historyArgs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyArgs.Limit, "limit", 0, "max results (default 50)")
	historyCmd.Flags().StringVar(&historyArgs.SessionID, "session", "", "restrict to one session")
	historyCmd.Flags().StringVar(&historyArgs.Anchor, "anchor", "", "relative date anchor, e.g. \"yesterday\"")
	historyCmd.Flags().IntVar(&historyArgs.DepthBefore, "before", 0, "include observations before the anchor")
	historyCmd.Flags().IntVar(&historyArgs.DepthAfter, "after", 0, "include observations after the anchor")
	rootCmd.AddCommand(historyCmd)
}
