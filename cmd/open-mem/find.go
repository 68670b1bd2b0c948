package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var findArgs toolsurface.FindArgs

var findCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Hybrid keyword+semantic search over observations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		findArgs.Query = args[0]
		dispatch("mem-find", findArgs)
		return nil
	},
}

func init() {
	findCmd.Flags().StringSliceVar(&findArgs.Types, "type", nil, "observation type filter")
	findCmd.Flags().IntVar(&findArgs.Limit, "limit", 0, "max results (default 20)")
	findCmd.Flags().StringVar(&findArgs.Scope, "scope", "", "project | user | all (default project)")
	rootCmd.AddCommand(findCmd)
}
