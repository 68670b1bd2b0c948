package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Tombstone an observation (soft delete)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatch("mem-remove", toolsurface.RemoveArgs{ID: args[0]})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
