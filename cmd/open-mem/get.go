package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var getCmd = &cobra.Command{
	Use:   "get <id...>",
	Short: "Fetch observations by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatch("mem-get", toolsurface.GetArgs{IDs: args})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
