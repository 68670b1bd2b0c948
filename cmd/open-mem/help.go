package main

import (
	"github.com/spf13/cobra"
)

var toolsHelpCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool surface an agent host can dispatch against",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := app.Tools.Dispatch(rootCtx, "mem-help", nil)
		printResponse(resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsHelpCmd)
}
