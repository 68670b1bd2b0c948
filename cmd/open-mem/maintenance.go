package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var maintenanceArgs toolsurface.MaintenanceArgs

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance <action>",
	Short: "Run folder-context artifact maintenance (folderContextDryRun|Clean|Purge|Rebuild)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maintenanceArgs.Action = args[0]
		dispatch("mem-maintenance", maintenanceArgs)
		return nil
	},
}

func init() {
	maintenanceCmd.Flags().IntVar(&maintenanceArgs.MaxDepth, "max-depth", 0, "max folder depth to walk (default 3)")
	rootCmd.AddCommand(maintenanceCmd)
}
