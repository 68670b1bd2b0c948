package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var exportProjectPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all sessions, observations, and summaries as a portable JSON envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatch("mem-export", toolsurface.ExportArgs{ProjectPath: exportProjectPath})
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportProjectPath, "project-path", "", "project path recorded in the envelope (default: project root)")
	rootCmd.AddCommand(exportCmd)
}
