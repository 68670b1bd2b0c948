package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/store"
	"github.com/open-mem/open-mem/internal/toolsurface"
)

var importMode string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a previously exported envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export file: %w", err)
		}
		var exp store.Export
		if err := json.Unmarshal(data, &exp); err != nil {
			return fmt.Errorf("parse export file: %w", err)
		}
		dispatch("mem-import", toolsurface.ImportArgs{Export: &exp, Mode: importMode})
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importMode, "mode", "", "skip | overwrite (default skip)")
	rootCmd.AddCommand(importCmd)
}
