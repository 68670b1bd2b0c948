package main

import (
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/toolsurface"
)

var createArgs toolsurface.CreateArgs

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new observation directly, bypassing AI compression",
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatch("mem-create", createArgs)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createArgs.SessionID, "session", "", "session id (required)")
	createCmd.Flags().StringVar(&createArgs.Type, "type", "", "observation type")
	createCmd.Flags().StringVar(&createArgs.Title, "title", "", "short title")
	createCmd.Flags().StringVar(&createArgs.Subtitle, "subtitle", "", "one-line subtitle")
	createCmd.Flags().StringSliceVar(&createArgs.Facts, "fact", nil, "a discrete fact (repeatable)")
	createCmd.Flags().StringVar(&createArgs.Narrative, "narrative", "", "narrative text")
	createCmd.Flags().StringSliceVar(&createArgs.Concepts, "concept", nil, "a concept tag (repeatable)")
	createCmd.Flags().StringSliceVar(&createArgs.FilesRead, "file-read", nil, "a file read during this observation (repeatable)")
	createCmd.Flags().StringSliceVar(&createArgs.FilesModified, "file-modified", nil, "a file modified during this observation (repeatable)")
	createCmd.Flags().IntVar(&createArgs.Importance, "importance", 0, "importance weight")
	rootCmd.AddCommand(createCmd)
}
