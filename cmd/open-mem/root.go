package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/bootstrap"
)

// projectRoot, dbOverride mirror cmd/bd/main.go's --db/--actor persistent
// flags, trimmed to what this CLI actually needs: a project directory and
// an optional database path override.
var (
	projectRoot string
	dbOverride  string

	app *bootstrap.App

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "open-mem",
	Short: "open-mem - persistent memory for coding agents",
	Long: `open-mem captures, compresses, and retrieves what a coding agent
observes across sessions: tool output becomes a searchable observation,
observations fuse into session summaries, and both feed back into the
agent's context window at the start of its next session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		zerolog.SetGlobalLevel(zerolog.WarnLevel)

		root := projectRoot
		if root == "" {
			var err error
			root, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve project root: %w", err)
			}
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve project root: %w", err)
		}

		overrides := map[string]any{}
		if dbOverride != "" {
			overrides["dbPath"] = dbOverride
		}

		a, err := bootstrap.Build(rootCtx, root, overrides)
		if err != nil {
			return fmt.Errorf("build app: %w", err)
		}
		app = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rootCancel != nil {
			rootCancel()
		}
		if app != nil {
			return app.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project", "", "project root directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "database path override")
}

// dispatch runs a tool-surface operation with argsJSON (built by the
// calling command from its own flags) and prints the resulting envelope
// as pretty-printed JSON, mirroring cmd/bd/output.go's outputJSONRaw.
func dispatch(op string, args any) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		fatal(err)
	}
	resp := app.Tools.Dispatch(rootCtx, op, argsJSON)
	printResponse(resp)
	if !resp.OK {
		os.Exit(1)
	}
}

func printResponse(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	log.Error().Err(err).Msg("open-mem: command failed")
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
