package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/open-mem/open-mem/internal/daemon"
)

// daemonCmd's subcommands talk to an already-running open-memd over its
// control socket; they never open the project database themselves, so
// they override rootCmd's PersistentPreRunE instead of building a full
// bootstrap.App (mirrors cmd/bd's daemon status/stop short-circuiting
// direct storage mode).
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Query or control the open-memd background daemon for this project",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

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
		projectRoot = root
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rootCancel != nil {
			rootCancel()
		}
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dialDaemon("status")
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dialDaemon("stop")
	},
}

var daemonFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Ask the daemon to drain the pending-message queue now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dialDaemon("flush")
	},
}

func dialDaemon(op string) error {
	stateDir := filepath.Join(projectRoot, ".open-mem")
	if !daemon.IsRunning(stateDir) {
		return fmt.Errorf("no daemon is running for %s", projectRoot)
	}
	resp, err := daemon.Dial(daemon.SocketPath(stateDir), op, 5*time.Second)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("daemon: %s", resp.Error)
	}
	printResponse(resp)
	return nil
}

func init() {
	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd, daemonFlushCmd)
	rootCmd.AddCommand(daemonCmd)
}
