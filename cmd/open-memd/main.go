// Command open-memd runs the background daemon (C9) that owns a single
// project's queue draining and retention sweeps, so host-triggered hooks
// don't have to do that work synchronously in the agent's request path.
// Grounded on cmd/bd's daemon entrypoint (daemon_unix.go/main_daemon.go),
// trimmed from bd's RPC server to open-mem's bootstrap.App plus
// internal/daemon's control socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/open-mem/open-mem/internal/bootstrap"
	"github.com/open-mem/open-mem/internal/daemon"
)

func main() {
	var (
		projectRoot   = flag.String("project", "", "project root directory (default: current directory)")
		dbOverride    = flag.String("db", "", "database path override")
		pollInterval  = flag.Duration("poll-interval", 0, "queue poll interval (default: config batchIntervalMs)")
		sweepInterval = flag.Duration("sweep-interval", 10*time.Minute, "retention sweep interval")
		logLevel      = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	root := *projectRoot
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "open-memd: resolve project root:", err)
			os.Exit(1)
		}
	}
	root, err = filepath.Abs(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open-memd: resolve project root:", err)
		os.Exit(1)
	}

	overrides := map[string]any{}
	if *dbOverride != "" {
		overrides["dbPath"] = *dbOverride
	}

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, root, overrides)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open-memd: build app:", err)
		os.Exit(1)
	}
	if app.UserStore != nil {
		defer app.UserStore.Close()
	}

	poll := *pollInterval
	if poll <= 0 {
		poll = time.Duration(app.Config.BatchIntervalMs) * time.Millisecond
	}

	d := daemon.New(app.Store, app.Processor, daemon.Options{
		ProjectRoot:       root,
		DBPath:            app.Config.DBPath,
		PollInterval:      poll,
		SweepInterval:     *sweepInterval,
		RetentionDays:     app.Config.RetentionDays,
		MaxDatabaseSizeMb: app.Config.MaxDatabaseSizeMb,
	})

	log.Info().Str("project", root).Msg("open-memd: starting")
	if err := d.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "open-memd:", err)
		os.Exit(1)
	}
}
