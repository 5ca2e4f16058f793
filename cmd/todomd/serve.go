package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/server"
	"github.com/tndhk/No26-todo-md/internal/syncer"
	"github.com/tndhk/No26-todo-md/internal/watch"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and document watcher",
	Long: `Serve the project documents over HTTP and broadcast changes to
websocket clients. When watching is enabled, hand edits to the Markdown
documents in the data directory are merged back into the store
automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, st, err := setup(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if cmd.Flags().Changed("listen") {
		cfg.Listen = flagListen
	}

	sy := syncer.New(st, logger)
	srv := server.New(cfg.Listen, st, sy, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	var watcher *watch.Watcher
	if cfg.Watch.Enabled {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}
		debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
		watcher, err = watch.New(cfg.DataDir, debounce, sy, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("watcher stop", "err", err)
		}
	}
	return srv.Stop()
}
