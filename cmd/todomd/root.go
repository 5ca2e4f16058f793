package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/config"
	"github.com/tndhk/No26-todo-md/internal/logging"
	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/store/file"
	"github.com/tndhk/No26-todo-md/internal/store/sqlite"
)

var (
	flagConfig   string
	flagDataDir  string
	flagBackend  string
	flagDatabase string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "todomd",
	Short: "Markdown task documents with durable task identity",
	Long: `todomd keeps a project's tasks in a store and exchanges them with a flat,
human-editable Markdown document.

Editing and resubmitting the document merges the changes back into the
store without losing the identity or history of unchanged tasks. Repeating
tasks reschedule themselves when completed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default todomd.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "storage backend: sqlite or file")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "database", "", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig resolves configuration and applies explicit flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = flagDataDir
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend = flagBackend
	}
	if cmd.Flags().Changed("database") {
		cfg.Database = flagDatabase
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return sqlite.Open(cfg.Database)
	case "file":
		return file.Open(cfg.DataDir)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// setup loads config, builds the logger, and opens the store.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.New(cfg.Log)
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, st, nil
}
