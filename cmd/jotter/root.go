package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/jotter/internal/config"
	"github.com/dukerupert/jotter/internal/database"
	"github.com/dukerupert/jotter/internal/logging"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	logLevel string
	envFile  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "jotter",
		Short: "Personal notes server with AI translate and complete",
		Long: `Jotter serves a single-page notes app and its REST API.
Notes are stored in SQLite, Postgres or MySQL; translate and complete are
proxied to an OpenAI-compatible chat-completion endpoint.

Environment:
` + config.Usage(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				level = a.logLevel
			}
			a.cfg = cfg
			a.logger = logging.Setup(level, cfg.Log.Format)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "path to a .env file (default .env if present)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newUserCmd(a),
	)
	return root
}

// openDB opens the configured database and applies migrations.
func (a *app) openDB() (*sql.DB, database.Backend, error) {
	backend, dsn, err := a.cfg.Database.DSN()
	if err != nil {
		return nil, "", err
	}
	db, err := database.Open(backend, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s database: %w", backend, err)
	}
	a.logger.Debug("database ready", "backend", backend)
	return db, backend, nil
}
