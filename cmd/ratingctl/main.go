// Command ratingctl imports course ratings, recomputes the reference table
// and renders widget charts offline.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mind-engage/courseratings/internal/config"
	"github.com/mind-engage/courseratings/internal/db"
)

const (
	Version = "0.1.0"
	appName = "ratingctl"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by all subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	dbh, err := db.Open(ctx, db.Driver(a.cfg.DBDriver), a.cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return dbh, nil
}

func rootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Manage course rating data and charts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a.cfg = cfg

			level := slog.LevelInfo
			switch strings.ToLower(logLevel) {
			case "debug":
				level = slog.LevelDebug
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		importCmd(a),
		averagesCmd(a),
		renderCmd(a),
		termsCmd(a),
		tokenCmd(a),
		eventsCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
