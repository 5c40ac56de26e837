// Command ratingd serves course rating widgets: their data, configuration,
// visibility toggles and rendered charts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	api "github.com/mind-engage/courseratings/internal/api/http"
	auth "github.com/mind-engage/courseratings/internal/auth/middleware"
	"github.com/mind-engage/courseratings/internal/config"
	"github.com/mind-engage/courseratings/internal/db"
	"github.com/mind-engage/courseratings/internal/eventlog"
	"github.com/mind-engage/courseratings/internal/locale"
	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/ratings"
	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/render"
	storage "github.com/mind-engage/courseratings/internal/storage"
	"github.com/mind-engage/courseratings/internal/widget"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()
	store := ratings.NewSQLStore(dbh)
	events := eventlog.NewRepo(dbh, cfg.SiteID)

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Reference table ---
	var table atomic.Pointer[reference.Table]
	table.Store(reference.Default())
	if cfg.ReferenceFile != "" {
		t, err := reference.Load(cfg.ReferenceFile)
		if err != nil {
			return fmt.Errorf("reference table: %w", err)
		}
		table.Store(t)
		go func() {
			err := reference.Watch(ctx, cfg.ReferenceFile, logger, func(t *reference.Table) {
				table.Store(t)
				m.ReferenceTerms(t.Len())
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Reference watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}
	m.ReferenceTerms(table.Load().Len())

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	if cfg.DevSecret() {
		logger.Warn("Using the built-in JWT secret; set AUTH_HMAC_SECRET")
	}

	widgets := widget.NewRegistry(
		widget.WithCapacity(cfg.WidgetCapacity),
		widget.WithIdleTTL(cfg.WidgetIdleTTL),
		widget.WithRegistryMetrics(m),
	)
	r := newRouter(deps{
		cfg: cfg,
		widgets: api.WidgetDeps{
			Store:     store,
			Registry:  widgets,
			Reference: table.Load,
			Locale:    locale.FromFlag(cfg.Locale),
			Render:    render.Options{Width: cfg.RenderWidth, Height: cfg.RenderHeight, Metrics: m},
			Metrics:   m,
			Logger:    logger,
		},
		importer: &ratings.Importer{Store: store, Events: events, Metrics: m, Logger: logger},
		events:   events,
		blobs:    bs,
		authSvc:  auth.NewAuthService(cfg.AuthHMACSecret),
		gatherer: reg,
		ready:    func() bool { return dbh.PingContext(context.Background()) == nil },
		logger:   logger,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", slog.String("addr", cfg.HTTPAddr), slog.String("db", cfg.DBDriver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
