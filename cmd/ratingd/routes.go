package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	api "github.com/mind-engage/courseratings/internal/api/http"
	auth "github.com/mind-engage/courseratings/internal/auth/middleware"
	"github.com/mind-engage/courseratings/internal/config"
	"github.com/mind-engage/courseratings/internal/eventlog"
	rbac "github.com/mind-engage/courseratings/internal/rbac"
	"github.com/mind-engage/courseratings/internal/ratings"
	"github.com/mind-engage/courseratings/internal/render"
	storage "github.com/mind-engage/courseratings/internal/storage"
)

type deps struct {
	cfg      config.Config
	widgets  api.WidgetDeps
	importer *ratings.Importer
	events   *eventlog.Repo
	blobs    storage.BlobStore
	authSvc  *auth.AuthService
	gatherer prometheus.Gatherer
	ready    func() bool
	logger   *slog.Logger
}

func newRouter(d deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Local login (single admin account from config)
	if d.cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.authSvc, auth.Admin{
			User:     d.cfg.AdminUser,
			PassHash: d.cfg.AdminPassHash,
		}, d.logger))
	}

	// Public read side: the embedding pages need no token.
	reg := d.widgets.Registry
	renderOpts := d.widgets.Render
	r.Get("/courses", api.ListCoursesHandler(d.widgets.Store))
	r.Get("/courses/{code}/ratings", api.CourseRatingsHandler(d.widgets.Store))
	r.Route("/widgets", func(wr chi.Router) {
		wr.Post("/", api.CreateWidgetHandler(d.widgets))
		wr.Get("/{id}", api.GetWidgetHandler(reg))
		wr.Delete("/{id}", api.DeleteWidgetHandler(reg))
		wr.Post("/{id}/toggle", api.ToggleHandler(reg))
		wr.Get("/{id}/chart.png", api.ChartHandler(reg, render.PNG, renderOpts))
		wr.Get("/{id}/chart.svg", api.ChartHandler(reg, render.SVG, renderOpts))
		wr.With(auth.JWTMiddleware(d.authSvc), rbac.Require(rbac.PermSnapshotsWrite)).
			Post("/{id}/snapshot", api.SnapshotHandler(reg, d.blobs, renderOpts))
	})
	r.Route("/snapshots", func(sr chi.Router) {
		api.MountSnapshots(sr, d.blobs)
	})

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.authSvc))

		pr.With(rbac.Require(rbac.PermRatingsImport)).
			Post("/ratings/import", api.ImportRatingsHandler(d.importer))
		pr.With(rbac.Require(rbac.PermEventsView)).
			Get("/events", api.ListEventsHandler(d.events))
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.ready != nil && !d.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	return r
}
