package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/courseratings/internal/locale"
	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/ratings"
	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/render"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/storage"
	"github.com/mind-engage/courseratings/internal/widget"
)

var (
	errWidgetNotFound = errors.New("widget not found")
	errBadRequest     = errors.New("bad request")
)

// WidgetDeps is what the widget endpoints share.
type WidgetDeps struct {
	Store    ratings.Store
	Registry *widget.Registry
	// Reference returns the current reference table. Widgets keep the
	// table they were built with.
	Reference func() *reference.Table
	Locale    locale.Locale
	Render    render.Options
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type widgetResponse struct {
	ID     string        `json:"id"`
	Config widget.Config `json:"config"`
}

// POST /widgets  { "course": "IN1000", "locale": "en" }
func CreateWidgetHandler(d WidgetDeps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Course string `json:"course"`
			Locale string `json:"locale"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Course == "" {
			writeError(w, r, fmt.Errorf("%w: want {course, locale}", errBadRequest))
			return
		}
		spec := widget.Spec{Course: req.Course}
		if req.Course != series.AverageCourse {
			points, err := d.Store.ListRatings(r.Context(), req.Course)
			if err != nil {
				writeError(w, r, err)
				return
			}
			// nil means "decode Raw" to the widget; an empty page is no data
			spec.Points = append([]series.DataPoint{}, points...)
		}

		loc := d.Locale
		if req.Locale != "" {
			loc = locale.FromFlag(req.Locale)
		}
		var table *reference.Table
		if d.Reference != nil {
			table = d.Reference()
		}
		res := widget.Mount([]widget.Spec{spec}, widget.Options{
			Locale:  loc,
			Table:   table,
			Logger:  d.Logger,
			Metrics: d.Metrics,
		})[0]
		if res.Err != nil {
			writeError(w, r, res.Err)
			return
		}
		d.Registry.Add(res.Widget)
		writeJSON(w, nethttp.StatusCreated, widgetResponse{ID: res.Widget.ID, Config: res.Widget.Config()})
	}
}

func lookupWidget(reg *widget.Registry, r *nethttp.Request) (*widget.Widget, error) {
	id := chi.URLParam(r, "id")
	wg, ok := reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errWidgetNotFound, id)
	}
	return wg, nil
}

// GET /widgets/{id}
func GetWidgetHandler(reg *widget.Registry) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		wg, err := lookupWidget(reg, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, widgetResponse{ID: wg.ID, Config: wg.Config()})
	}
}

// DELETE /widgets/{id}
func DeleteWidgetHandler(reg *widget.Registry) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		wg, err := lookupWidget(reg, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		reg.Delete(wg.ID)
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// POST /widgets/{id}/toggle  { "series": "INF1000" }
// An explicit "visible" sets the state instead of flipping it.
func ToggleHandler(reg *widget.Registry) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		wg, err := lookupWidget(reg, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req struct {
			Series  string `json:"series"`
			Visible *bool  `json:"visible"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Series == "" {
			writeError(w, r, fmt.Errorf("%w: want {series}", errBadRequest))
			return
		}
		var cfg widget.Config
		if req.Visible != nil {
			cfg, err = wg.SetVisible(req.Series, *req.Visible)
		} else {
			cfg, err = wg.Toggle(req.Series)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, widgetResponse{ID: wg.ID, Config: cfg})
	}
}

// GET /widgets/{id}/chart.png and /widgets/{id}/chart.svg
func ChartHandler(reg *widget.Registry, f render.Format, opts render.Options) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		wg, err := lookupWidget(reg, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := render.Render(&buf, wg.Config(), f, opts); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		_, _ = buf.WriteTo(w)
	}
}

// POST /widgets/{id}/snapshot?format=png stores the rendered chart.
func SnapshotHandler(reg *widget.Registry, bs storage.BlobStore, opts render.Options) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		wg, err := lookupWidget(reg, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f := render.PNG
		if q := r.URL.Query().Get("format"); q != "" {
			if f, err = render.ParseFormat(q); err != nil {
				writeError(w, r, err)
				return
			}
		}
		var buf bytes.Buffer
		if err := render.Render(&buf, wg.Config(), f, opts); err != nil {
			writeError(w, r, err)
			return
		}
		key, err := bs.Put(storage.SnapshotKey(wg.Course, wg.ID, string(f)), &buf)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, map[string]string{"key": key})
	}
}
