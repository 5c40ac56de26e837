package http

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/courseratings/internal/ingest"
	"github.com/mind-engage/courseratings/internal/ratings"
	"github.com/mind-engage/courseratings/internal/render"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/storage"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/widget"
)

// Handlers only; routes live in cmd/ratingd

// GET /courses
func ListCoursesHandler(store ratings.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courses, err := store.ListCourses(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, courses)
	}
}

// GET /courses/{code}/ratings returns the tuple blob a course page embeds.
func CourseRatingsHandler(store ratings.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		code := chi.URLParam(r, "code")
		points, err := store.ListRatings(r.Context(), code)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(points) == 0 {
			writeError(w, r, series.ErrNoData)
			return
		}
		blob, err := widget.Encode(points)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(blob)
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps domain errors to HTTP status codes. Invariant violations
// are server errors; their details stay in the logs.
func statusOf(err error) int {
	var (
		malformed *term.MalformedTermError
		rowErr    *ingest.RowError
	)
	switch {
	case errors.Is(err, series.ErrNoData), errors.Is(err, errWidgetNotFound), errors.Is(err, fs.ErrNotExist):
		return nethttp.StatusNotFound
	case errors.As(err, &malformed), errors.As(err, &rowErr),
		errors.Is(err, widget.ErrMalformedBlob), errors.Is(err, widget.ErrUnknownSeries),
		errors.Is(err, render.ErrUnknownFormat), errors.Is(err, ratings.ErrEmptyCourse),
		errors.Is(err, errBadRequest), errors.Is(err, storage.ErrBadKey):
		return nethttp.StatusBadRequest
	}
	return nethttp.StatusInternalServerError
}

func writeError(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= 500 {
		slog.Default().Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		msg = nethttp.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
