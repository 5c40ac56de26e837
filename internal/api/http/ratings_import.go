package http

import (
	"fmt"
	"mime"
	"strconv"
	"strings"

	nethttp "net/http"

	authmw "github.com/mind-engage/courseratings/internal/auth/middleware"
	"github.com/mind-engage/courseratings/internal/eventlog"
	"github.com/mind-engage/courseratings/internal/ingest"
	"github.com/mind-engage/courseratings/internal/ratings"
	"github.com/mind-engage/courseratings/internal/series"
)

const maxUpload = 8 << 20

// POST /ratings/import?course=IN1000
//
// The body is either the JSON tuple blob or a multipart form with an xlsx
// workbook in "file" (sheet picked by the optional "sheet" field).
func ImportRatingsHandler(im *ratings.Importer) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		course := strings.TrimSpace(r.URL.Query().Get("course"))
		if course == "" {
			writeError(w, r, fmt.Errorf("%w: course query parameter required", errBadRequest))
			return
		}
		r.Body = nethttp.MaxBytesReader(w, r.Body, maxUpload)

		var (
			points []series.DataPoint
			source string
			err    error
		)
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mt {
		case "multipart/form-data":
			source = "xlsx"
			points, err = readUpload(r)
		default:
			source = "json"
			points, err = ingest.ReadJSON(r.Body)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		n, err := im.Import(r.Context(), course, source, authmw.SubjectFromContext(r.Context()), points)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"course": course, "imported": n})
	}
}

func readUpload(r *nethttp.Request) ([]series.DataPoint, error) {
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file required", errBadRequest)
	}
	defer f.Close()
	return ingest.DecodeXLSX(f, r.FormValue("sheet"))
}

// GET /events?after=0&limit=100
func ListEventsHandler(repo *eventlog.Repo) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		q := r.URL.Query()
		after, _ := strconv.ParseInt(q.Get("after"), 10, 64)
		limit, _ := strconv.Atoi(q.Get("limit"))
		events, err := repo.List(r.Context(), after, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if events == nil {
			events = []eventlog.Event{}
		}
		writeJSON(w, nethttp.StatusOK, events)
	}
}
