package http

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/courseratings/internal/storage"
)

// MountSnapshots serves stored chart snapshots under the router it is
// mounted on.
func MountSnapshots(r chi.Router, bs storage.BlobStore) {
	// GET /snapshots/*   -> returns the blob at whatever follows /snapshots/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if key == "" || strings.Contains(key, "..") {
			writeError(w, r, storage.ErrBadKey)
			return
		}
		rc, err := bs.Get(path.Join("snapshots", key))
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer rc.Close()
		switch path.Ext(key) {
		case ".svg":
			w.Header().Set("Content-Type", "image/svg+xml")
		case ".png":
			w.Header().Set("Content-Type", "image/png")
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		_, _ = io.Copy(w, rc)
	})
}
