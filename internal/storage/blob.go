package storage

import (
	"errors"
	"io"
	"path"
	"strings"
)

var ErrBadKey = errors.New("bad blob key")

// BlobStore keeps rendered chart snapshots.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) (string, error) // fs returns "file://..." for dev
}

// SnapshotKey is where the snapshot of one widget is kept,
// e.g. snapshots/IN1000/<widget id>.png.
func SnapshotKey(course, widgetID, ext string) string {
	return path.Join("snapshots", safeSegment(course), safeSegment(widgetID)+"."+ext)
}

func safeSegment(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}
