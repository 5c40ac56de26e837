// Package eventlog is the append-only audit trail of rating imports.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const TypeRatingsImported = "RatingsImported"

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Imported is the payload of a RatingsImported event.
type Imported struct {
	Source  string   `json:"source"`
	Count   int      `json:"count"`
	Courses []string `json:"courses"`
	User    string   `json:"user,omitempty"`
}

type Repo struct {
	db     *sql.DB
	siteID string
}

func NewRepo(db *sql.DB, siteID string) *Repo {
	if siteID == "" {
		siteID = "local"
	}
	return &Repo{db: db, siteID: siteID}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repo) Append(ctx context.Context, e Event) error {
	return r.append(ctx, r.db, e)
}

// AppendTx appends e inside tx, which must belong to the repo's database.
func (r *Repo) AppendTx(ctx context.Context, tx *sql.Tx, e Event) error {
	return r.append(ctx, tx, e)
}

func (r *Repo) append(ctx context.Context, ex execer, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// AppendImported records an import of the ratings on widgetCourse's page.
func (r *Repo) AppendImported(ctx context.Context, widgetCourse string, in Imported) error {
	e, err := importedEvent(widgetCourse, in)
	if err != nil {
		return err
	}
	return r.Append(ctx, e)
}

// AppendImportedTx is AppendImported inside tx.
func (r *Repo) AppendImportedTx(ctx context.Context, tx *sql.Tx, widgetCourse string, in Imported) error {
	e, err := importedEvent(widgetCourse, in)
	if err != nil {
		return err
	}
	return r.AppendTx(ctx, tx, e)
}

func importedEvent(widgetCourse string, in Imported) (Event, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: TypeRatingsImported, Key: widgetCourse, DataJSON: string(data)}, nil
}

// List returns up to limit events with a sequence number above after.
func (r *Repo) List(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
