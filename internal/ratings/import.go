package ratings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mind-engage/courseratings/internal/eventlog"
	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/series"
)

// Importer stores a batch of points and records the import in the event log.
type Importer struct {
	Store   Store
	Events  *eventlog.Repo // optional
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// txStore is a Store that can run more writes in the import transaction.
type txStore interface {
	PutRatingsThen(ctx context.Context, widgetCourse string, points []series.DataPoint,
		then func(context.Context, *sql.Tx) error) (int, error)
}

// Import stores points under widgetCourse. source names the input kind
// ("json", "xlsx") and user who triggered it.
//
// With a transactional store the event is written in the same transaction
// as the ratings, so either both are stored or neither is. Otherwise a
// failed event write is logged and the import still succeeds.
func (im *Importer) Import(ctx context.Context, widgetCourse, source, user string, points []series.DataPoint) (int, error) {
	if len(points) == 0 {
		return 0, series.ErrNoData
	}
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var courses []string
	seen := map[string]bool{}
	for _, p := range points {
		if !seen[p.Course] {
			seen[p.Course] = true
			courses = append(courses, p.Course)
		}
	}
	record := eventlog.Imported{Source: source, Count: len(points), Courses: courses, User: user}

	var (
		n   int
		err error
	)
	ts, transactional := im.Store.(txStore)
	switch {
	case im.Events != nil && transactional:
		n, err = ts.PutRatingsThen(ctx, widgetCourse, points, func(ctx context.Context, tx *sql.Tx) error {
			if err := im.Events.AppendImportedTx(ctx, tx, widgetCourse, record); err != nil {
				return fmt.Errorf("event log: %w", err)
			}
			return nil
		})
	default:
		n, err = im.Store.PutRatings(ctx, widgetCourse, points)
		if err == nil && im.Events != nil {
			if evErr := im.Events.AppendImported(ctx, widgetCourse, record); evErr != nil {
				logger.Error("Ratings stored but import event not recorded",
					slog.String("widget_course", widgetCourse),
					slog.String("error", evErr.Error()))
			}
		}
	}
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", widgetCourse, err)
	}
	im.Metrics.Imported(source, n)

	logger.Info("Ratings imported",
		slog.String("widget_course", widgetCourse),
		slog.String("source", source),
		slog.Int("count", n),
		slog.Any("courses", courses))
	return n, nil
}
