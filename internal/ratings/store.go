// Package ratings persists the rating tuples each course page embeds.
package ratings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
)

var ErrEmptyCourse = errors.New("empty widget course")

type Store interface {
	// PutRatings upserts points under the page of widgetCourse. A point is
	// keyed by (widgetCourse, point course, term); a later import overwrites
	// its score but not its position.
	PutRatings(ctx context.Context, widgetCourse string, points []series.DataPoint) (int, error)
	// ListRatings returns the points of one page in the order they were
	// first stored.
	ListRatings(ctx context.Context, widgetCourse string) ([]series.DataPoint, error)
	ListCourses(ctx context.Context) ([]string, error)
	// TermScores collects every distinct (course, term) score by term.
	TermScores(ctx context.Context) (map[term.Term][]float64, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutRatings(ctx context.Context, widgetCourse string, points []series.DataPoint) (int, error) {
	return s.PutRatingsThen(ctx, widgetCourse, points, nil)
}

// PutRatingsThen is PutRatings with then run in the same transaction once
// the rows are written. An error from then rolls the whole import back.
//
// New rows continue the page's insert sequence. Rows that already exist
// keep their position and only take the new score.
func (s *SQLStore) PutRatingsThen(ctx context.Context, widgetCourse string, points []series.DataPoint,
	then func(context.Context, *sql.Tx) error) (int, error) {
	if widgetCourse == "" {
		return 0, ErrEmptyCourse
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM ratings WHERE widget_course=$1`,
		widgetCourse).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	now := time.Now().Unix()
	for i, p := range points {
		if _, err := tx.ExecContext(ctx, `INSERT INTO ratings (widget_course,course,term,score,seq,imported_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (widget_course,course,term) DO UPDATE SET score=EXCLUDED.score, imported_at=EXCLUDED.imported_at`,
			widgetCourse, p.Course, p.Term.String(), p.Score, next+int64(i), now); err != nil {
			return 0, fmt.Errorf("rating %d: %w", i, err)
		}
	}
	if then != nil {
		if err := then(ctx, tx); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(points), nil
}

func (s *SQLStore) ListRatings(ctx context.Context, widgetCourse string) ([]series.DataPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT course,term,score FROM ratings
		WHERE widget_course=$1 ORDER BY seq, course, term`, widgetCourse)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []series.DataPoint
	for rows.Next() {
		var (
			p  series.DataPoint
			ts string
		)
		if err := rows.Scan(&p.Course, &ts, &p.Score); err != nil {
			return nil, err
		}
		if p.Term, err = term.Parse(ts); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListCourses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT widget_course FROM ratings ORDER BY widget_course`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) TermScores(ctx context.Context) (map[term.Term][]float64, error) {
	// a course shows up on its own page and on the pages of its successors
	rows, err := s.db.QueryContext(ctx, `SELECT course,term,MAX(score) FROM ratings
		WHERE course <> $1 GROUP BY course,term ORDER BY course,term`, series.AverageCourse)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[term.Term][]float64{}
	for rows.Next() {
		var (
			course, ts string
			score      float64
		)
		if err := rows.Scan(&course, &ts, &score); err != nil {
			return nil, err
		}
		t, err := term.Parse(ts)
		if err != nil {
			return nil, err
		}
		out[t] = append(out[t], score)
	}
	return out, rows.Err()
}
