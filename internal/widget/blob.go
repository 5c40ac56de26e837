package widget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
)

var ErrMalformedBlob = errors.New("malformed rating blob")

// Decode parses the data blob embedded in a course page:
//
//	[["H2019", 4.41, "IN1000"], ["V2020", 4.7, "IN1000"]]
//
// A missing or blank blob is ErrNoData. Malformed term strings surface as
// *term.MalformedTermError.
func Decode(raw []byte) ([]series.DataPoint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, series.ErrNoData
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlob, err)
	}
	out := make([]series.DataPoint, 0, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("%w: rating %d has %d fields, want [term, score, course]", ErrMalformedBlob, i, len(row))
		}
		var (
			ts     string
			score  float64
			course string
		)
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("%w: rating %d term: %v", ErrMalformedBlob, i, err)
		}
		tm, err := term.Parse(ts)
		if err != nil {
			return nil, fmt.Errorf("rating %d: %w", i, err)
		}
		if err := json.Unmarshal(row[1], &score); err != nil {
			return nil, fmt.Errorf("%w: rating %d score: %v", ErrMalformedBlob, i, err)
		}
		if err := json.Unmarshal(row[2], &course); err != nil {
			return nil, fmt.Errorf("%w: rating %d course: %v", ErrMalformedBlob, i, err)
		}
		out = append(out, series.DataPoint{Term: tm, Score: score, Course: course})
	}
	return out, nil
}

// Encode is the inverse of Decode.
func Encode(points []series.DataPoint) ([]byte, error) {
	rows := make([][3]any, len(points))
	for i, p := range points {
		rows[i] = [3]any{p.Term.String(), p.Score, p.Course}
	}
	return json.Marshal(rows)
}
