// Package ingest reads rating tuples from JSON blobs and spreadsheets.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/widget"
)

var (
	ErrScoreRange = fmt.Errorf("score outside %d..%d", series.MinScore, series.MaxScore)
	ErrNoCourse   = errors.New("missing course")
	ErrHeader     = errors.New("header must be term, score, course")
)

// RowError points at the offending input row. Rows count from 1 like a
// spreadsheet does.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// ReadJSON reads the same tuple format the course pages embed.
func ReadJSON(r io.Reader) ([]series.DataPoint, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	points, err := widget.Decode(raw)
	if err != nil {
		return nil, err
	}
	return points, Validate(points)
}

// Validate checks every point carries a course and a score on the rating
// scale.
func Validate(points []series.DataPoint) error {
	for i, p := range points {
		if strings.TrimSpace(p.Course) == "" {
			return &RowError{Row: i + 1, Err: ErrNoCourse}
		}
		if p.Score < series.MinScore || p.Score > series.MaxScore {
			return &RowError{Row: i + 1, Err: fmt.Errorf("%w: %g", ErrScoreRange, p.Score)}
		}
	}
	return nil
}

// ReadXLSX reads a workbook file. See DecodeXLSX.
func ReadXLSX(path, sheet string) ([]series.DataPoint, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fromWorkbook(f, sheet)
}

// DecodeXLSX reads a workbook stream. The sheet (the first one when sheet
// is empty) must start with a term, score, course header row; blank rows
// are skipped.
func DecodeXLSX(r io.Reader, sheet string) ([]series.DataPoint, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fromWorkbook(f, sheet)
}

func fromWorkbook(f *excelize.File, sheet string) ([]series.DataPoint, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, series.ErrNoData
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	var (
		out        []series.DataPoint
		headerSeen bool
	)
	for i, row := range rows {
		cells := trimRow(row)
		if len(cells) == 0 {
			continue
		}
		if !headerSeen {
			if !isHeader(cells) {
				return nil, &RowError{Row: i + 1, Err: ErrHeader}
			}
			headerSeen = true
			continue
		}
		if len(cells) < 3 {
			return nil, &RowError{Row: i + 1, Err: fmt.Errorf("want 3 cells, got %d", len(cells))}
		}
		tm, err := term.Parse(cells[0])
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		score, err := strconv.ParseFloat(strings.ReplaceAll(cells[1], ",", "."), 64)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: fmt.Errorf("score %q: %w", cells[1], err)}
		}
		p := series.DataPoint{Term: tm, Score: score, Course: cells[2]}
		if err := Validate([]series.DataPoint{p}); err != nil {
			var re *RowError
			if errors.As(err, &re) {
				re.Row = i + 1
			}
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, series.ErrNoData
	}
	return out, nil
}

func trimRow(row []string) []string {
	cells := make([]string, len(row))
	last := -1
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
		if cells[i] != "" {
			last = i
		}
	}
	return cells[:last+1]
}

func isHeader(cells []string) bool {
	if len(cells) < 3 {
		return false
	}
	want := []string{"term", "score", "course"}
	for i, w := range want {
		if !strings.EqualFold(cells[i], w) {
			return false
		}
	}
	return true
}
