// Package reference holds the site-wide average score per term that rating
// charts draw as their comparison line.
package reference

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/courseratings/internal/term"
)

// Table maps a term to the average score across all courses that term.
// A Table is immutable once built.
type Table struct {
	scores map[term.Term]float64
	terms  []term.Term
}

func newTable(scores map[term.Term]float64) *Table {
	t := &Table{scores: scores, terms: make([]term.Term, 0, len(scores))}
	for k := range scores {
		t.terms = append(t.terms, k)
	}
	term.Sort(t.terms)
	return t
}

// Lookup returns the average for tm, if the table has one.
func (t *Table) Lookup(tm term.Term) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.scores[tm]
	return v, ok
}

// Terms returns the covered terms in chronological order.
func (t *Table) Terms() []term.Term {
	if t == nil {
		return nil
	}
	out := make([]term.Term, len(t.terms))
	copy(out, t.terms)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.terms)
}

var builtin = newTable(mustScores(map[string]float64{
	"V2009": 4.40, "H2009": 4.40,
	"V2010": 4.22, "H2010": 4.15,
	"V2011": 4.32, "H2011": 4.08,
	"V2012": 4.36, "H2012": 4.26,
	"V2013": 4.19, "H2013": 4.36,
	"V2014": 4.21, "H2014": 4.20,
	"V2015": 4.23, "H2015": 4.30,
	"V2016": 4.41, "H2016": 4.19,
	"V2017": 4.48, "H2017": 4.66,
	"V2018": 4.14, "H2018": 4.42,
	"V2019": 4.43, "H2019": 4.41,
	"V2020": 4.48, "H2020": 4.48,
	"V2021": 4.49, "H2021": 4.58,
	"V2022": 4.40, "H2022": 4.36,
	"V2023": 4.56, "H2023": 4.83,
	"V2024": 4.20,
}))

// Default returns the built-in historical table.
func Default() *Table { return builtin }

func mustScores(raw map[string]float64) map[term.Term]float64 {
	out, err := parseScores(raw)
	if err != nil {
		panic(err)
	}
	return out
}

func parseScores(raw map[string]float64) (map[term.Term]float64, error) {
	out := make(map[term.Term]float64, len(raw))
	for k, v := range raw {
		tm, err := term.Parse(k)
		if err != nil {
			return nil, err
		}
		out[tm] = v
	}
	return out, nil
}

// Decode reads a YAML mapping of term to average ("H2019: 4.41").
func Decode(r io.Reader) (*Table, error) {
	var raw map[string]float64
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return newTable(map[term.Term]float64{}), nil
		}
		return nil, fmt.Errorf("decode reference table: %w", err)
	}
	scores, err := parseScores(raw)
	if err != nil {
		return nil, fmt.Errorf("decode reference table: %w", err)
	}
	return newTable(scores), nil
}

// Load reads a reference table file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes t as YAML, one term per line in chronological order.
func Encode(w io.Writer, t *Table) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, tm := range t.Terms() {
		v, _ := t.Lookup(tm)
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: tm.String()},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: fmt.Sprintf("%.2f", v)},
		)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}

// Averages builds a table holding the mean of each term's scores rounded to
// two decimals. Terms without scores are left out.
func Averages(scores map[term.Term][]float64) *Table {
	out := make(map[term.Term]float64, len(scores))
	for tm, vs := range scores {
		if len(vs) == 0 {
			continue
		}
		var sum float64
		for _, v := range vs {
			sum += v
		}
		out[tm] = math.Round(sum/float64(len(vs))*100) / 100
	}
	return newTable(out)
}

// FromMap builds a table from already parsed scores.
func FromMap(scores map[term.Term]float64) *Table {
	cp := make(map[term.Term]float64, len(scores))
	for k, v := range scores {
		cp[k] = v
	}
	return newTable(cp)
}
