// Package term models academic terms (a spring or autumn period in a given
// year) and their chronological order.
package term

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

type Period byte

const (
	Spring Period = 'V'
	Autumn Period = 'H'
)

// Code returns the one-letter period code used in the compact form.
func (p Period) Code() string { return string(rune(p)) }

func (p Period) valid() bool { return p == Spring || p == Autumn }

// rank is the position of a period inside its year.
func (p Period) rank() int {
	if p == Spring {
		return 0
	}
	return 1
}

// Term is one academic period, e.g. H2019 (autumn 2019).
type Term struct {
	Period Period
	Year   int
}

// MalformedTermError reports a string that is not a period letter followed
// by a four digit year.
type MalformedTermError struct {
	Input  string
	Reason string
}

func (e *MalformedTermError) Error() string {
	return fmt.Sprintf("malformed term %q: %s", e.Input, e.Reason)
}

// Parse reads the compact form ("V2020", "H2019").
func Parse(s string) (Term, error) {
	if len(s) != 5 {
		return Term{}, &MalformedTermError{Input: s, Reason: "want period letter and 4-digit year"}
	}
	p := Period(s[0])
	if !p.valid() {
		return Term{}, &MalformedTermError{Input: s, Reason: "unknown period " + strconv.Quote(s[:1])}
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Term{}, &MalformedTermError{Input: s, Reason: "year is not numeric"}
		}
	}
	year, _ := strconv.Atoi(s[1:])
	return Term{Period: p, Year: year}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Term {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String formats the term in its compact form; it is the inverse of Parse.
func (t Term) String() string {
	return fmt.Sprintf("%s%04d", t.Period.Code(), t.Year)
}

// Compare orders terms by year, then spring before autumn.
func Compare(a, b Term) int {
	switch {
	case a.Year < b.Year:
		return -1
	case a.Year > b.Year:
		return 1
	}
	ra, rb := a.Period.rank(), b.Period.rank()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

func (t Term) Before(o Term) bool { return Compare(t, o) < 0 }

// Sort orders terms chronologically in place.
func Sort(ts []Term) {
	sort.Slice(ts, func(i, j int) bool { return Compare(ts[i], ts[j]) < 0 })
}

// Next returns the term that follows t.
func (t Term) Next() Term {
	if t.Period == Spring {
		return Term{Period: Autumn, Year: t.Year}
	}
	return Term{Period: Spring, Year: t.Year + 1}
}

// Range enumerates every term from..to inclusive. It returns nil when to
// precedes from.
func Range(from, to Term) []Term {
	if Compare(from, to) > 0 {
		return nil
	}
	var out []Term
	for cur := from; Compare(cur, to) <= 0; cur = cur.Next() {
		out = append(out, cur)
	}
	return out
}

func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Term) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Term) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Term) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
