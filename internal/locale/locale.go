// Package locale holds the two fixed string tables the rating charts are
// shown in and picks one from a page-level language flag.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

type Locale string

const (
	Norwegian Locale = "nb"
	English   Locale = "en"

	Default = Norwegian
)

// Table is the set of strings a widget needs for one locale.
type Table struct {
	// ScaleLabels maps score 1..7 to its ordinal label (index 0 is score 1).
	ScaleLabels [7]string
	// Periods maps a period code ("V", "H") to its name.
	Periods       map[string]string
	TitlePrefix   string
	ReferenceName string
}

var tables = map[Locale]Table{
	Norwegian: {
		ScaleLabels: [7]string{
			"Meget dårlig", "Ganske dårlig", "Noe dårlig", "Hverken bra eller dårlig",
			"Noe bra", "Ganske bra", "Meget bra",
		},
		Periods:       map[string]string{"H": "høsten", "V": "våren"},
		TitlePrefix:   "Generell vurdering fra ",
		ReferenceName: "Gjennomsnitt på Ifi",
	},
	English: {
		ScaleLabels: [7]string{
			"Exceptionally bad", "Very bad", "Somewhat bad", "Neither good nor bad",
			"Somewhat good", "Very good", "Exceptionally good",
		},
		Periods:       map[string]string{"H": "autumn", "V": "spring"},
		TitlePrefix:   "General rating since ",
		ReferenceName: "Gjennomsnitt på Ifi",
	},
}

// Lookup returns the table for l, falling back to the default table.
func Lookup(l Locale) Table {
	if t, ok := tables[l]; ok {
		return t
	}
	return tables[Default]
}

var matcher = language.NewMatcher([]language.Tag{
	language.MustParse("nb"), // first entry is the fallback
	language.English,
})

// FromFlag maps a page language flag ("en", "en-GB", "nb", "") to a locale.
// Anything that is not English resolves to the default.
func FromFlag(flag string) Locale {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return Default
	}
	tag, err := language.Parse(flag)
	if err != nil {
		return Default
	}
	_, idx, conf := matcher.Match(tag)
	if idx == 1 && conf != language.No {
		return English
	}
	return Default
}

// ScaleLabel maps a score on the 1..7 scale to its label. Values outside the
// scale yield "".
func (t Table) ScaleLabel(v int) string {
	if v < 1 || v > len(t.ScaleLabels) {
		return ""
	}
	return t.ScaleLabels[v-1]
}
