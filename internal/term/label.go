package term

import (
	"strconv"

	"github.com/mind-engage/courseratings/internal/locale"
)

// PeriodName returns the localized name of t's period ("høsten", "spring").
func PeriodName(t Term, l locale.Locale) string {
	return locale.Lookup(l).Periods[t.Period.Code()]
}

// Label renders t for humans, e.g. "autumn 2019".
func Label(t Term, l locale.Locale) string {
	name := PeriodName(t, l)
	if name == "" {
		return t.String()
	}
	return name + " " + strconv.Itoa(t.Year)
}
