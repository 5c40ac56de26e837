package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFlag(t *testing.T) {
	cases := map[string]Locale{
		"":      Norwegian,
		"en":    English,
		"en-GB": English,
		"EN":    English,
		"nb":    Norwegian,
		"nb-NO": Norwegian,
		"no":    Norwegian,
		"fr":    Norwegian,
		"???":   Norwegian,
	}
	for flag, want := range cases {
		assert.Equal(t, want, FromFlag(flag), "flag %q", flag)
	}
}

func TestLookupFallsBack(t *testing.T) {
	assert.Equal(t, Lookup(Norwegian), Lookup(Locale("sv")))
	assert.Equal(t, "General rating since ", Lookup(English).TitlePrefix)
}

func TestScaleLabel(t *testing.T) {
	tbl := Lookup(English)
	assert.Equal(t, "Exceptionally bad", tbl.ScaleLabel(1))
	assert.Equal(t, "Neither good nor bad", tbl.ScaleLabel(4))
	assert.Equal(t, "Exceptionally good", tbl.ScaleLabel(7))
	assert.Equal(t, "", tbl.ScaleLabel(0))
	assert.Equal(t, "", tbl.ScaleLabel(8))
}
