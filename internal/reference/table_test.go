package reference_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/term"
)

func TestDefaultTable(t *testing.T) {
	tbl := reference.Default()
	require.Equal(t, 31, tbl.Len())

	v, ok := tbl.Lookup(term.MustParse("H2023"))
	require.True(t, ok)
	assert.InDelta(t, 4.83, v, 1e-9)

	_, ok = tbl.Lookup(term.MustParse("H2030"))
	assert.False(t, ok)

	terms := tbl.Terms()
	assert.Equal(t, "V2009", terms[0].String())
	assert.Equal(t, "H2009", terms[1].String())
	assert.Equal(t, "V2024", terms[len(terms)-1].String())

	// callers may not mutate the table through Terms
	terms[0] = term.MustParse("H1999")
	assert.Equal(t, "V2009", tbl.Terms()[0].String())
}

func TestDecodeEncode(t *testing.T) {
	in := "H2019: 4.41\nV2020: 4.5\n"
	tbl, err := reference.Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	var buf bytes.Buffer
	require.NoError(t, reference.Encode(&buf, tbl))
	assert.Equal(t, "H2019: 4.41\nV2020: 4.50\n", buf.String())

	_, err = reference.Decode(strings.NewReader("Q2019: 1\n"))
	var mErr *term.MalformedTermError
	assert.ErrorAs(t, err, &mErr)
}

func TestAverages(t *testing.T) {
	tbl := reference.Averages(map[term.Term][]float64{
		term.MustParse("V2020"): {4.0, 5.0, 4.555},
		term.MustParse("H2020"): {},
	})
	require.Equal(t, 1, tbl.Len())
	v, ok := tbl.Lookup(term.MustParse("V2020"))
	require.True(t, ok)
	assert.InDelta(t, 4.52, v, 1e-9)
}

func TestLookupOnNilTable(t *testing.T) {
	var tbl *reference.Table
	_, ok := tbl.Lookup(term.MustParse("V2020"))
	assert.False(t, ok)
	assert.Zero(t, tbl.Len())
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte("V2020: 4.00\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *reference.Table, 4)
	done := make(chan error, 1)
	go func() {
		done <- reference.Watch(ctx, path, nil, func(tb *reference.Table) {
			select {
			case got <- tb:
			default:
			}
		})
	}()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("V2020: 4.25\nH2020: 4.75\n"), 0o644))

	// a write may surface as several events; wait for the complete file
	deadline := time.After(5 * time.Second)
	for loaded := false; !loaded; {
		select {
		case tb := <-got:
			if tb.Len() != 2 {
				continue
			}
			v, ok := tb.Lookup(term.MustParse("V2020"))
			require.True(t, ok)
			assert.InDelta(t, 4.25, v, 1e-9)
			loaded = true
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}

	cancel()
	require.NoError(t, <-done)
}
