package storage_test

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseratings/internal/storage"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := storage.SnapshotKey("IN1000", "w1", "png")
	assert.Equal(t, "snapshots/IN1000/w1.png", key)

	got, err := s.Put(key, strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	rc, err := s.Get(key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(body))

	u, err := s.URL(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/snapshots/IN1000/w1.png"))
}

func TestFSStoreRejectsEscapes(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside", "a/../../outside"} {
		_, err := s.Put(key, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrBadKey, key)
	}
	_, err = s.Get("../x")
	assert.ErrorIs(t, err, storage.ErrBadKey)

	assert.Equal(t, "snapshots/____etc/w1.png", storage.SnapshotKey("../../etc", "w1", "png"))
}

func TestFSStoreGetMissing(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Get("snapshots/none.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
