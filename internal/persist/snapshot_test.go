package persist_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpipe-project/rpipe-server/internal/persist"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.snapshot")

	ver := version.MustParse("8.1.0")
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("A", ver, true, time.Hour)
		return err
	}))
	var streamID string
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		streamID = u.Streams["A"].StreamID
		return nil
	}))
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream("A", streamID, ver, []byte("hello "), false, 1<<20)
		return err
	}))
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream("A", streamID, ver, []byte("world"), true, 1<<20)
		return err
	}))

	var streams map[string]*state.Stream
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		streams = u.Streams
		return nil
	}))

	require.NoError(t, persist.Save(path, streams))

	loaded, err := persist.Load(path)
	require.NoError(t, err)
	require.Contains(t, loaded, "A")

	got := loaded["A"]
	want := streams["A"]
	assert.True(t, want.Version.Equal(got.Version))
	assert.Equal(t, want.Encrypted, got.Encrypted)
	assert.Equal(t, want.Final, got.Final)
	assert.Equal(t, want.UploadComplete, got.UploadComplete)
	assert.Equal(t, want.StreamID, got.StreamID)
	assert.WithinDuration(t, want.Expire, got.Expire, time.Millisecond)
	require.Equal(t, len(want.Data), len(got.Data))
	for i := range want.Data {
		assert.Equal(t, want.Data[i], got.Data[i])
	}
	// A freshly loaded stream is never mid-read.
	assert.False(t, got.Locked)
}

func TestLoadMissingFileYieldsEmptyState(t *testing.T) {
	dir := t.TempDir()
	loaded, err := persist.Load(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadRejectsOlderVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.snapshot")
	require.NoError(t, os.WriteFile(path, []byte("8.0.0\n1\n0\n\n"), 0o600))

	_, err := persist.Load(path)
	assert.Error(t, err)
}
