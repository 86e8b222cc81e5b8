package state_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

var v1 = version.MustParse("8.1.0")

func TestFIFOFidelity(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("A", v1, false, time.Minute)
		return err
	}))

	writes := [][]byte{[]byte("hello "), []byte("world"), []byte("!")}
	var streamID string
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		streamID = u.Streams["A"].StreamID
		return nil
	}))

	for i, w := range writes {
		final := i == len(writes)-1
		require.NoError(t, s.WithState(func(u *state.Unlocked) error {
			_, err := u.AppendStream("A", streamID, v1, w, final, 1<<20)
			return err
		}))
	}

	var got [][]byte
	for {
		var res state.ReadResult
		err := s.WithState(func(u *state.Unlocked) error {
			var innerErr error
			res, innerErr = u.ReadStream("A", v1, false, "reader-1", 100)
			return innerErr
		})
		if err == state.ErrNoData {
			break
		}
		require.NoError(t, err)
		got = append(got, res.Blocks...)
		if res.Final && len(res.Blocks) == 0 {
			break
		}
	}

	var gotBytes, wantBytes []byte
	for _, b := range got {
		gotBytes = append(gotBytes, b...)
	}
	for _, b := range writes {
		wantBytes = append(wantBytes, b...)
	}
	assert.Equal(t, string(wantBytes), string(gotBytes))
}

func TestStreamIDConflict(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("C", v1, false, time.Minute)
		return err
	}))

	// A second POST to an Open channel is a conflict.
	err := s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("C", v1, false, time.Minute)
		return err
	})
	assert.ErrorIs(t, err, state.ErrConflict)

	// A PUT with the wrong stream_id is a conflict.
	err = s.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream("C", "not-the-real-id", v1, []byte("x"), false, 1<<20)
		return err
	})
	assert.ErrorIs(t, err, state.ErrConflict)
}

func TestCapacityBound(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("B", v1, false, time.Minute)
		return err
	}))
	var streamID string
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		streamID = u.Streams["B"].StreamID
		return nil
	}))

	const maxBytes = 8
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream("B", streamID, v1, []byte("1234"), false, maxBytes)
		return err
	}))

	err := s.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream("B", streamID, v1, []byte("56789"), false, maxBytes)
		return err
	})
	assert.ErrorIs(t, err, state.ErrPipeFull)

	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		total := u.Streams["B"].TotalBytes()
		assert.LessOrEqual(t, total, maxBytes)
		return nil
	}))
}

func TestPostOnExhaustedReplaces(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("D", v1, false, time.Minute)
		return err
	}))
	var streamID string
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		streamID = u.Streams["D"].StreamID
		return nil
	}))
	// Drain to Exhausted: final, empty.
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream("D", streamID, v1, nil, true, 1<<20)
		return err
	}))
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		assert.True(t, u.Streams["D"].Exhausted())
		return nil
	}))

	// A fresh POST now replaces rather than conflicts.
	var newID string
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		ns, err := u.CreateStream("D", v1, false, time.Minute)
		if err == nil {
			newID = ns.StreamID
		}
		return err
	}))
	assert.NotEqual(t, streamID, newID)
}

func TestPruneEvictsExpiredAndExhausted(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("E", v1, false, -time.Second) // already expired
		return err
	}))

	var evicted []string
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		evicted = u.PruneSweep(time.Now())
		return nil
	}))
	assert.Contains(t, evicted, "E")
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, ok := u.Streams["E"]
		assert.False(t, ok)
		return nil
	}))
}

func TestWithStateAfterShutdownFails(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.Shutdown(nil))
	err := s.WithState(func(u *state.Unlocked) error { return nil })
	assert.ErrorIs(t, err, state.ErrServerShutdown)

	err = s.Shutdown(nil)
	assert.ErrorIs(t, err, state.ErrAlreadyShutdown)
}
