package shutdown_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpipe-project/rpipe-server/internal/shutdown"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

func TestTriggerIsIdempotentAndSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.snapshot")

	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("A", version.MustParse("8.1.0"), false, time.Hour)
		return err
	}))

	c, ctx := shutdown.New(context.Background(), s, path)
	c.Trigger(ctx)
	c.Trigger(ctx) // must not panic or double-save

	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, s.IsShutdown())

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be canceled after Trigger")
	}
}
