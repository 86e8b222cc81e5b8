package prune_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpipe-project/rpipe-server/internal/prune"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

func TestWorkerEvictsOnTick(t *testing.T) {
	s := state.New(nil)
	require.NoError(t, s.WithState(func(u *state.Unlocked) error {
		_, err := u.CreateStream("expired", version.MustParse("8.1.0"), false, -time.Second)
		return err
	}))

	ctx, cancel := context.WithCancel(context.Background())
	w := prune.New(s, 5*time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		var exists bool
		_ = s.WithState(func(u *state.Unlocked) error {
			_, exists = u.Streams["expired"]
			return nil
		})
		return !exists
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
