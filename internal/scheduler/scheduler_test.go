package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"obsidion/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFunc(t *testing.T) {
	s := NewScheduler(config.NewMockConfig(nil))

	require.NoError(t, s.RegisterFunc("@hourly", "prune-logs", func(context.Context) error { return nil }))
	require.NoError(t, s.RegisterFunc("@every 30m", "botlist", func(context.Context) error { return nil }))
	require.NoError(t, s.RegisterFunc("@every 10m", "botlist", func(context.Context) error { return nil }))
	assert.ElementsMatch(t, []string{"prune-logs", "botlist"}, s.Jobs())

	err := s.RegisterFunc("every now and then", "bad", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.NotContains(t, s.Jobs(), "bad")
}

func TestJobsRunAndSurviveFailures(t *testing.T) {
	s := NewScheduler(config.NewMockConfig(nil))

	var ok, failing, panicking atomic.Int32
	require.NoError(t, s.RegisterFunc("@every 1s", "ok", func(context.Context) error {
		ok.Add(1)
		return nil
	}))
	require.NoError(t, s.RegisterFunc("@every 1s", "failing", func(context.Context) error {
		failing.Add(1)
		return errors.New("upstream down")
	}))
	require.NoError(t, s.RegisterFunc("@every 1s", "panicking", func(context.Context) error {
		panicking.Add(1)
		panic("boom")
	}))

	s.Start()
	assert.Eventually(t, func() bool {
		return ok.Load() >= 2 && failing.Load() >= 2 && panicking.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(config.NewMockConfig(nil))

	started := make(chan struct{}, 1)
	require.NoError(t, s.RegisterFunc("@every 1s", "slow", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running job")
	}
}
