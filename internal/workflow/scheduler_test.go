package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunRefreshOnce(t *testing.T) {
	deps, _ := newTestDeps(t, &constantPredictor{bumpPlayerID: 8}, nil)
	orch := New(deps, DefaultConfig(1), zerolog.Nop())
	sched := NewScheduler(orch, zerolog.Nop())

	require.NoError(t, sched.RunRefreshOnce(context.Background()))
}

func TestScheduler_RunWeeklyWorkflowOnce(t *testing.T) {
	deps, store := newTestDeps(t, &constantPredictor{bumpPlayerID: 8}, nil)
	orch := New(deps, DefaultConfig(1), zerolog.Nop())
	sched := NewScheduler(orch, zerolog.Nop())

	require.NoError(t, sched.RunWeeklyWorkflowOnce(context.Background(), 2))

	latest, ok, err := store.Decisions().Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, latest.Gameweek)
}

func TestScheduler_StartStopsOnContextCancel(t *testing.T) {
	deps, _ := newTestDeps(t, &constantPredictor{bumpPlayerID: 8}, nil)
	orch := New(deps, DefaultConfig(1), zerolog.Nop())
	sched := NewScheduler(orch, zerolog.Nop())
	sched.RefreshInterval = time.Hour
	sched.IntelligenceInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
