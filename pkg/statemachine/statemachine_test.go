package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/propnotify/pkg/statemachine"
)

type state string
type event string

const (
	idle    state = "idle"
	running state = "running"
	stopped state = "stopped"

	start event = "start"
	stop  event = "stop"
	reset event = "reset"
)

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var seen []string
	m := statemachine.New(idle,
		statemachine.WithTransition[state, event](idle, running, start),
		statemachine.WithTransition[state, event](running, stopped, stop),
		statemachine.WithTransitionFromAny([]state{running, stopped}, idle, reset),
		statemachine.OnTransition(func(from, to state, ev event) {
			seen = append(seen, string(from)+">"+string(to))
		}),
	)

	require.NoError(t, m.Fire(ctx, start, nil))
	assert.True(t, m.Is(running))
	require.NoError(t, m.Fire(ctx, stop, nil))
	require.NoError(t, m.Fire(ctx, reset, nil))
	assert.Equal(t, idle, m.Current())
	assert.Equal(t, []string{"idle>running", "running>stopped", "stopped>idle"}, seen)

	err := m.Fire(ctx, stop, nil)
	require.ErrorIs(t, err, statemachine.ErrNoTransition)
	var te *statemachine.TransitionError[state, event]
	require.ErrorAs(t, err, &te)
	assert.Equal(t, idle, te.From)
	assert.Equal(t, stop, te.Event)
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	enabled := func(_ context.Context, _ state, _ event, data any) bool {
		ok, _ := data.(bool)
		return ok
	}
	m := statemachine.New(idle,
		statemachine.WithTransition(idle, running, start, statemachine.WithGuard[state, event](enabled)),
	)

	assert.False(t, m.CanFire(ctx, start, false))
	assert.ErrorIs(t, m.Fire(ctx, start, false), statemachine.ErrTransitionRejected)
	assert.True(t, m.CanFire(ctx, start, true))
	require.NoError(t, m.Fire(ctx, start, true))
	assert.False(t, m.CanFire(ctx, stop, nil))
}

func TestMachine_GuardBranching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	never := func(context.Context, state, event, any) bool { return false }
	m := statemachine.New(idle,
		statemachine.WithTransition(idle, stopped, start, statemachine.WithGuard[state, event](never)),
		statemachine.WithTransition[state, event](idle, running, start),
	)
	require.NoError(t, m.Fire(ctx, start, nil))
	assert.Equal(t, running, m.Current())
}

func TestMachine_ActionFailureKeepsState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("boom")
	m := statemachine.New(idle,
		statemachine.WithTransition(idle, running, start,
			statemachine.WithAction[state, event](func(context.Context, state, state, event, any) error { return boom }),
		),
	)

	err := m.Fire(ctx, start, nil)
	require.ErrorIs(t, err, statemachine.ErrActionFailed)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, idle, m.Current())

	m.Reset()
	assert.Equal(t, idle, m.Current())
}
