package tether_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_IndependentContainers(t *testing.T) {
	store := newStore(t)
	a := newProvider(t, store)
	b := newProvider(t, store)
	ctx := context.Background()

	require.NoError(t, a.Dispatch(ctx, incrementCounter()))
	require.NoError(t, a.Dispatch(ctx, incrementCounter()))
	require.NoError(t, b.Dispatch(ctx, updateValue("b")))

	assert.Equal(t, State{Counter: 2}, a.Get())
	assert.Equal(t, State{Value: "b"}, b.Get())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Same(t, store, a.Store())
}

func TestProvider_NearestScopeWins(t *testing.T) {
	store := newStore(t)
	outer := newProvider(t, store)
	inner := newProvider(t, store)

	outerCtx := outer.Scope(context.Background())
	innerCtx := inner.Scope(outerCtx)

	got, ok := store.From(innerCtx)
	require.True(t, ok)
	assert.Same(t, inner, got)

	got, ok = store.From(outerCtx)
	require.True(t, ok)
	assert.Same(t, outer, got)
}

func TestProvider_SubscriberFailureKeepsCommit(t *testing.T) {
	p := newProvider(t, newStore(t))
	boom := errors.New("boom")

	var calls []string
	p.Subscribe(func(context.Context, State) error {
		calls = append(calls, "first")
		return boom
	})
	p.Subscribe(func(context.Context, State) error {
		calls = append(calls, "second")
		return nil
	})

	err := p.Dispatch(context.Background(), incrementCounter())

	var subErr *domain.SubscriberError
	require.ErrorAs(t, err, &subErr)
	assert.Len(t, subErr.Failures, 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrAction)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 1, p.Get().Counter)
}

func TestProvider_ReentrantDispatchIsQueued(t *testing.T) {
	p := newProvider(t, newStore(t))
	ctx := context.Background()

	var seen []int
	p.Subscribe(func(ctx context.Context, s State) error {
		seen = append(seen, s.Counter)
		if s.Counter == 1 {
			// Queued: runs after this round is over.
			return p.Dispatch(ctx, incrementCounter())
		}
		return nil
	})
	p.Subscribe(func(_ context.Context, s State) error {
		seen = append(seen, s.Counter*10)
		return nil
	})

	require.NoError(t, p.Dispatch(ctx, incrementCounter()))

	assert.Equal(t, []int{1, 10, 2, 20}, seen)
	assert.Equal(t, 2, p.Get().Counter)
}

func TestProvider_Hooks(t *testing.T) {
	var events []string
	storeHooks := domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			events = append(events, "store-commit")
		},
	}
	providerHooks := domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			events = append(events, "provider-commit")
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			events = append(events, "dispatch:"+e.Record.Action)
		},
	}

	store := newStore(t, tether.WithLifecycleHooks(storeHooks))
	p := newProvider(t, store, tether.WithLifecycleHooks(providerHooks))

	require.NoError(t, p.Dispatch(context.Background(), incrementCounter()))

	assert.Equal(t, []string{"store-commit", "provider-commit", "dispatch:incrementCounter"}, events)
}

func TestProvider_Close(t *testing.T) {
	store := newStore(t)
	p := store.NewProvider()
	ctx := p.Scope(context.Background())

	calls := 0
	p.Subscribe(func(context.Context, State) error {
		calls++
		return nil
	})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "Close is idempotent")
	assert.True(t, p.Closed())

	assert.ErrorIs(t, p.Dispatch(ctx, incrementCounter()), domain.ErrClosed)
	assert.Zero(t, calls)
	assert.Equal(t, State{}, p.Get(), "the last snapshot stays readable")
}
