/*
Package tether is a small reactive state container that binds application state to UI components.

It follows the "store + actions + connector" shape popularized by Redux-like libraries,
without depending on any UI framework: the container is an explicit observer, providers are
scoped through context.Context, and components are re-rendered through a plain Render call.

# Concept

A Store is a definition built once from an initial snapshot of a struct type S. Each Provider
owns one live container of S for its lifetime. State changes only through dispatched actions
(or SetState on the container), every change is a new snapshot, and subscribers are notified
synchronously, in registration order, once per committed change.

Components never touch the container directly. A Binding maps (state, dispatch) to the subset of
props the component needs; WithStore merges those mapped props with the props given at the call
site and re-renders only when the mapped props actually changed.

# Usage

	type State struct {
		Counter int     `mapstructure:"counter"`
		Value   *string `mapstructure:"value"`
	}

	store, err := tether.CreateStore(State{})
	if err != nil {
		log.Fatal(err)
	}

	updateValue := tether.CreateAction("update_value", func(_ context.Context, v string, set tether.Setter[State]) error {
		return set.Set(domain.Fields{"value": v})
	})
	incrementCounter := tether.CreatePureAction("increment_counter", func(set tether.Setter[State]) error {
		return set.Update(func(s State) domain.Fields {
			return domain.Fields{"counter": s.Counter + 1}
		})
	})

	provider := store.NewProvider()
	defer provider.Close()

	ctx := provider.Scope(context.Background())
	_ = provider.Dispatch(ctx, incrementCounter())
	_ = provider.Dispatch(ctx, updateValue("foo"))

# Ordering

All work on a container runs on one lane, in FIFO order. A dispatch issued from inside
running work (an action, a subscriber or a render, using the context it was given) is
queued and runs after the current notification round; the outer call reports its failure.
A dispatch from another goroutine waits for its turn and returns its own result.
*/
package tether
