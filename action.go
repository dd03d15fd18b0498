package tether

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/tether/pkg/domain"
)

// Setter is the state-setting capability handed to an action while it runs.
//
// Each Set or Update call is its own atomic commit followed by its own notification
// round, in call order. A failing call applies nothing and returns the error.
// Calls must come from the action's goroutine; an effect finishing later may keep the
// Setter and call it afterwards, in which case the update is serialized like any other.
type Setter[S any] interface {
	// Get returns the current snapshot.
	Get() S
	// Set shallow-merges a literal patch.
	Set(patch domain.Fields) error
	// Update merges the patch computed from the previous snapshot.
	Update(fn func(prev S) domain.Fields) error
}

// Dispatchable is one intended state mutation: a tagged variant of the action name,
// its captured arguments and the state shape S it applies to.
// It does nothing until passed to Dispatch.
type Dispatchable[S any] struct {
	seq    uint64
	action string
	args   any
	pure   bool
	run    func(ctx context.Context, set Setter[S]) error
}

// Dispatch is the capability handed to bindings to dispatch actions on the current provider.
type Dispatch[S any] func(Dispatchable[S]) error

var dispatchSeq atomic.Uint64

// Action returns the name of the action definition.
func (d Dispatchable[S]) Action() string {
	return d.action
}

// Args returns the captured arguments (nil for pure actions).
func (d Dispatchable[S]) Args() any {
	return d.args
}

// Pure reports whether d was built by a pure action.
func (d Dispatchable[S]) Pure() bool {
	return d.pure
}

// Record returns the serializable tag of d.
func (d Dispatchable[S]) Record() domain.ActionRecord {
	return domain.ActionRecord{
		Seq:    d.seq,
		Action: d.action,
		Args:   d.args,
		Pure:   d.pure,
	}
}

// CreateAction defines an effectful action taking arguments of type A.
// fn receives the arguments and the Setter; it may call it any number of times and may
// perform effects beyond the container. The returned factory only builds Dispatchables.
func CreateAction[A, S any](name string, fn func(ctx context.Context, args A, set Setter[S]) error) func(A) Dispatchable[S] {
	return func(args A) Dispatchable[S] {
		return Dispatchable[S]{
			seq:    dispatchSeq.Add(1),
			action: name,
			args:   args,
			run: func(ctx context.Context, set Setter[S]) error {
				return fn(ctx, args, set)
			},
		}
	}
}

// CreatePureAction defines an action whose effect depends only on the current state.
// Arguments passed to the returned factory are ignored: they are neither captured nor recorded.
func CreatePureAction[S any](name string, fn func(set Setter[S]) error) func(...any) Dispatchable[S] {
	return func(...any) Dispatchable[S] {
		return Dispatchable[S]{
			seq:    dispatchSeq.Add(1),
			action: name,
			pure:   true,
			run: func(_ context.Context, set Setter[S]) error {
				return fn(set)
			},
		}
	}
}
