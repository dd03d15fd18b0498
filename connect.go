package tether

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aretw0/tether/internal/runtime"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
)

// Binding maps the store state and the dispatch capability to a component's mapped props.
// It is a stateless descriptor, re-evaluated on every notification.
type Binding[S, M any] struct {
	mapper func(S, Dispatch[S]) M
	equal  func(a, b M) bool
}

// Connect declares a binding. M must be a struct type.
// The store argument only fixes S for type inference; it is not retained and may be nil.
func Connect[S, M any](_ *Store[S], mapper func(state S, dispatch Dispatch[S]) M) Binding[S, M] {
	return Binding[S, M]{mapper: mapper}
}

// WithEqual replaces the default shallow comparison used to skip redundant renders.
func (b Binding[S, M]) WithEqual(eq func(a, b M) bool) Binding[S, M] {
	b.equal = eq
	return b
}

func (b Binding[S, M]) same(x, y M) bool {
	if b.equal != nil {
		return b.equal(x, y)
	}
	return runtime.ShallowEqual(x, y)
}

// Props is the explicit merge of the props given at the call site (Own) and the
// props derived from the store (Mapped). Field names of O and M never overlap.
type Props[O, M any] struct {
	Own    O
	Mapped M
}

// Map flattens both halves into a single prop bag keyed by field name.
func (p Props[O, M]) Map() map[string]any {
	out := make(map[string]any)
	flattenInto(out, reflect.ValueOf(p.Own))
	flattenInto(out, reflect.ValueOf(p.Mapped))
	return out
}

func flattenInto(out map[string]any, v reflect.Value) {
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return
	}
	shape, err := runtime.NewShape(v.Type())
	if err != nil {
		// Empty own-props structs have nothing to contribute.
		return
	}
	for k, val := range shape.Flatten(v) {
		out[k] = val
	}
}

// Component is the render primitive of the host UI framework.
type Component[O, M any] interface {
	Render(ctx context.Context, props Props[O, M]) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc[O, M any] func(ctx context.Context, props Props[O, M]) error

// Render calls f.
func (f ComponentFunc[O, M]) Render(ctx context.Context, props Props[O, M]) error {
	return f(ctx, props)
}

// Connected is a component wrapped with a binding. Mount it once per place it appears.
type Connected[S, O, M any] struct {
	store     *Store[S]
	component Component[O, M]
	binding   Binding[S, M]
}

// WithStore wraps component with binding. O (own props) and M (mapped props) must be
// struct types whose field names are disjoint; a collision is a *domain.ConfigurationError.
func WithStore[S, O, M any](store *Store[S], component Component[O, M], binding Binding[S, M]) (*Connected[S, O, M], error) {
	if store == nil || component == nil || binding.mapper == nil {
		return nil, &domain.ConfigurationError{Reason: "store, component and binding are required"}
	}

	own, err := runtime.FieldNames(reflect.TypeOf((*O)(nil)).Elem())
	if err != nil {
		return nil, fmt.Errorf("own props: %w", err)
	}
	mapped, err := runtime.FieldNames(reflect.TypeOf((*M)(nil)).Elem())
	if err != nil {
		return nil, fmt.Errorf("mapped props: %w", err)
	}

	taken := make(map[string]bool, len(own))
	for _, name := range own {
		taken[strings.ToLower(name)] = true
	}
	for _, name := range mapped {
		if taken[strings.ToLower(name)] {
			return nil, &domain.ConfigurationError{Field: name, Reason: "mapped prop collides with an own prop"}
		}
	}

	return &Connected[S, O, M]{
		store:     store,
		component: component,
		binding:   binding,
	}, nil
}

// MountOption configures a mounted instance.
type MountOption func(*mountConfig)

type mountConfig struct {
	scheduler ports.Scheduler
}

// WithScheduler routes re-renders through the host's scheduler. By default renders run
// synchronously inside the notification round.
func WithScheduler(s ports.Scheduler) MountOption {
	return func(c *mountConfig) {
		c.scheduler = s
	}
}

// Mount resolves the provider scoped into ctx, renders the component once and subscribes
// it to the container until Unmount. Mounting outside any provider fails with domain.ErrNoProvider.
//
// The first render and the subscription happen while holding the container's lane,
// so no commit can slip in between and renders never overlap a notification round.
func (c *Connected[S, O, M]) Mount(ctx context.Context, own O, opts ...MountOption) (*Instance[S, O, M], error) {
	provider, ok := c.store.From(ctx)
	if !ok {
		return nil, domain.ErrNoProvider
	}

	cfg := mountConfig{scheduler: ports.Immediate}
	for _, opt := range opts {
		opt(&cfg)
	}

	inst := &Instance[S, O, M]{
		conn:      c,
		provider:  provider,
		ctx:       provider.container.Adopt(ctx, context.Background()),
		scheduler: cfg.scheduler,
		own:       own,
	}

	id, err := provider.track(inst)
	if err != nil {
		return nil, err
	}
	inst.id = id

	err = provider.container.Exclusive(ctx, "mount", func(ctx context.Context) error {
		if err := inst.render(ctx, own, inst.derive(ctx, provider.Get())); err != nil {
			return err
		}
		inst.mu.Lock()
		inst.mounted = true
		inst.unsubscribe = provider.Subscribe(inst.onState)
		inst.mu.Unlock()
		return nil
	})
	if err != nil {
		inst.Unmount()
		provider.untrack(id)
		return nil, err
	}
	return inst, nil
}

// Instance is one mounted connected component.
type Instance[S, O, M any] struct {
	conn      *Connected[S, O, M]
	provider  *Provider[S]
	ctx       context.Context
	scheduler ports.Scheduler
	id        uint64

	mu          sync.Mutex
	own         O
	mapped      M
	renders     int
	mounted     bool
	unsubscribe func()
}

// derive maps state. The dispatch it hands out keeps the mount scope, marked as coming
// from inside the running work when ctx is, so callbacks fired during a render are queued.
func (i *Instance[S, O, M]) derive(ctx context.Context, state S) M {
	dctx := i.provider.container.Adopt(i.ctx, ctx)
	return i.conn.binding.mapper(state, func(d Dispatchable[S]) error {
		return i.provider.Dispatch(dctx, d)
	})
}

// onState is the container subscriber: re-derive and re-render when mapped props changed.
func (i *Instance[S, O, M]) onState(ctx context.Context, state S) error {
	mapped := i.derive(ctx, state)

	i.mu.Lock()
	if !i.mounted || i.conn.binding.same(i.mapped, mapped) {
		i.mu.Unlock()
		return nil
	}
	own := i.own
	i.mu.Unlock()

	return i.render(ctx, own, mapped)
}

// render must run on the lane. The component sees the mount scope.
func (i *Instance[S, O, M]) render(ctx context.Context, own O, mapped M) error {
	i.mu.Lock()
	i.own = own
	i.mapped = mapped
	i.mu.Unlock()

	props := Props[O, M]{Own: own, Mapped: mapped}
	return i.scheduler.Schedule(i.provider.container.Adopt(i.ctx, ctx), func(ctx context.Context) error {
		i.mu.Lock()
		i.renders++
		i.mu.Unlock()
		return i.conn.component.Render(ctx, props)
	})
}

// Update re-renders the component with new own props and freshly mapped props.
// Like a dispatch, it waits for the container's lane unless called from inside running
// work with the ctx that work was given.
func (i *Instance[S, O, M]) Update(ctx context.Context, own O) error {
	return i.provider.container.Exclusive(ctx, "update", func(ctx context.Context) error {
		i.mu.Lock()
		mounted := i.mounted
		i.mu.Unlock()
		if !mounted {
			return fmt.Errorf("update after unmount: %w", domain.ErrClosed)
		}
		return i.render(ctx, own, i.derive(ctx, i.provider.Get()))
	})
}

// Props returns the props of the last render.
func (i *Instance[S, O, M]) Props() Props[O, M] {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Props[O, M]{Own: i.own, Mapped: i.mapped}
}

// RenderCount returns how many times the component has been rendered.
func (i *Instance[S, O, M]) RenderCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.renders
}

// Mounted reports whether the instance is still subscribed.
func (i *Instance[S, O, M]) Mounted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mounted
}

// Unmount releases the subscription. It is idempotent and safe during a notification round.
func (i *Instance[S, O, M]) Unmount() {
	i.mu.Lock()
	if !i.mounted {
		i.mu.Unlock()
		return
	}
	i.mounted = false
	unsubscribe := i.unsubscribe
	i.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	i.provider.untrack(i.id)
}
