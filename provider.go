package tether

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/tether/internal/runtime"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
)

// Provider owns one container of S and exposes it to a subtree through context.Context.
// Descendant components reach it only through WithStore; hosts and tests may use it directly.
type Provider[S any] struct {
	store     *Store[S]
	id        string
	container *runtime.Container[S]
	journal   ports.Journal
	logger    *slog.Logger

	mu        sync.Mutex
	instances map[uint64]unmounter
	nextInst  uint64
	closed    bool
}

type unmounter interface {
	Unmount()
}

func newProvider[S any](store *Store[S], id string, cfg config) *Provider[S] {
	p := &Provider[S]{
		store:     store,
		id:        id,
		journal:   cfg.journal,
		logger:    cfg.logger.With("provider", id),
		instances: make(map[uint64]unmounter),
	}

	hooks := cfg.hooks
	if p.journal != nil {
		hooks = hooks.Merge(domain.LifecycleHooks{OnDispatch: p.record})
	}

	// The shape always describes S here, so construction cannot fail.
	container, err := runtime.NewContainer(store.shape, store.initial,
		runtime.WithID(id),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(p.logger),
	)
	if err != nil {
		panic(err)
	}
	p.container = container

	p.logger.Debug("provider created")
	return p
}

// record appends a finished dispatch to the journal. Journal failures never fail the dispatch.
func (p *Provider[S]) record(ctx context.Context, e *domain.DispatchEvent) {
	if err := p.journal.Append(ctx, e.Record); err != nil {
		p.logger.Warn("failed to journal dispatch", "action", e.Record.Action, "err", err)
	}
}

// ID returns the provider identifier (store name + sequence).
func (p *Provider[S]) ID() string {
	return p.id
}

// Store returns the definition this provider was created from.
func (p *Provider[S]) Store() *Store[S] {
	return p.store
}

// Scope returns a context exposing this provider to everything mounted with it.
// A nested Scope of another provider of the same store shadows this one.
func (p *Provider[S]) Scope(ctx context.Context) context.Context {
	return context.WithValue(ctx, p.store.key, p)
}

// Get returns the current snapshot.
func (p *Provider[S]) Get() S {
	return p.container.Get()
}

// Version returns the number of commits so far.
func (p *Provider[S]) Version() uint64 {
	return p.container.Version()
}

// Snapshot returns the current state flattened into fields.
func (p *Provider[S]) Snapshot() domain.Fields {
	return p.container.Snapshot()
}

// Pending returns how many dispatches and updates wait behind the running work.
func (p *Provider[S]) Pending() int {
	return p.container.Pending()
}

// Journal returns the journal attached with WithJournal, or nil.
func (p *Provider[S]) Journal() ports.Journal {
	return p.journal
}

// Subscribe registers fn for every committed snapshot. See runtime.Container.Subscribe.
// A subscriber that dispatches must pass the ctx it received.
func (p *Provider[S]) Subscribe(fn func(ctx context.Context, state S) error) (unsubscribe func()) {
	return p.container.Subscribe(fn)
}

// Dispatch runs d against this provider's container.
//
// It returns a *domain.ActionError when the action failed, a *domain.SubscriberError
// when subscribers failed while the state was committed, and domain.ErrClosed after Close.
//
// While other work runs, a caller from another goroutine waits for its turn and gets
// its own result. A dispatch made from inside an action or a subscriber, with the ctx
// it was given, is queued behind the running work and returns nil; its failure is
// reported by the outer call. Dispatching from inside with an unrelated context
// waits for the very work it is part of and never returns.
func (p *Provider[S]) Dispatch(ctx context.Context, d Dispatchable[S]) error {
	if d.run == nil {
		return &domain.ConfigurationError{Reason: "dispatchable was not built by an action factory"}
	}
	return p.container.Dispatch(ctx, d.Record(), func(ctx context.Context, u *runtime.Updater[S]) error {
		return d.run(ctx, u)
	})
}

// Closed reports whether Close was called.
func (p *Provider[S]) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close unmounts every connected instance, drops all subscribers and rejects further dispatches.
// It is safe to call more than once.
func (p *Provider[S]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	instances := make([]unmounter, 0, len(p.instances))
	for _, inst := range p.instances {
		instances = append(instances, inst)
	}
	p.instances = nil
	p.mu.Unlock()

	for _, inst := range instances {
		inst.Unmount()
	}
	p.container.Close()

	p.logger.Debug("provider closed", "unmounted", len(instances))
	return nil
}

func (p *Provider[S]) track(inst unmounter) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, domain.ErrClosed
	}
	p.nextInst++
	p.instances[p.nextInst] = inst
	return p.nextInst, nil
}

func (p *Provider[S]) untrack(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.instances, id)
}

// configurationErr wraps err as a configuration error unless it already is one.
func configurationErr(err error) error {
	if errors.Is(err, domain.ErrConfiguration) {
		return err
	}
	return &domain.ConfigurationError{Reason: err.Error()}
}
