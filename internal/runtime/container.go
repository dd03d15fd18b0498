package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/domain"
)

// Subscriber is notified with every committed snapshot. ctx belongs to the running
// work: state changes started from a subscriber must use it to be queued behind the round.
type Subscriber[S any] func(ctx context.Context, state S) error

type subscription[S any] struct {
	id uint64
	fn Subscriber[S]
}

// job is one unit of work on the container's lane: a dispatch or a direct state update.
// done is set for callers waiting on their own result.
type job struct {
	ctx   context.Context
	label string
	run   func(context.Context) error
	done  chan error
}

// drain identifies one stretch of time during which a caller runs the lane.
// Contexts handed to that work carry it, which is how re-entrant calls are told
// apart from calls made by other goroutines.
// It is not zero-sized: distinct drains must have distinct addresses.
type drain struct {
	started time.Time
}

// laneKey is per container so work nested across containers keeps every marker.
type laneKey struct {
	container uint64
}

var containerSeq atomic.Uint64

// Container holds the current snapshot of S and its ordered subscribers.
//
// All mutations run on a single lane, FIFO. The first caller to find the lane idle
// drains it. Work submitted from inside the running work (with the context it was
// given) is queued and returns nil; its failures are reported to the drainer.
// Any other caller waits for its own work to run and gets its own error.
type Container[S any] struct {
	id     string
	key    laneKey
	shape  *Shape
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	mu      sync.RWMutex
	state   S
	version uint64
	round   uint64
	subs    []*subscription[S]
	nextSub uint64
	closed  bool

	lane      sync.Mutex
	current   *drain
	notifying bool
	queue     []job
}

// Option configures a Container.
type Option func(*options)

type options struct {
	id     string
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// WithID sets the identifier reported in events and logs.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewContainer creates a container holding initial. shape must describe S.
func NewContainer[S any](shape *Shape, initial S, opts ...Option) (*Container[S], error) {
	if shape == nil || shape.Type() != reflect.TypeOf((*S)(nil)).Elem() {
		return nil, &domain.ConfigurationError{Reason: "shape does not describe the container state type"}
	}

	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Container[S]{
		id:     o.id,
		key:    laneKey{container: containerSeq.Add(1)},
		shape:  shape,
		hooks:  o.hooks,
		logger: o.logger,
		state:  initial,
	}, nil
}

// ID returns the container identifier.
func (c *Container[S]) ID() string {
	return c.id
}

// Get returns the current snapshot. It never waits for a running round.
func (c *Container[S]) Get() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Version returns the number of commits so far.
func (c *Container[S]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns the current state flattened into fields.
func (c *Container[S]) Snapshot() domain.Fields {
	s := c.Get()
	return c.shape.Flatten(reflect.ValueOf(&s).Elem())
}

// Subscribe registers fn and returns a function removing it.
// The returned function is idempotent and safe to call during a notification round:
// the running round still calls every subscriber it started with, later rounds do not.
func (c *Container[S]) Subscribe(fn Subscriber[S]) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSub++
	sub := &subscription[S]{id: c.nextSub, fn: fn}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.remove(sub.id)
		})
	}
}

func (c *Container[S]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subs {
		if s.id == id {
			// Copy instead of shifting in place: a running round may hold the old slice.
			next := make([]*subscription[S], 0, len(c.subs)-1)
			next = append(next, c.subs[:i]...)
			c.subs = append(next, c.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (c *Container[S]) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// SetState shallow-merges patch onto the current snapshot.
func (c *Container[S]) SetState(ctx context.Context, patch domain.Fields) error {
	return c.UpdateState(ctx, func(S) domain.Fields { return patch })
}

// UpdateState merges the patch computed from the previous snapshot.
// Called from inside running work, the update is queued and nil is returned; its
// outcome is reported to whoever drains the lane.
func (c *Container[S]) UpdateState(ctx context.Context, fn func(prev S) domain.Fields) error {
	if c.isClosed() {
		return domain.ErrClosed
	}
	return c.submit(job{
		ctx:   ctx,
		label: "set_state",
		run: func(ctx context.Context) error {
			_, err := c.commit(ctx, fn)
			return err
		},
	})
}

// Dispatch runs an action on the lane. rec carries the dispatchable's tag;
// it is completed (outcome, commits, timing) and reported to OnDispatch.
func (c *Container[S]) Dispatch(ctx context.Context, rec domain.ActionRecord, run func(context.Context, *Updater[S]) error) error {
	rec.StoreID = c.id
	if c.isClosed() {
		rec.Outcome = domain.OutcomeRejected
		rec.DispatchedAt = time.Now()
		rec.Error = domain.ErrClosed.Error()
		c.emitDispatch(ctx, rec)
		return domain.ErrClosed
	}
	late := context.WithValue(context.WithoutCancel(ctx), c.key, (*drain)(nil))
	return c.submit(job{
		ctx:   ctx,
		label: rec.Action,
		run: func(ctx context.Context) error {
			return c.runAction(ctx, late, rec, run)
		},
	})
}

func (c *Container[S]) runAction(ctx, late context.Context, rec domain.ActionRecord, run func(context.Context, *Updater[S]) error) error {
	u := &Updater[S]{c: c, ctx: ctx, late: late, live: true}
	rec.DispatchedAt = time.Now()

	err := guard(func() error { return run(ctx, u) })
	commits, failed, subErrs := u.finish()
	if err == nil {
		err = failed
	}

	rec.Commits = commits
	rec.Duration = time.Since(rec.DispatchedAt)
	if err != nil {
		rec.Outcome = domain.OutcomeFailed
		rec.Error = err.Error()
		err = &domain.ActionError{Action: rec.Action, Err: err}
		c.logger.Debug("action failed", "action", rec.Action, "commits", commits, "err", err)
	} else {
		rec.Outcome = domain.OutcomeCommitted
		c.logger.Debug("action dispatched", "action", rec.Action, "commits", commits)
	}
	c.emitDispatch(ctx, rec)

	return errors.Join(append([]error{err}, subErrs...)...)
}

// Exclusive runs fn while holding the lane, so it never overlaps a notification round.
// From inside running work fn runs inline; otherwise it waits its turn like a dispatch.
func (c *Container[S]) Exclusive(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	c.lane.Lock()
	if c.ownedLocked(ctx) {
		c.lane.Unlock()
		return guard(func() error { return fn(ctx) })
	}
	c.lane.Unlock()
	return c.submit(job{ctx: ctx, label: label, run: fn})
}

// Adopt returns base marked like from: work started with it counts as coming from
// inside the work from was handed to. A base marked by earlier work loses that mark.
func (c *Container[S]) Adopt(base, from context.Context) context.Context {
	d, _ := from.Value(c.key).(*drain)
	if d == nil && base.Value(c.key) == nil {
		return base
	}
	return context.WithValue(base, c.key, d)
}

// Pending returns the amount of work waiting behind the running work.
func (c *Container[S]) Pending() int {
	c.lane.Lock()
	defer c.lane.Unlock()
	return len(c.queue)
}

// Owns reports whether ctx was handed out by the work currently running on the lane.
func (c *Container[S]) Owns(ctx context.Context) bool {
	c.lane.Lock()
	defer c.lane.Unlock()
	return c.ownedLocked(ctx)
}

func (c *Container[S]) ownedLocked(ctx context.Context) bool {
	d, _ := ctx.Value(c.key).(*drain)
	return d != nil && d == c.current
}

// submit runs j immediately when the lane is idle, then drains anything queued meanwhile.
func (c *Container[S]) submit(j job) error {
	c.lane.Lock()
	if c.current != nil {
		if c.ownedLocked(j.ctx) {
			c.queue = append(c.queue, j)
			depth := len(c.queue)
			c.lane.Unlock()
			c.logger.Debug("work queued", "label", j.label, "depth", depth)
			return nil
		}

		j.done = make(chan error, 1)
		c.queue = append(c.queue, j)
		c.lane.Unlock()
		c.logger.Debug("waiting for lane", "label", j.label)
		return <-j.done
	}
	d := &drain{started: time.Now()}
	c.current = d
	c.lane.Unlock()

	err := c.runJob(d, j)
	return errors.Join(err, c.drain(d))
}

// drain runs the queue until it is empty. Errors of waiting callers go back to them;
// errors of re-entrant work are returned to the drainer.
func (c *Container[S]) drain(d *drain) error {
	var errs []error
	for {
		c.lane.Lock()
		if len(c.queue) == 0 {
			c.current = nil
			c.lane.Unlock()
			return errors.Join(errs...)
		}
		j := c.queue[0]
		c.queue[0] = job{}
		c.queue = c.queue[1:]
		c.lane.Unlock()

		err := c.runJob(d, j)
		if j.done != nil {
			j.done <- err
			continue
		}
		if err != nil {
			c.logger.Error("queued work failed", "label", j.label, "err", err)
			c.emitError(j.ctx, err)
			errs = append(errs, err)
		}
	}
}

func (c *Container[S]) runJob(d *drain, j job) error {
	ctx := context.WithValue(j.ctx, c.key, d)
	return guard(func() error { return j.run(ctx) })
}

// commit computes and swaps in the next snapshot, then notifies subscribers.
// When committed is true, err can only be a *domain.SubscriberError from the round.
func (c *Container[S]) commit(ctx context.Context, fn func(prev S) domain.Fields) (committed bool, err error) {
	if c.isClosed() {
		return false, domain.ErrClosed
	}

	prev := c.Get()
	var patch domain.Fields
	if err := guard(func() error {
		patch = fn(prev)
		return nil
	}); err != nil {
		return false, err
	}

	next := prev
	nextVal := reflect.ValueOf(&next).Elem()
	if err := c.shape.Apply(nextVal, patch); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.state = next
	c.version++
	version := c.version
	subs := c.subs
	c.mu.Unlock()

	changed := domain.Diff(c.shape.Flatten(reflect.ValueOf(&prev).Elem()), c.shape.Flatten(nextVal))
	c.logger.Debug("state committed", "version", version, "fields", len(patch), "changed", len(changed))
	if c.hooks.OnCommit != nil {
		c.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: c.base(domain.EventCommit),
			Version:   version,
			Changed:   changed,
		})
	}

	return true, c.notify(ctx, next, subs)
}

// notify runs one round over subs. Every subscriber runs even if an earlier one failed.
func (c *Container[S]) notify(ctx context.Context, snapshot S, subs []*subscription[S]) error {
	c.setNotifying(true)
	defer c.setNotifying(false)

	c.mu.Lock()
	c.round++
	round := c.round
	c.mu.Unlock()

	start := time.Now()
	var failures []domain.SubscriberFailure
	for _, sub := range subs {
		fn := sub.fn
		if err := guard(func() error { return fn(ctx, snapshot) }); err != nil {
			c.logger.Warn("subscriber failed", "round", round, "subscriber", sub.id, "err", err)
			failures = append(failures, domain.SubscriberFailure{SubscriberID: sub.id, Err: err})
		}
	}

	if c.hooks.OnNotify != nil {
		c.hooks.OnNotify(ctx, &domain.NotifyEvent{
			EventBase:   c.base(domain.EventNotify),
			Round:       round,
			Subscribers: len(subs),
			Failed:      len(failures),
			Duration:    time.Since(start),
		})
	}

	if len(failures) > 0 {
		return &domain.SubscriberError{Round: round, Failures: failures}
	}
	return nil
}

// Close drops every subscriber and rejects further work with domain.ErrClosed.
// Work already queued fails with domain.ErrClosed when its turn comes; waiting callers
// still get that error.
func (c *Container[S]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.subs = nil
}

// Closed reports whether Close was called.
func (c *Container[S]) Closed() bool {
	return c.isClosed()
}

func (c *Container[S]) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Container[S]) setNotifying(v bool) {
	c.lane.Lock()
	c.notifying = v
	c.lane.Unlock()
}

func (c *Container[S]) isNotifying() bool {
	c.lane.Lock()
	defer c.lane.Unlock()
	return c.notifying
}

func (c *Container[S]) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, StoreID: c.id}
}

func (c *Container[S]) emitDispatch(ctx context.Context, rec domain.ActionRecord) {
	if c.hooks.OnDispatch != nil {
		c.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			EventBase: c.base(domain.EventDispatch),
			Record:    rec,
		})
	}
}

func (c *Container[S]) emitError(ctx context.Context, err error) {
	if c.hooks.OnError != nil {
		c.hooks.OnError(ctx, &domain.ErrorEvent{
			EventBase: c.base(domain.EventError),
			Err:       err,
		})
	}
}

// guard runs fn and converts a panic into a *domain.PanicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%w: %w", &domain.PanicError{Value: r}, e)
				return
			}
			err = &domain.PanicError{Value: r}
		}
	}()
	return fn()
}
