package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDispatch EventType = "dispatch"
	EventCommit   EventType = "commit"
	EventNotify   EventType = "notify"
	EventError    EventType = "error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	StoreID   string    `json:"store_id"`
}

// DispatchEvent is emitted once a dispatched action finished running.
type DispatchEvent struct {
	EventBase
	Record ActionRecord `json:"record"`
}

// CommitEvent is emitted after a new snapshot replaced the previous one.
type CommitEvent struct {
	EventBase
	Version uint64 `json:"version"`
	Changed Fields `json:"changed,omitempty"`
}

// NotifyEvent is emitted once a notification round is over.
type NotifyEvent struct {
	EventBase
	Round       uint64        `json:"round"`
	Subscribers int           `json:"subscribers"`
	Failed      int           `json:"failed,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// ErrorEvent reports failures that could not be returned to the original caller,
// such as work queued from inside a subscriber while a round was running.
type ErrorEvent struct {
	EventBase
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for container observability.
// Hooks run synchronously on the container's lane and must not block.
type LifecycleHooks struct {
	OnDispatch func(context.Context, *DispatchEvent)
	OnCommit   func(context.Context, *CommitEvent)
	OnNotify   func(context.Context, *NotifyEvent)
	OnError    func(context.Context, *ErrorEvent)
}

// Merge returns hooks calling h first and then other, for every callback set in either.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDispatch: chain(h.OnDispatch, other.OnDispatch),
		OnCommit:   chain(h.OnCommit, other.OnCommit),
		OnNotify:   chain(h.OnNotify, other.OnNotify),
		OnError:    chain(h.OnError, other.OnError),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
