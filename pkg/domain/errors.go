package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is matched by every construction-time or mount-time misconfiguration.
var ErrConfiguration = errors.New("configuration error")

// ErrAction is matched by every failure raised while running a dispatched action.
var ErrAction = errors.New("action failed")

// ErrSubscriber is matched when one or more subscribers failed during a notification round.
var ErrSubscriber = errors.New("subscriber failed")

// ErrClosed is returned when dispatching to a provider that has been closed.
var ErrClosed = errors.New("provider closed")

// ErrNoProvider is returned when a connected component is mounted outside of any provider scope.
var ErrNoProvider = fmt.Errorf("%w: no provider in scope", ErrConfiguration)

// ErrUnknownField is returned when a patch names a field the state shape does not declare.
var ErrUnknownField = errors.New("unknown field")

// ConfigurationError describes a malformed state shape, initial state or prop binding.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: field %q: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ActionError wraps the failure of a dispatched action.
// The container state is left at the last committed snapshot.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() []error {
	return []error{ErrAction, e.Err}
}

// SubscriberFailure is the failure of a single subscriber within a round.
type SubscriberFailure struct {
	SubscriberID uint64
	Err          error
}

// SubscriberError aggregates every subscriber failure of one notification round.
// The mutation that triggered the round stays committed.
type SubscriberError struct {
	Round    uint64
	Failures []SubscriberFailure
}

func (e *SubscriberError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("subscriber %d: %v", f.SubscriberID, f.Err))
	}
	return fmt.Sprintf("round %d: %d subscriber(s) failed: %s", e.Round, len(e.Failures), strings.Join(msgs, "; "))
}

func (e *SubscriberError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrSubscriber)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// PanicError carries a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
