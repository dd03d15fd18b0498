package runtime

import (
	"context"
	"sync"

	"github.com/aretw0/tether/pkg/domain"
)

// Updater is the state-setting capability handed to a running action.
//
// While the action runs, each Set/Update is its own commit and notification round,
// in call order. Calls made from inside a round are queued behind it. Calls made after
// the action returned (effects finishing later) wait for the lane like any other caller.
type Updater[S any] struct {
	c   *Container[S]
	ctx context.Context
	// late is used once the action returned: detached from the dispatch's
	// cancellation and from the lane it ran on.
	late context.Context

	mu      sync.Mutex
	live    bool
	commits int
	failed  error
	subErrs []error
}

// Get returns the container's current snapshot.
func (u *Updater[S]) Get() S {
	return u.c.Get()
}

// Set shallow-merges patch onto the current snapshot.
func (u *Updater[S]) Set(patch domain.Fields) error {
	return u.Update(func(S) domain.Fields { return patch })
}

// Update merges the patch computed from the previous snapshot.
func (u *Updater[S]) Update(fn func(prev S) domain.Fields) error {
	u.mu.Lock()
	live := u.live
	u.mu.Unlock()

	if !live {
		return u.c.UpdateState(u.late, fn)
	}
	if u.c.isNotifying() {
		return u.c.UpdateState(u.ctx, fn)
	}

	committed, err := u.c.commit(u.ctx, fn)

	u.mu.Lock()
	defer u.mu.Unlock()
	if committed {
		u.commits++
		if err != nil {
			u.subErrs = append(u.subErrs, err)
		}
		return nil
	}
	if u.failed == nil {
		u.failed = err
	}
	return err
}

// finish detaches the updater from the running action and reports what happened.
func (u *Updater[S]) finish() (commits int, failed error, subErrs []error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.live = false
	return u.commits, u.failed, u.subErrs
}
