package ports

import "context"

// Scheduler re-invokes a component's render function on behalf of the host UI framework.
// Synchronous schedulers return the render error; asynchronous ones enqueue the render
// and own its error reporting.
type Scheduler interface {
	Schedule(ctx context.Context, render func(context.Context) error) error
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(ctx context.Context, render func(context.Context) error) error

// Schedule calls f.
func (f SchedulerFunc) Schedule(ctx context.Context, render func(context.Context) error) error {
	return f(ctx, render)
}

// Immediate renders synchronously, inside the notification round that triggered it.
var Immediate Scheduler = SchedulerFunc(func(ctx context.Context, render func(context.Context) error) error {
	return render(ctx)
})
