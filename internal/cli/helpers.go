package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/tether/internal/config"
	"github.com/aretw0/tether/internal/logging"
	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/adapters/redis"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/persistence/middleware"
	"github.com/aretw0/tether/pkg/ports"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout component output).
func createLogger(debug bool, level string) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	if level == "" {
		return logging.NewNop()
	}
	return logging.New(logging.ParseLevel(level))
}

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.Debug("Dispatch", "action", e.Record.Action, "outcome", e.Record.Outcome, "commits", e.Record.Commits)
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.Debug("Commit", "version", e.Version, "changed", e.Changed)
		},
		OnNotify: func(ctx context.Context, e *domain.NotifyEvent) {
			logger.Debug("Notify", "round", e.Round, "subscribers", e.Subscribers, "failed", e.Failed)
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.Debug("Queued work failed", "err", e.Err)
		},
	}
}

// setupJournal builds the journal selected in the configuration (nil for "none"),
// wrapped with the masking and encryption middlewares it asks for.
// The returned close function is never nil.
func setupJournal(cfg config.JournalConfig) (ports.Journal, func() error, error) {
	noop := func() error { return nil }

	var (
		journal ports.Journal
		closer  = noop
	)
	switch cfg.Backend {
	case config.JournalRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Limit > 0 {
			opts = append(opts, redis.WithMaxLen(int64(cfg.Limit)))
		}
		j := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		journal, closer = j, j.Close
	case config.JournalNone:
		return nil, noop, nil
	default:
		journal = memory.NewJournal(memory.WithLimit(cfg.Limit))
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		_ = closer()
		return nil, noop, err
	}

	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Mask))
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return middleware.Chain(journal, mws...), closer, nil
}
