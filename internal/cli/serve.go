package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/config"
	"github.com/aretw0/tether/internal/demo"
	httpAdapter "github.com/aretw0/tether/pkg/adapters/http"
	"github.com/aretw0/tether/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeOptions contains the configuration for the serve command.
type ServeOptions struct {
	ConfigPath string
	Addr       string // Overrides the configured address when set
	Debug      bool
	Out        io.Writer // Receives the mounted component's output; nil discards it
}

// Server is a mounted demo container exposed over HTTP.
type Server struct {
	Handler  http.Handler
	Provider *tether.Provider[demo.State]
	Config   config.Config

	closers []func() error
}

// Close unmounts everything and releases the journal.
func (s *Server) Close() error {
	errs := []error{s.Provider.Close()}
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewServer wires the demo store, its journal, metrics and event streams behind the inspection API.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) (*Server, error) {
	if out == nil {
		out = io.Discard
	}

	streams := httpAdapter.NewStreamManager()
	hooks := streams.Hooks()

	var metricsHandler http.Handler
	if cfg.HTTP.Metrics {
		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)
		hooks = hooks.Merge(metrics.Hooks())
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	store, err := demo.NewStore(cfg.Initial,
		tether.WithName(cfg.Name),
		tether.WithLogger(logger),
		tether.WithLifecycleHooks(hooks),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing store: %w", err)
	}

	journal, closeJournal, err := setupJournal(cfg.Journal)
	if err != nil {
		return nil, err
	}
	provider := store.NewProvider(tether.WithJournal(journal))
	srv := &Server{Provider: provider, Config: cfg, closers: []func() error{closeJournal}}

	conn, err := demo.Connected(store, out, nil)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	if _, err := conn.Mount(provider.Scope(ctx), demo.TestProps{Title: cfg.Title}); err != nil {
		_ = srv.Close()
		return nil, fmt.Errorf("failed to mount component: %w", err)
	}

	actions := map[string]httpAdapter.ActionFunc{
		"incrementCounter": func(ctx context.Context, _ json.RawMessage) error {
			return provider.Dispatch(ctx, demo.IncrementCounter())
		},
		"updateValue": func(ctx context.Context, args json.RawMessage) error {
			var value string
			if err := json.Unmarshal(args, &value); err != nil {
				return fmt.Errorf("updateValue expects a JSON string: %w", err)
			}
			return provider.Dispatch(ctx, demo.UpdateValue(value))
		},
	}

	opts := []httpAdapter.Option{
		httpAdapter.WithActions(actions),
		httpAdapter.WithStreams(streams),
		httpAdapter.WithLogger(logger),
	}
	if metricsHandler != nil {
		opts = append(opts, httpAdapter.WithMetrics(metricsHandler))
	}
	srv.Handler = httpAdapter.NewHandler(provider, opts...)
	return srv, nil
}

// RunServer serves the demo container until ctx is cancelled.
func RunServer(ctx context.Context, opts ServeOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}

	logger := createLogger(opts.Debug, cfg.LogLevel)

	server, err := NewServer(ctx, cfg, logger, opts.Out)
	if err != nil {
		return err
	}
	defer server.Close()

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Handler,
		// Event streams end with ctx instead of holding Shutdown until its timeout.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting tether server", "addr", srv.Addr, "store", server.Provider.ID())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests (and open event streams) a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Tether server stopped gracefully")
		return nil
	}
}
