package tether

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/tether/internal/runtime"
)

// Store is the definition of a state container: its shape, initial snapshot and defaults.
// It is created once and hands out independent Providers.
type Store[S any] struct {
	shape   *runtime.Shape
	initial S
	cfg     config
	key     *scopeKey
	seq     atomic.Uint64
}

// scopeKey is unique per Store so that lookups never cross store definitions.
type scopeKey struct {
	name string
}

// Validator is implemented by state shapes that check their own invariants.
type Validator interface {
	Validate() error
}

// CreateStore builds a store definition from a fully formed initial snapshot.
// S must be a struct with at least one exported field; if S implements Validator,
// initial must pass it. Failures are *domain.ConfigurationError.
func CreateStore[S any](initial S, opts ...Option) (*Store[S], error) {
	shape, err := runtime.ShapeOf[S]()
	if err != nil {
		return nil, fmt.Errorf("invalid state shape: %w", err)
	}

	if v, ok := any(initial).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid initial state: %w", configurationErr(err))
		}
	}

	cfg := config{name: "store"}.apply(opts)

	// Ensure logger is initialized so providers never check for nil
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.logger = cfg.logger.With("store", cfg.name)

	return &Store[S]{
		shape:   shape,
		initial: initial,
		cfg:     cfg,
		key:     &scopeKey{name: cfg.name},
	}, nil
}

// CreateStoreFromMap decodes the initial snapshot from raw (e.g. parsed YAML or JSON).
// A required field missing from raw, or a key S does not declare, is a configuration error.
func CreateStoreFromMap[S any](raw map[string]any, opts ...Option) (*Store[S], error) {
	shape, err := runtime.ShapeOf[S]()
	if err != nil {
		return nil, fmt.Errorf("invalid state shape: %w", err)
	}

	var initial S
	if err := shape.Decode(raw, &initial); err != nil {
		return nil, fmt.Errorf("invalid initial state: %w", err)
	}
	return CreateStore(initial, opts...)
}

// Name returns the store label.
func (s *Store[S]) Name() string {
	return s.cfg.name
}

// Initial returns the initial snapshot every new provider starts from.
func (s *Store[S]) Initial() S {
	return s.initial
}

// Fields returns the field names of the state shape in declaration order.
func (s *Store[S]) Fields() []string {
	return s.shape.Names()
}

// NewProvider instantiates one live container for this store.
func (s *Store[S]) NewProvider(opts ...Option) *Provider[S] {
	cfg := s.cfg.apply(opts)
	id := fmt.Sprintf("%s-%d", s.cfg.name, s.seq.Add(1))
	return newProvider(s, id, cfg)
}

// From returns the nearest provider of this store scoped into ctx.
func (s *Store[S]) From(ctx context.Context) (*Provider[S], bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(s.key).(*Provider[S])
	return p, ok
}
