// Package demo is the counter application driven by the tether CLI.
package demo

import (
	"context"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/pkg/domain"
)

// State is the demo state shape: a required counter and an optional value.
type State struct {
	Counter int    `mapstructure:"counter" json:"counter"`
	Value   string `mapstructure:"value,omitempty" json:"value,omitempty"`
}

// UpdateValue stores its argument in value, leaving counter untouched.
var UpdateValue = tether.CreateAction("updateValue", func(_ context.Context, value string, set tether.Setter[State]) error {
	return set.Set(domain.Fields{"value": value})
})

// IncrementCounter adds one to counter.
var IncrementCounter = tether.CreatePureAction("incrementCounter", func(set tether.Setter[State]) error {
	return set.Update(func(prev State) domain.Fields {
		return domain.Fields{"counter": prev.Counter + 1}
	})
})

// NewStore builds the demo store from a raw initial snapshot (nil means the zero state).
func NewStore(initial map[string]any, opts ...tether.Option) (*tether.Store[State], error) {
	if initial == nil {
		return tether.CreateStore(State{}, opts...)
	}
	return tether.CreateStoreFromMap[State](initial, opts...)
}
