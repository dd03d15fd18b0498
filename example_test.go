package tether_test

import (
	"context"
	"fmt"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/pkg/domain"
)

func Example() {
	type State struct {
		Counter int    `mapstructure:"counter"`
		Value   string `mapstructure:"value,omitempty"`
	}
	type Own struct {
		Title string `mapstructure:"title"`
	}
	type Mapped struct {
		Counter int `mapstructure:"counter"`
	}

	store, _ := tether.CreateStore(State{})

	increment := tether.CreatePureAction("incrementCounter", func(set tether.Setter[State]) error {
		return set.Update(func(prev State) domain.Fields {
			return domain.Fields{"counter": prev.Counter + 1}
		})
	})
	updateValue := tether.CreateAction("updateValue", func(_ context.Context, v string, set tether.Setter[State]) error {
		return set.Set(domain.Fields{"value": v})
	})

	view := tether.ComponentFunc[Own, Mapped](func(_ context.Context, p tether.Props[Own, Mapped]) error {
		fmt.Printf("%s: %d\n", p.Own.Title, p.Mapped.Counter)
		return nil
	})
	binding := tether.Connect(store, func(s State, _ tether.Dispatch[State]) Mapped {
		return Mapped{Counter: s.Counter}
	})
	connected, _ := tether.WithStore(store, view, binding)

	provider := store.NewProvider()
	defer provider.Close()
	ctx := provider.Scope(context.Background())

	if _, err := connected.Mount(ctx, Own{Title: "Test"}); err != nil {
		fmt.Println(err)
		return
	}

	_ = provider.Dispatch(ctx, increment())
	_ = provider.Dispatch(ctx, updateValue("foo")) // not mapped: no render
	_ = provider.Dispatch(ctx, increment())

	fmt.Printf("%+v\n", provider.Get())
	// Output:
	// Test: 0
	// Test: 1
	// Test: 2
	// {Counter:2 Value:foo}
}

func ExampleCreateStoreFromMap() {
	type State struct {
		Counter int    `mapstructure:"counter"`
		Value   string `mapstructure:"value,omitempty"`
	}

	_, err := tether.CreateStoreFromMap[State](map[string]any{"value": "foo"})
	fmt.Println(err)

	store, _ := tether.CreateStoreFromMap[State](map[string]any{"counter": 1})
	fmt.Printf("%+v\n", store.Initial())
	// Output:
	// invalid initial state: configuration error: field "counter": required field missing
	// {Counter:1 Value:}
}
