package demo

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tether"
)

// TestProps are the props given where the Test component is placed.
type TestProps struct {
	Title string `mapstructure:"title"`
}

// TestMapped are the props the binding derives from the store.
type TestMapped struct {
	Counter     int                `mapstructure:"counter"`
	Value       string             `mapstructure:"value"`
	Increment   func() error       `mapstructure:"incrementCounter"`
	UpdateValue func(string) error `mapstructure:"updateValue"`
}

// Bind maps the state and the dispatch capability to TestMapped.
func Bind(store *tether.Store[State]) tether.Binding[State, TestMapped] {
	return tether.Connect(store, func(s State, dispatch tether.Dispatch[State]) TestMapped {
		return TestMapped{
			Counter: s.Counter,
			Value:   s.Value,
			Increment: func() error {
				return dispatch(IncrementCounter())
			},
			UpdateValue: func(v string) error {
				return dispatch(UpdateValue(v))
			},
		}
	})
}

// Markdown renders the Test component's view.
func Markdown(props tether.Props[TestProps, TestMapped]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", props.Own.Title)
	fmt.Fprintf(&sb, "- **counter**: %d\n", props.Mapped.Counter)
	value := props.Mapped.Value
	if value == "" {
		value = "_(empty)_"
	}
	fmt.Fprintf(&sb, "- **value**: %s\n", value)
	return sb.String()
}

// NewTest returns the Test component. Every render writes the view to w through render
// (a markdown renderer such as tui.NewRenderer; nil writes the raw markdown).
func NewTest(w io.Writer, render func(string) (string, error)) tether.Component[TestProps, TestMapped] {
	return tether.ComponentFunc[TestProps, TestMapped](func(_ context.Context, props tether.Props[TestProps, TestMapped]) error {
		out := Markdown(props)
		if render != nil {
			var err error
			if out, err = render(out); err != nil {
				return fmt.Errorf("render test component: %w", err)
			}
		}
		_, err := io.WriteString(w, out)
		return err
	})
}

// Connected wraps the Test component with the demo binding.
func Connected(store *tether.Store[State], w io.Writer, render func(string) (string, error)) (*tether.Connected[State, TestProps, TestMapped], error) {
	return tether.WithStore(store, NewTest(w, render), Bind(store))
}
