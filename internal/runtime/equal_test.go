package runtime_test

import (
	"testing"

	"github.com/aretw0/tether/internal/runtime"
	"github.com/stretchr/testify/assert"
)

type mapped struct {
	Counter  int
	Value    *string
	Items    []int
	OnClick  func()
	Nested   struct{ A, B int }
	Anything any
}

func TestShallowEqual(t *testing.T) {
	foo := "foo"
	bar := "foo"
	items := []int{1, 2}

	base := mapped{Counter: 1, Value: &foo, Items: items, OnClick: func() {}, Anything: 3}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "Identical", a: base, b: base, want: true},
		{
			name: "Fresh Handlers Are Equal",
			a:    base,
			b:    mapped{Counter: 1, Value: &foo, Items: items, OnClick: func() {}, Anything: 3},
			want: true,
		},
		{
			name: "Handler Removed",
			a:    base,
			b:    mapped{Counter: 1, Value: &foo, Items: items, Anything: 3},
			want: false,
		},
		{
			name: "Scalar Changed",
			a:    base,
			b:    mapped{Counter: 2, Value: &foo, Items: items, OnClick: func() {}, Anything: 3},
			want: false,
		},
		{
			name: "Pointer Identity",
			a:    base,
			b:    mapped{Counter: 1, Value: &bar, Items: items, OnClick: func() {}, Anything: 3},
			want: false,
		},
		{
			name: "Slice Identity",
			a:    base,
			b:    mapped{Counter: 1, Value: &foo, Items: []int{1, 2}, OnClick: func() {}, Anything: 3},
			want: false,
		},
		{
			name: "Interface Dynamic Type",
			a:    base,
			b:    mapped{Counter: 1, Value: &foo, Items: items, OnClick: func() {}, Anything: int64(3)},
			want: false,
		},
		{name: "Both Nil", a: nil, b: nil, want: true},
		{name: "One Nil", a: nil, b: base, want: false},
		{name: "Different Types", a: 1, b: "1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.ShallowEqual(tt.a, tt.b))
		})
	}
}
