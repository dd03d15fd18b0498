package runtime_test

import (
	"reflect"
	"testing"

	"github.com/aretw0/tether/internal/runtime"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

type settingsState struct {
	Title   string            `mapstructure:"title"`
	Retries int               `mapstructure:"retries,omitempty"`
	Tags    []string          `mapstructure:"tags"`
	Owner   profile           `mapstructure:"owner"`
	Labels  map[string]string `mapstructure:"labels"`
	Ignored string            `mapstructure:"-"`
	hidden  int
}

func TestShape_Names(t *testing.T) {
	shape, err := runtime.ShapeOf[settingsState]()
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "retries", "tags", "owner", "labels"}, shape.Names())
}

func TestShape_RejectsMalformedShapes(t *testing.T) {
	type noExported struct {
		a int
	}
	type duplicate struct {
		A int `mapstructure:"value"`
		B int `mapstructure:"Value"`
	}

	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{name: "Not a struct", typ: reflect.TypeOf(42)},
		{name: "Pointer to struct", typ: reflect.TypeOf(&settingsState{})},
		{name: "No exported fields", typ: reflect.TypeOf(noExported{})},
		{name: "Duplicate names", typ: reflect.TypeOf(duplicate{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.NewShape(tt.typ)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestShape_ApplyReplacesNestedValuesShallowly(t *testing.T) {
	shape, err := runtime.ShapeOf[settingsState]()
	require.NoError(t, err)

	s := settingsState{Owner: profile{Name: "ana", Email: "ana@example.com"}}
	v := reflect.ValueOf(&s).Elem()

	err = shape.Apply(v, domain.Fields{"owner": map[string]any{"name": "bia"}})
	require.NoError(t, err)

	assert.Equal(t, profile{Name: "bia"}, s.Owner, "nested struct is replaced, not merged")
}

func TestShape_ApplyIsAllOrNothing(t *testing.T) {
	shape, err := runtime.ShapeOf[settingsState]()
	require.NoError(t, err)

	s := settingsState{Title: "before"}
	v := reflect.ValueOf(&s).Elem()

	err = shape.Apply(v, domain.Fields{"title": "after", "retries": "many"})
	assert.Error(t, err)
	assert.Equal(t, "before", s.Title)
}

func TestShape_ApplyMatchesKeysCaseInsensitively(t *testing.T) {
	shape, err := runtime.ShapeOf[settingsState]()
	require.NoError(t, err)

	s := settingsState{}
	require.NoError(t, shape.Apply(reflect.ValueOf(&s).Elem(), domain.Fields{"Title": "x", "TAGS": []string{"a"}}))

	assert.Equal(t, "x", s.Title)
	assert.Equal(t, []string{"a"}, s.Tags)
}

func TestShape_Decode(t *testing.T) {
	shape, err := runtime.ShapeOf[settingsState]()
	require.NoError(t, err)

	t.Run("Complete", func(t *testing.T) {
		var s settingsState
		err := shape.Decode(map[string]any{
			"title": "demo",
			"owner": map[string]any{"name": "ana"},
		}, &s)
		require.NoError(t, err)
		assert.Equal(t, "demo", s.Title)
		assert.Equal(t, "ana", s.Owner.Name)
		assert.Zero(t, s.Retries)
	})

	t.Run("Missing Required", func(t *testing.T) {
		var s settingsState
		err := shape.Decode(map[string]any{"owner": map[string]any{}}, &s)

		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "title", cfgErr.Field)
	})

	t.Run("Unknown Key", func(t *testing.T) {
		var s settingsState
		err := shape.Decode(map[string]any{"title": "x", "owner": map[string]any{}, "colour": "red"}, &s)

		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "colour", cfgErr.Field)
	})
}

func TestFieldNames_AllowsEmptyStruct(t *testing.T) {
	names, err := runtime.FieldNames(reflect.TypeOf(struct{}{}))
	require.NoError(t, err)
	assert.Empty(t, names)
}
