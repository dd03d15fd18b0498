package runtime

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

const tagName = "mapstructure"

// field describes one exported top-level field of a state shape.
type field struct {
	name     string
	index    []int
	typ      reflect.Type
	optional bool
}

// Shape is the reflected layout of a state struct.
// Field names follow mapstructure tags and are matched case-insensitively.
type Shape struct {
	typ    reflect.Type
	fields []field
	byKey  map[string]int
}

// NewShape reflects t, which must be a struct type with at least one exported field.
func NewShape(t reflect.Type) (*Shape, error) {
	fields, err := structFields(t)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("state shape %s has no exported fields", t)}
	}

	s := &Shape{
		typ:    t,
		fields: fields,
		byKey:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.byKey[strings.ToLower(f.name)] = i
	}
	return s, nil
}

// ShapeOf reflects the type parameter S.
func ShapeOf[S any]() (*Shape, error) {
	return NewShape(reflect.TypeOf((*S)(nil)).Elem())
}

// FieldNames lists the field names of a struct type. Unlike NewShape it accepts empty structs.
func FieldNames(t reflect.Type) ([]string, error) {
	fields, err := structFields(t)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names, nil
}

func structFields(t reflect.Type) ([]field, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("expected a struct type, got %v", t)}
	}

	var fields []field
	seen := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(sf.Tag.Get(tagName), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		key := strings.ToLower(name)
		if prev, dup := seen[key]; dup {
			return nil, &domain.ConfigurationError{
				Field:  name,
				Reason: fmt.Sprintf("collides with field %s", prev),
			}
		}
		seen[key] = sf.Name

		fields = append(fields, field{
			name:     name,
			index:    sf.Index,
			typ:      sf.Type,
			optional: isNillable(sf.Type) || strings.Contains(opts, "omitempty"),
		})
	}
	return fields, nil
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	}
	return false
}

// Type returns the reflected struct type.
func (s *Shape) Type() reflect.Type {
	return s.typ
}

// Names returns the field names in declaration order.
func (s *Shape) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

func (s *Shape) lookup(key string) (*field, bool) {
	i, ok := s.byKey[strings.ToLower(key)]
	if !ok {
		return nil, false
	}
	return &s.fields[i], true
}

// Apply shallow-merges patch onto dst, an addressable value of the shape's type.
// Every value is decoded before any field is assigned, so a failing patch leaves dst untouched.
func (s *Shape) Apply(dst reflect.Value, patch domain.Fields) error {
	type assignment struct {
		f *field
		v reflect.Value
	}

	keys := patch.Keys()
	sort.Strings(keys)

	pending := make([]assignment, 0, len(keys))
	for _, key := range keys {
		f, ok := s.lookup(key)
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownField, key)
		}
		v, err := decodeField(f.typ, patch[key])
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		pending = append(pending, assignment{f: f, v: v})
	}

	for _, a := range pending {
		dst.FieldByIndex(a.f.index).Set(a.v)
	}
	return nil
}

// decodeField converts raw into a value of type t, replacing rather than merging nested values.
func decodeField(t reflect.Type, raw any) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out.Interface(),
		TagName:     tagName,
		ErrorUnused: true,
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

// Flatten returns the top-level fields of v keyed by field name.
func (s *Shape) Flatten(v reflect.Value) domain.Fields {
	out := make(domain.Fields, len(s.fields))
	for _, f := range s.fields {
		out[f.name] = v.FieldByIndex(f.index).Interface()
	}
	return out
}

// Decode builds a full value of the shape from a raw map (e.g. parsed YAML) into out,
// a pointer to the shape's type. Required fields missing from raw and keys the shape
// does not declare are reported as configuration errors.
func (s *Shape) Decode(raw map[string]any, out any) error {
	present := make(map[string]bool, len(raw))
	for k := range raw {
		present[strings.ToLower(k)] = true
	}
	for _, f := range s.fields {
		if !f.optional && !present[strings.ToLower(f.name)] {
			return &domain.ConfigurationError{Field: f.name, Reason: "required field missing"}
		}
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   out,
		TagName:  tagName,
		Metadata: &md,
	})
	if err != nil {
		return &domain.ConfigurationError{Reason: err.Error()}
	}
	if err := dec.Decode(raw); err != nil {
		return &domain.ConfigurationError{Reason: err.Error()}
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return &domain.ConfigurationError{Field: md.Unused[0], Reason: "not declared by the state shape"}
	}
	return nil
}
