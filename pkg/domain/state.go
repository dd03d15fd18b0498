package domain

// Fields is a partial state patch keyed by field name.
// Only the named top-level fields are replaced when it is merged onto a snapshot.
type Fields map[string]any

// Keys returns the field names of the patch in no particular order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	return keys
}

// Clone returns a shallow copy of the patch.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
