package domain

import (
	"reflect"
)

// Diff calculates the top-level fields that differ between two flattened snapshots.
// If old is nil, every field of next is reported (initial load).
// Fields present in old but absent from next are reported with a nil value.
// Returns nil when nothing changed, so omitempty can drop it.
func Diff(old, next Fields) Fields {
	delta := make(Fields)

	if old == nil {
		for k, v := range next {
			delta[k] = v
		}
		return nilIfEmpty(delta)
	}

	// Added or modified
	for k, newVal := range next {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	// Deleted
	for k := range old {
		if _, exists := next[k]; !exists {
			delta[k] = nil
		}
	}

	return nilIfEmpty(delta)
}

func nilIfEmpty(f Fields) Fields {
	if len(f) == 0 {
		return nil
	}
	return f
}
