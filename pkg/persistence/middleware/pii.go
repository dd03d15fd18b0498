package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

type piiMiddleware struct {
	next     ports.Journal
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks action arguments whose keys match the patterns.
// Struct arguments are flattened into maps (following mapstructure tags) before masking.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Journal) ports.Journal {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, rec domain.ActionRecord) error {
	// The record is a copy; only Args may share memory with the dispatched action.
	if args, ok := toMap(rec.Args); ok {
		masked := deepCopyMap(args)
		maskMap(masked, m.patterns)
		rec.Args = masked
	}
	return m.next.Append(ctx, rec)
}

func (m *piiMiddleware) List(ctx context.Context, storeID string) ([]domain.ActionRecord, error) {
	return m.next.List(ctx, storeID)
}

// Helpers

func toMap(v any) (map[string]any, bool) {
	switch args := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return args, true
	}

	var out map[string]any
	if err := mapstructure.Decode(v, &out); err != nil {
		// Scalars and slices have no keys to mask.
		return nil, false
	}
	return out, true
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		// Handle nested maps
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v // shallow copy of value
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		// Check key against patterns
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		// Recurse if map
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
