package provider

import "strings"

// Registry resolves the adapter for a callback path. Matching is a
// case-insensitive substring check on the trailing path segment, since
// aggregators register callback URLs like /callbacks/pragmaticplay or
// /callbacks/gsp-seamless.
type Registry struct {
	entries  []registryEntry
	fallback Adapter
}

type registryEntry struct {
	tokens  []string
	adapter Adapter
}

// NewRegistry builds the registry with all supported adapters. The generic
// adapter handles unmatched paths.
func NewRegistry() *Registry {
	return &Registry{
		entries: []registryEntry{
			{tokens: []string{"pragmatic", "pp"}, adapter: NewPragmaticAdapter()},
			{tokens: []string{"gitslot", "gsp"}, adapter: NewGitSlotParkAdapter()},
			{tokens: []string{"infin"}, adapter: NewGenericAdapter()},
		},
		fallback: NewGenericAdapter(),
	}
}

// Resolve returns the adapter for the given request path.
func (r *Registry) Resolve(path string) Adapter {
	segment := trailingSegment(path)
	for _, e := range r.entries {
		for _, token := range e.tokens {
			if strings.Contains(segment, token) {
				return e.adapter
			}
		}
	}
	return r.fallback
}

func trailingSegment(path string) string {
	path = strings.ToLower(strings.TrimRight(path, "/"))
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
