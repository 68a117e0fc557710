package transcription

import "strings"

// Registry is the dispatch table of providers, built once at startup.
type Registry struct {
	primary   Provider
	providers map[string]Provider
}

// NewRegistry registers primary under its own name and makes it the fallback
// for unknown keys.
func NewRegistry(primary Provider, others ...Provider) *Registry {
	r := &Registry{
		primary:   primary,
		providers: map[string]Provider{strings.ToLower(primary.Name()): primary},
	}
	for _, p := range others {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// Resolve returns the provider registered under key. The bool is false when
// the key was unknown and the primary provider was returned instead.
func (r *Registry) Resolve(key string) (Provider, bool) {
	if p, ok := r.providers[strings.ToLower(strings.TrimSpace(key))]; ok {
		return p, true
	}
	return r.primary, false
}
