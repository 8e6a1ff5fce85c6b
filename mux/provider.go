package mux

import (
	"encoding/xml"
	"sync"

	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

// ProviderRegistry maps (local name, namespace) pairs to decoder functions
// for extension payloads, so that IQ children recognized on the wire are
// decoded into a typed value instead of the generic Element tree (spec
// §4.2). Registration is append/replace-only and safe to call concurrently
// with Lookup, but registration is expected to happen once at startup
// before any stanza decoding begins.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[xml.Name]stanza.ProviderFunc
}

// NewProviderRegistry returns an empty ProviderRegistry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[xml.Name]stanza.ProviderFunc)}
}

// Register binds fn to decode elements named name. A later call for the
// same name replaces the previous binding.
func (r *ProviderRegistry) Register(name xml.Name, fn stanza.ProviderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = fn
}

// Lookup implements stanza.Lookup.
func (r *ProviderRegistry) Lookup(name xml.Name) (stanza.ProviderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.providers[name]
	return fn, ok
}
