package sasl

// Factory builds a fresh Mechanism instance for one authentication attempt.
type Factory func(creds Credentials) Mechanism

// entry pairs a mechanism name with its factory, kept in priority order.
type entry struct {
	name    string
	factory Factory
}

// Registry holds the mechanisms this module is willing to use, in
// preference order (strongest first).
type Registry struct {
	entries []entry
}

// NewRegistry returns a Registry preloaded with SCRAM-SHA-512,
// SCRAM-SHA-256, SCRAM-SHA-1, and PLAIN, in that preference order. Whether
// PLAIN may be selected is decided by the caller, which filters the offered
// list before calling Select, not by the registry itself.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("SCRAM-SHA-512", func(c Credentials) Mechanism { return NewScramSHA512(c) })
	r.Register("SCRAM-SHA-256", func(c Credentials) Mechanism { return NewScramSHA256(c) })
	r.Register("SCRAM-SHA-1", func(c Credentials) Mechanism { return NewScramSHA1(c) })
	r.Register("PLAIN", func(c Credentials) Mechanism { return NewPlain(c) })
	return r
}

// Register adds or replaces the factory for name, appending it to the
// preference order if new.
func (r *Registry) Register(name string, f Factory) {
	for i, e := range r.entries {
		if e.name == name {
			r.entries[i].factory = f
			return
		}
	}
	r.entries = append(r.entries, entry{name: name, factory: f})
}

// Select picks the highest-preference mechanism advertised by the server in
// offered, and returns a fresh Mechanism instance for it. ok is false if
// none of the offered names are registered.
func (r *Registry) Select(offered []string, creds Credentials) (Mechanism, bool) {
	offeredSet := make(map[string]bool, len(offered))
	for _, name := range offered {
		offeredSet[name] = true
	}
	for _, e := range r.entries {
		if offeredSet[e.name] {
			return e.factory(creds), true
		}
	}
	return nil, false
}

// Names returns the registered mechanism names in preference order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}
