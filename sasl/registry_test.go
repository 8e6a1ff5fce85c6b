package sasl

import "testing"

func TestRegistrySelectPrefersStrongest(t *testing.T) {
	r := NewRegistry()
	m, ok := r.Select([]string{"PLAIN", "SCRAM-SHA-1", "SCRAM-SHA-256"}, Credentials{Authn: "a", Password: "b"})
	if !ok {
		t.Fatal("expected a mechanism to be selected")
	}
	if m.Name() != "SCRAM-SHA-256" {
		t.Errorf("got %q, want SCRAM-SHA-256", m.Name())
	}
}

func TestRegistrySelectNoMatch(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Select([]string{"DIGEST-MD5", "CRAM-MD5"}, Credentials{}); ok {
		t.Error("expected no mechanism to match")
	}
}

func TestRegistryNamesOrder(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	want := []string{"SCRAM-SHA-512", "SCRAM-SHA-256", "SCRAM-SHA-1", "PLAIN"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("PLAIN", func(c Credentials) Mechanism {
		called = true
		return NewPlain(c)
	})
	if len(r.Names()) != 4 {
		t.Fatalf("expected replacing an existing mechanism not to grow the registry, got %d entries", len(r.Names()))
	}
	if _, ok := r.Select([]string{"PLAIN"}, Credentials{}); !ok || !called {
		t.Error("expected the replaced factory to be used")
	}
}
