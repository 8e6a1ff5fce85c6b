package xmpp

import "testing"

// TestInitialOnlyReachesConnecting pins spec §8 "State machine" property
// (i): from Initial the only legal destination is Connecting.
func TestInitialOnlyReachesConnecting(t *testing.T) {
	for _, to := range []State{AwaitingFeatures, TLSNegotiating, SASLAuth, Binding, SessionActive, Initial} {
		if err := checkTransition(Initial, to); err == nil {
			t.Errorf("expected Initial -> %s to be illegal", to)
		}
	}
	if err := checkTransition(Initial, Connecting); err != nil {
		t.Errorf("Initial -> Connecting should be legal, got %v", err)
	}
}

// TestSessionActiveOnlyReconnects pins spec §8 property (ii): a
// SessionActive connection can only transition back to Connecting.
func TestSessionActiveOnlyReconnects(t *testing.T) {
	for _, to := range []State{Initial, AwaitingFeatures, TLSNegotiating, SASLAuth, Binding, SessionActive} {
		if err := checkTransition(SessionActive, to); err == nil {
			t.Errorf("expected SessionActive -> %s to be illegal", to)
		}
	}
	if err := checkTransition(SessionActive, Connecting); err != nil {
		t.Errorf("SessionActive -> Connecting should be legal, got %v", err)
	}
}

func TestIllegalTransitionIsProtocolError(t *testing.T) {
	err := checkTransition(Binding, SASLAuth)
	if err == nil {
		t.Fatal("expected an error")
	}
	xerr, ok := err.(*Error)
	if !ok || xerr.Kind != ProtocolError {
		t.Errorf("expected a ProtocolError, got %#v", err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Initial:          "Initial",
		Connecting:       "Connecting",
		AwaitingFeatures: "AwaitingFeatures",
		TLSNegotiating:   "TLSNegotiating",
		SASLAuth:         "SASLAuth",
		Binding:          "Binding",
		SessionActive:    "SessionActive",
		State(99):        "Unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
