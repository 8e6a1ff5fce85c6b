package xmpp

import (
	"testing"

	"github.com/lesswhite810/xmpp-client-sub000/stream"
)

func TestOfferedMechanismsExcludesPlainWithoutTLS(t *testing.T) {
	c := &Conn{cfg: &Config{}}
	got := c.offeredMechanisms([]string{"PLAIN", "SCRAM-SHA-256"})
	for _, m := range got {
		if m == "PLAIN" {
			t.Errorf("expected PLAIN to be excluded on an unencrypted channel, got %v", got)
		}
	}
}

func TestOfferedMechanismsIncludesPlainOverTLS(t *testing.T) {
	c := &Conn{cfg: &Config{}, secured: true}
	got := c.offeredMechanisms([]string{"PLAIN", "SCRAM-SHA-256"})
	found := false
	for _, m := range got {
		if m == "PLAIN" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected PLAIN to be offered once the channel is encrypted, got %v", got)
	}
}

func TestOfferedMechanismsHonorsEnabledAllowlist(t *testing.T) {
	c := &Conn{cfg: &Config{EnabledMechanisms: []string{"PLAIN"}}, secured: true}
	got := c.offeredMechanisms([]string{"PLAIN", "SCRAM-SHA-256"})
	if len(got) != 1 || got[0] != "PLAIN" {
		t.Errorf("expected only PLAIN to survive the allowlist, got %v", got)
	}
}

func TestAdvancePrefersTLSOverSASL(t *testing.T) {
	c := &Conn{cfg: &Config{Mode: Required}, state: AwaitingFeatures}
	feats := stream.Features{StartTLS: true, Mechanisms: []string{"PLAIN"}}
	if err := c.advance(feats); err != nil {
		t.Fatal(err)
	}
	if c.state != TLSNegotiating {
		t.Errorf("expected TLSNegotiating, got %s", c.state)
	}
}

func TestAdvanceRequiredModeFailsWithoutStartTLS(t *testing.T) {
	c := &Conn{cfg: &Config{Mode: Required}, state: AwaitingFeatures}
	feats := stream.Features{Mechanisms: []string{"PLAIN"}}
	err := c.advance(feats)
	if err == nil {
		t.Fatal("expected an error when security is Required but starttls is not advertised")
	}
	xerr, ok := err.(*Error)
	if !ok || xerr.Kind != TlsError {
		t.Errorf("expected a TlsError, got %#v", err)
	}
}

func TestAdvanceGoesToSASLWhenSecured(t *testing.T) {
	c := &Conn{cfg: &Config{Mode: Required}, state: AwaitingFeatures, secured: true}
	feats := stream.Features{Mechanisms: []string{"PLAIN"}}
	if err := c.advance(feats); err != nil {
		t.Fatal(err)
	}
	if c.state != SASLAuth {
		t.Errorf("expected SASLAuth, got %s", c.state)
	}
}

func TestAdvanceGoesToBindingOnceAuthenticated(t *testing.T) {
	c := &Conn{cfg: &Config{Mode: Disabled}, state: AwaitingFeatures, authenticated: true}
	feats := stream.Features{BindAvailable: true}
	if err := c.advance(feats); err != nil {
		t.Fatal(err)
	}
	if c.state != Binding {
		t.Errorf("expected Binding, got %s", c.state)
	}
}
