package xmpp

import (
	"encoding/xml"
	"testing"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
	"github.com/lesswhite810/xmpp-client-sub000/jid"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

func TestBindRequestOmitsResourceWhenEmpty(t *testing.T) {
	iq := bindRequest("r1", "")
	if iq.Type != stanza.SetIQ {
		t.Errorf("Type = %v, want SetIQ", iq.Type)
	}
	if len(iq.Payload.Children) != 0 {
		t.Errorf("expected no <resource/> child, got %+v", iq.Payload.Children)
	}
}

func TestBindRequestIncludesResource(t *testing.T) {
	iq := bindRequest("r1", "mobile")
	child, ok := iq.Payload.Child("resource", "")
	if !ok {
		t.Fatal("expected a <resource/> child")
	}
	if child.Text != "mobile" {
		t.Errorf("resource text = %q, want %q", child.Text, "mobile")
	}
}

func TestBindResultExtractsJID(t *testing.T) {
	bind := stanza.Element{
		XMLName: bindName,
		Children: []stanza.Element{{
			XMLName: xml.Name{Space: ns.Bind, Local: "jid"},
			Text:    "user@example.net/resource",
		}},
	}
	result := stanza.IQ{ID: "r1", Type: stanza.ResultIQ, Payload: &bind}
	j, err := bindResult(result)
	if err != nil {
		t.Fatalf("bindResult: %v", err)
	}
	want := jid.MustParse("user@example.net/resource")
	if !j.Equal(want) {
		t.Errorf("bindResult = %v, want %v", j, want)
	}
}

func TestBindResultPropagatesError(t *testing.T) {
	se := stanza.Error{Type: stanza.Cancel, Condition: stanza.NotAllowed}
	result := stanza.IQ{ID: "r1", Type: stanza.ErrorIQ, Err: &se}
	_, err := bindResult(result)
	if err == nil {
		t.Fatal("expected an error")
	}
	xerr, ok := err.(*Error)
	if !ok || xerr.Kind != AuthError {
		t.Errorf("expected an AuthError, got %#v", err)
	}
}
