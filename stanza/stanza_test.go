package stanza

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/lesswhite810/xmpp-client-sub000/jid"
)

// decodeFirst runs d far enough to find the first start element and decode
// it with decode, the shape every DecodeXxx function in this package shares.
func decodeFirst(t *testing.T, raw string, decode func(d *xml.Decoder, start xml.StartElement) error) {
	t.Helper()
	d := xml.NewDecoder(strings.NewReader(raw))
	for {
		tok, err := d.Token()
		if err != nil {
			t.Fatalf("no start element found in %q: %v", raw, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			if err := decode(d, start); err != nil {
				t.Fatalf("decoding %q: %v", raw, err)
			}
			return
		}
	}
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		t.Fatalf("marshaling %#v: %v", v, err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

// TestIQRoundTrip pins spec §8's "parse(serialize(s)) ≡ s" property for an
// IQ carrying an extension payload.
func TestIQRoundTrip(t *testing.T) {
	orig := IQ{
		ID:      "ping_1",
		To:      jid.MustParse("example.com"),
		Type:    GetIQ,
		Payload: &Element{XMLName: xml.Name{Space: "urn:xmpp:ping", Local: "ping"}},
	}
	wire := marshal(t, orig)

	var got IQ
	decodeFirst(t, wire, func(d *xml.Decoder, start xml.StartElement) error {
		v, err := DecodeIQ(d, start, nil)
		got = v
		return err
	})

	if got.ID != orig.ID || got.Type != orig.Type || !got.To.Equal(orig.To) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, orig)
	}
	if got.Payload == nil || got.Payload.XMLName != orig.Payload.XMLName {
		t.Errorf("payload mismatch: got %+v, want %+v", got.Payload, orig.Payload)
	}
}

func TestIQErrorResponseRoundTrip(t *testing.T) {
	req := IQ{ID: "abc", Type: GetIQ}
	resp := req.ErrorResponse(Error{Type: Cancel, Condition: FeatureNotImplemented})
	wire := marshal(t, resp)

	var got IQ
	decodeFirst(t, wire, func(d *xml.Decoder, start xml.StartElement) error {
		v, err := DecodeIQ(d, start, nil)
		got = v
		return err
	})

	if got.ID != "abc" || got.Type != ErrorIQ {
		t.Errorf("got %+v", got)
	}
	if got.Err == nil || got.Err.Condition != FeatureNotImplemented {
		t.Errorf("expected condition %q, got %+v", FeatureNotImplemented, got.Err)
	}
}

// TestMessageRoundTrip covers the body/subject/thread children spec §3
// names explicitly.
func TestMessageRoundTrip(t *testing.T) {
	orig := Message{
		ID:      "m1",
		To:      jid.MustParse("juliet@example.com"),
		Type:    ChatMessage,
		Body:    "wherefore art thou",
		Subject: "balcony",
		Thread:  "t1",
	}
	wire := marshal(t, orig)

	var got Message
	decodeFirst(t, wire, func(d *xml.Decoder, start xml.StartElement) error {
		v, err := DecodeMessage(d, start, nil)
		got = v
		return err
	})

	if got.ID != orig.ID || !got.To.Equal(orig.To) || got.Type != orig.Type {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, orig)
	}
	if got.Body != orig.Body || got.Subject != orig.Subject || got.Thread != orig.Thread {
		t.Errorf("text children mismatch: got %+v, want %+v", got, orig)
	}
}

func TestMessageDefaultTypeIsNormal(t *testing.T) {
	var m Message
	if m.EffectiveType() != NormalMessage {
		t.Errorf("expected default message type normal, got %q", m.EffectiveType())
	}
}

// TestPresenceRoundTrip covers show/status/priority and the "available is
// omitted on the wire" rule (spec §3).
func TestPresenceRoundTrip(t *testing.T) {
	prio := int8(5)
	orig := Presence{
		ID:       "p1",
		Show:     "away",
		Status:   "be right back",
		Priority: &prio,
	}
	wire := marshal(t, orig)
	if strings.Contains(wire, `type=`) {
		t.Errorf("expected available presence to omit type attribute, got %q", wire)
	}

	var got Presence
	decodeFirst(t, wire, func(d *xml.Decoder, start xml.StartElement) error {
		v, err := DecodePresence(d, start)
		got = v
		return err
	})

	if got.Show != orig.Show || got.Status != orig.Status {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, orig)
	}
	if got.Priority == nil || *got.Priority != *orig.Priority {
		t.Errorf("priority mismatch: got %v, want %v", got.Priority, orig.Priority)
	}
}

func TestPresenceUnavailableRoundTrip(t *testing.T) {
	orig := Presence{Type: UnavailablePresence}
	wire := marshal(t, orig)

	var got Presence
	decodeFirst(t, wire, func(d *xml.Decoder, start xml.StartElement) error {
		v, err := DecodePresence(d, start)
		got = v
		return err
	})
	if got.Type != UnavailablePresence {
		t.Errorf("got type %q, want %q", got.Type, UnavailablePresence)
	}
}

// TestElementRoundTripPreservesUnknownExtension exercises the generic
// Element fallback used for extensions with no registered provider (spec §3
// "Extension element").
func TestElementRoundTripPreservesUnknownExtension(t *testing.T) {
	orig := Element{
		XMLName: xml.Name{Space: "urn:example:ext", Local: "thing"},
		Attr:    []xml.Attr{{Name: xml.Name{Local: "a"}, Value: "1"}},
		Children: []Element{
			{XMLName: xml.Name{Local: "child"}, Text: "hello <world> & \"friends\""},
		},
	}
	wire := marshal(t, orig)

	var got Element
	decodeFirst(t, wire, func(d *xml.Decoder, start xml.StartElement) error {
		return got.UnmarshalXML(d, start)
	})

	if got.Name() != orig.Name() || got.Namespace() != orig.Namespace() {
		t.Errorf("got %+v, want %+v", got, orig)
	}
	if v, ok := got.Attribute("a"); !ok || v != "1" {
		t.Errorf("attribute a: got %q, ok=%v", v, ok)
	}
	child, ok := got.Child("child", "")
	if !ok || child.Text != "hello <world> & \"friends\"" {
		t.Errorf("child text round trip failed: got %+v", child)
	}
}
