package xmpp

import (
	"bytes"
	"io"
	"testing"

	"github.com/lesswhite810/xmpp-client-sub000/stanza"
	"github.com/lesswhite810/xmpp-client-sub000/stream"
)

// fakeRW separates the read and write halves of a transport so a test can
// feed server bytes independently of whatever the framer writes out.
type fakeRW struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func newFakeRW(serverBytes string) *fakeRW {
	return &fakeRW{in: bytes.NewBufferString(serverBytes), out: &bytes.Buffer{}}
}

func (f *fakeRW) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeRW) Write(p []byte) (int, error) { return f.out.Write(p) }

func TestFramerReadHeaderThenFeatures(t *testing.T) {
	rw := newFakeRW(`<stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' id='abc' from='example.com' version='1.0'>` +
		`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>`)
	f := NewFramer(rw, nil)

	hdr, err := f.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.ID != "abc" || hdr.From != "example.com" {
		t.Errorf("got header %+v", hdr)
	}

	v, err := f.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	feats, ok := v.(stream.Features)
	if !ok {
		t.Fatalf("got %#v, want stream.Features", v)
	}
	if !feats.StartTLS || len(feats.Mechanisms) != 1 || feats.Mechanisms[0] != "PLAIN" {
		t.Errorf("got %+v", feats)
	}
}

func TestFramerDecodesStanzaAndExtension(t *testing.T) {
	rw := newFakeRW(`<iq id='1' type='result'/><message type='chat'><body>hi</body></message>` +
		`<presence/><unknown-thing xmlns='urn:example:x'/>`)
	f := NewFramer(rw, nil)

	v1, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	iq, ok := v1.(stanza.IQ)
	if !ok || iq.ID != "1" || iq.Type != stanza.ResultIQ {
		t.Errorf("got %#v, want a result IQ with id 1", v1)
	}

	v2, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	msg, ok := v2.(stanza.Message)
	if !ok || msg.Body != "hi" {
		t.Errorf("got %#v, want a chat message with body %q", v2, "hi")
	}

	v3, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v3.(stanza.Presence); !ok {
		t.Errorf("got %#v, want a Presence", v3)
	}

	v4, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	el, ok := v4.(stanza.Element)
	if !ok || el.Name() != "unknown-thing" {
		t.Errorf("got %#v, want the generic extension fallback", v4)
	}
}

func TestFramerEOFOnStreamClose(t *testing.T) {
	rw := newFakeRW(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams'></stream:stream>`)
	f := NewFramer(rw, nil)
	if _, err := f.ReadHeader(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Next(); err != io.EOF {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestFramerRejectsDoctype(t *testing.T) {
	rw := newFakeRW(`<!DOCTYPE foo><stream:stream xmlns:stream='http://etherx.jabber.org/streams'>`)
	f := NewFramer(rw, nil)
	if _, err := f.ReadHeader(); err == nil {
		t.Error("expected a DOCTYPE on the stream to be rejected")
	}
}

func TestFramerResetRestartsParsing(t *testing.T) {
	f := NewFramer(newFakeRW(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams' id='old'>`), nil)
	if _, err := f.ReadHeader(); err != nil {
		t.Fatal(err)
	}

	f.Reset(newFakeRW(`<stream:stream xmlns:stream='http://etherx.jabber.org/streams' id='new'><iq id='2' type='get'/>`))
	hdr, err := f.ReadHeader()
	if err != nil {
		t.Fatal(err)
	}
	if hdr.ID != "new" {
		t.Errorf("got header id %q after Reset, want %q", hdr.ID, "new")
	}
	v, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	if iq, ok := v.(stanza.IQ); !ok || iq.ID != "2" {
		t.Errorf("got %#v after Reset", v)
	}
}

func TestFramerWriteRawAndEncode(t *testing.T) {
	rw := newFakeRW(``)
	f := NewFramer(rw, nil)
	if err := f.WriteRaw(`<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`); err != nil {
		t.Fatal(err)
	}
	if err := f.Encode(stanza.IQ{ID: "x", Type: stanza.GetIQ}); err != nil {
		t.Fatal(err)
	}
	out := rw.out.String()
	if !bytes.Contains([]byte(out), []byte(`<starttls`)) || !bytes.Contains([]byte(out), []byte(`id="x"`)) {
		t.Errorf("unexpected output: %q", out)
	}
}
