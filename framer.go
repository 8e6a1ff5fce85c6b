package xmpp

import (
	"encoding/xml"
	"io"
	"sync"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
	"github.com/lesswhite810/xmpp-client-sub000/stream"
)

// tlsProceed marks a <proceed/> response to our own <starttls/>; it carries
// no data of its own.
type tlsProceed struct{}

// Framer is the incremental pull-parser over the server→client half of one
// XML stream (spec §4.1). After a TLS upgrade the same Framer is reused:
// call Reset with the new transport rather than constructing a new Framer,
// so the Provider Registry lookup stays attached.
type Framer struct {
	writeMu sync.Mutex
	rw      io.ReadWriter
	dec     *xml.Decoder
	enc     *xml.Encoder
	lookup  stanza.Lookup
}

// NewFramer wraps rw, dispatching unrecognized extension elements through
// lookup (ordinarily a *mux.ProviderRegistry).
func NewFramer(rw io.ReadWriter, lookup stanza.Lookup) *Framer {
	f := &Framer{lookup: lookup}
	f.Reset(rw)
	return f
}

// Reset rebinds the framer to a new transport, discarding any partially
// parsed state. This is the framer restart required after a successful TLS
// upgrade (spec §4.1 invariant (i)).
func (f *Framer) Reset(rw io.ReadWriter) {
	f.rw = rw
	dec := xml.NewDecoder(rw)
	// encoding/xml never fetches external entities or expands a DOCTYPE's
	// internal subset, so the classic XXE vectors are closed by construction;
	// ReadHeader and Next still reject any xml.Directive outright as defense
	// in depth (spec §4.1 invariant (iii)).
	dec.Strict = true
	f.dec = dec
	f.enc = xml.NewEncoder(rw)
}

// ReadHeader blocks until the opening <stream:stream> tag arrives and
// returns its parsed attributes. The root element is consumed but never
// returned as a Next frame (spec §4.1 "never itself emitted as data").
func (f *Framer) ReadHeader() (stream.Header, error) {
	for {
		tok, err := f.dec.Token()
		if err != nil {
			return stream.Header{}, newError(ParseError, err)
		}
		switch t := tok.(type) {
		case xml.Directive:
			return stream.Header{}, newErrorf(ParseError, "DOCTYPE not permitted on an XMPP stream")
		case xml.StartElement:
			if t.Name.Local != "stream" || t.Name.Space != ns.Stream {
				return stream.Header{}, newErrorf(ParseError, "unexpected root element {%s}%s", t.Name.Space, t.Name.Local)
			}
			return stream.ParseHeader(t), nil
		}
	}
}

// Next blocks until the next complete top-level child of the stream is
// parsed, dispatching it per spec §4.1 Table A, then returns it as one of:
// stream.Features, tlsProceed, stream.SASLChallenge, stream.SASLSuccess,
// stream.SASLFailure, stream.Error, stanza.IQ, stanza.Message,
// stanza.Presence, or stanza.Element (generic extension fallback). It
// returns io.EOF when the peer closes the stream with </stream:stream>.
func (f *Framer) Next() (interface{}, error) {
	for {
		tok, err := f.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, newError(ParseError, err)
		}
		switch t := tok.(type) {
		case xml.Directive:
			return nil, newErrorf(ParseError, "DOCTYPE not permitted mid-stream")
		case xml.StartElement:
			return f.decodeElement(t)
		case xml.EndElement:
			if t.Name.Local == "stream" && t.Name.Space == ns.Stream {
				return nil, io.EOF
			}
			// An end tag with no matching start we emitted is a framing bug in
			// the peer; treat it the same as a parse failure.
			return nil, newErrorf(ParseError, "unexpected end element {%s}%s", t.Name.Space, t.Name.Local)
		}
	}
}

func (f *Framer) decodeElement(start xml.StartElement) (interface{}, error) {
	switch {
	case start.Name.Local == "iq":
		v, err := stanza.DecodeIQ(f.dec, start, f.lookup)
		return v, wrapDecodeErr(err)
	case start.Name.Local == "message":
		v, err := stanza.DecodeMessage(f.dec, start, f.lookup)
		return v, wrapDecodeErr(err)
	case start.Name.Local == "presence":
		v, err := stanza.DecodePresence(f.dec, start)
		return v, wrapDecodeErr(err)
	case start.Name.Local == "features" && start.Name.Space == ns.Stream:
		v, err := stream.DecodeFeatures(f.dec, start)
		return v, wrapDecodeErr(err)
	case start.Name.Local == "proceed" && start.Name.Space == ns.StartTLS:
		if err := f.dec.Skip(); err != nil {
			return nil, wrapDecodeErr(err)
		}
		return tlsProceed{}, nil
	case start.Name.Local == "challenge" && start.Name.Space == ns.SASL:
		b64, err := stream.DecodeBase64Body(f.dec, start)
		return stream.SASLChallenge{Base64: b64}, wrapDecodeErr(err)
	case start.Name.Local == "success" && start.Name.Space == ns.SASL:
		b64, err := stream.DecodeBase64Body(f.dec, start)
		return stream.SASLSuccess{Base64: b64}, wrapDecodeErr(err)
	case start.Name.Local == "failure" && start.Name.Space == ns.SASL:
		v, err := stream.DecodeSASLFailure(f.dec, start)
		return v, wrapDecodeErr(err)
	case start.Name.Local == "error" && start.Name.Space == ns.Stream:
		var se stream.Error
		err := se.UnmarshalXML(f.dec, start)
		return se, wrapDecodeErr(err)
	}

	if f.lookup != nil {
		if pf, ok := f.lookup(start.Name); ok {
			v, err := pf(f.dec, start)
			return v, wrapDecodeErr(err)
		}
	}

	var el stanza.Element
	err := el.UnmarshalXML(f.dec, start)
	return el, wrapDecodeErr(err)
}

func wrapDecodeErr(err error) error {
	if err == nil {
		return nil
	}
	return newError(ParseError, err)
}

// WriteRaw writes s verbatim, for the hand-built stream open/close tags
// that fall outside the encoder's element-at-a-time model (spec §6.2).
func (f *Framer) WriteRaw(s string) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_, err := io.WriteString(f.rw, s)
	if err != nil {
		return newError(NetworkError, err)
	}
	return nil
}

// Encode marshals v and flushes it to the transport. Concurrent callers are
// serialized, satisfying the "outbound writes are delivered in program
// order" guarantee (spec §5).
func (f *Framer) Encode(v interface{}) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := f.enc.Encode(v); err != nil {
		return newError(NetworkError, err)
	}
	if err := f.enc.Flush(); err != nil {
		return newError(NetworkError, err)
	}
	return nil
}
