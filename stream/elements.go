package stream

import (
	"encoding/xml"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
)

// DefaultVersion is the only stream version this module negotiates.
const DefaultVersion = "1.0"

// Header represents the opening <stream:stream> tag, parsed from the
// server's response (spec §3 "Stream element").
type Header struct {
	ID      string
	From    string
	To      string
	Version string
	Lang    string
}

// ParseHeader extracts stream header fields from the start element recognized
// by the framer as the stream root (spec §4.1: "never itself emitted as
// data").
func ParseHeader(start xml.StartElement) Header {
	var h Header
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			h.ID = a.Value
		case "from":
			h.From = a.Value
		case "to":
			h.To = a.Value
		case "version":
			h.Version = a.Value
		case "lang":
			h.Lang = a.Value
		}
	}
	return h
}

// OpenTag renders the opening tag this module sends to start a client-to-
// server stream (spec §6.2, bit-exact wire protocol).
func OpenTag(to, lang string) string {
	s := `<?xml version='1.0'?><stream:stream xmlns='` + ns.Client +
		`' xmlns:stream='` + ns.Stream + `' to='` + to + `' version='1.0'`
	if lang != "" {
		s += ` xml:lang='` + lang + `'`
	}
	s += `>`
	return s
}

// CloseTag is the closing tag of the client-to-server stream.
const CloseTag = `</stream:stream>`

// StartTLSTag is the <starttls/> request this module sends to begin the TLS
// handshake in-band (spec §4.3 TLS_NEGOTIATING).
const StartTLSTag = `<starttls xmlns='` + ns.StartTLS + `'/>`

// AuthTag renders the initial <auth/> element that begins a SASL exchange,
// carrying mechanism and base64 fields (spec §4.4). An empty base64Body
// renders the RFC 6120 §6.3.1 "=" sentinel for an empty initial response,
// never a bodiless element.
func AuthTag(mechanism, base64Body string) string {
	if base64Body == "" {
		base64Body = "="
	}
	return `<auth xmlns='` + ns.SASL + `' mechanism='` + mechanism + `'>` + base64Body + `</auth>`
}

// ResponseTag renders a <response/> element carrying the client's reply to a
// server challenge.
func ResponseTag(base64Body string) string {
	if base64Body == "" {
		base64Body = "="
	}
	return `<response xmlns='` + ns.SASL + `'>` + base64Body + `</response>`
}

// Features is the <stream:features/> element advertised by the server after
// each stream header, decoded into the subset of features this module
// understands (spec §3).
type Features struct {
	Mechanisms       []string
	StartTLS         bool
	StartTLSRequired bool
	BindAvailable    bool
}

// DecodeFeatures decodes a <stream:features/> element (whose start tag has
// already been consumed) into a Features value. Unrecognized children are
// skipped.
func DecodeFeatures(d *xml.Decoder, start xml.StartElement) (Features, error) {
	var f Features
	for {
		tok, err := d.Token()
		if err != nil {
			return f, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "starttls" && t.Name.Space == ns.StartTLS:
				f.StartTLS = true
				if err := decodeStartTLSChild(d, t, &f); err != nil {
					return f, err
				}
			case t.Name.Local == "mechanisms" && t.Name.Space == ns.SASL:
				mechs, err := decodeMechanisms(d, t)
				if err != nil {
					return f, err
				}
				f.Mechanisms = mechs
			case t.Name.Local == "bind" && t.Name.Space == ns.Bind:
				f.BindAvailable = true
				if err := d.Skip(); err != nil {
					return f, err
				}
			default:
				if err := d.Skip(); err != nil {
					return f, err
				}
			}
		case xml.EndElement:
			return f, nil
		}
	}
}

func decodeStartTLSChild(d *xml.Decoder, start xml.StartElement, f *Features) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "required" {
				f.StartTLSRequired = true
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func decodeMechanisms(d *xml.Decoder, start xml.StartElement) ([]string, error) {
	var mechs []string
	for {
		tok, err := d.Token()
		if err != nil {
			return mechs, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "mechanism" {
				name, err := decodeElementText(d, t)
				if err != nil {
					return mechs, err
				}
				mechs = append(mechs, name)
				continue
			}
			if err := d.Skip(); err != nil {
				return mechs, err
			}
		case xml.EndElement:
			return mechs, nil
		}
	}
}

// SASLChallenge carries the base64-encoded body of a <challenge/> or
// <response/> element (spec §3).
type SASLChallenge struct {
	Base64 string
}

// SASLSuccess carries the optional base64-encoded verification data in a
// <success/> element.
type SASLSuccess struct {
	Base64 string
}

// SASLFailure is sent by the server to abort SASL negotiation.
type SASLFailure struct {
	Condition string
	Text      string
}

func (f SASLFailure) Error() string {
	if f.Text != "" {
		return f.Condition + ": " + f.Text
	}
	return f.Condition
}

// DecodeSASLFailure decodes a <failure/> element's condition/text children.
func DecodeSASLFailure(d *xml.Decoder, start xml.StartElement) (SASLFailure, error) {
	var f SASLFailure
	for {
		tok, err := d.Token()
		if err != nil {
			return f, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" {
				text, err := decodeElementText(d, t)
				if err != nil {
					return f, err
				}
				f.Text = text
				continue
			}
			if f.Condition == "" {
				f.Condition = t.Name.Local
			}
			if err := d.Skip(); err != nil {
				return f, err
			}
		case xml.EndElement:
			return f, nil
		}
	}
}

func decodeElementText(d *xml.Decoder, start xml.StartElement) (string, error) {
	var s string
	for {
		tok, err := d.Token()
		if err != nil {
			return s, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			s += string(t)
		case xml.EndElement:
			return s, nil
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return s, err
			}
		}
	}
}

// DecodeBase64Body decodes the character data of a <challenge/> or
// <success/> element into its raw base64 text (decoding to bytes is the
// caller's job, per spec §4.4: "Base64 encoding ... sits at the stanza
// boundary").
func DecodeBase64Body(d *xml.Decoder, start xml.StartElement) (string, error) {
	return decodeElementText(d, start)
}
