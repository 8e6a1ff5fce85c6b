// Package stream implements the non-stanza XMPP protocol elements exchanged
// while a stream is being negotiated: the stream header, feature
// advertisement, STARTTLS, SASL, and stream-level errors (RFC 6120 §4.8–4.9).
package stream

import (
	"encoding/xml"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
)

// Error is an unrecoverable stream-level error (RFC 6120 §4.9). Receiving or
// sending one always terminates the stream (spec §4.3 Failure).
type Error struct {
	Condition string
	Text      string
}

// Error satisfies the error interface, returning the defined condition name.
func (e Error) Error() string {
	if e.Text != "" {
		return e.Condition + ": " + e.Text
	}
	return e.Condition
}

// The stream error conditions defined by RFC 6120 §4.9.3.
var (
	BadFormat              = Error{Condition: "bad-format"}
	BadNamespacePrefix     = Error{Condition: "bad-namespace-prefix"}
	Conflict               = Error{Condition: "conflict"}
	ConnectionTimeout      = Error{Condition: "connection-timeout"}
	HostGone               = Error{Condition: "host-gone"}
	HostUnknown            = Error{Condition: "host-unknown"}
	ImproperAddressing     = Error{Condition: "improper-addressing"}
	InternalServerError    = Error{Condition: "internal-server-error"}
	InvalidFrom            = Error{Condition: "invalid-from"}
	InvalidNamespace       = Error{Condition: "invalid-namespace"}
	InvalidXML             = Error{Condition: "invalid-xml"}
	NotAuthorized          = Error{Condition: "not-authorized"}
	NotWellFormed          = Error{Condition: "not-well-formed"}
	PolicyViolation        = Error{Condition: "policy-violation"}
	RemoteConnectionFailed = Error{Condition: "remote-connection-failed"}
	Reset                  = Error{Condition: "reset"}
	ResourceConstraint     = Error{Condition: "resource-constraint"}
	RestrictedXML          = Error{Condition: "restricted-xml"}
	SeeOtherHost           = Error{Condition: "see-other-host"}
	SystemShutdown         = Error{Condition: "system-shutdown"}
	UndefinedCondition     = Error{Condition: "undefined-condition"}
	UnsupportedEncoding    = Error{Condition: "unsupported-encoding"}
	UnsupportedFeature     = Error{Condition: "unsupported-feature"}
	UnsupportedStanzaType  = Error{Condition: "unsupported-stanza-type"}
	UnsupportedVersion     = Error{Condition: "unsupported-version"}
)

// UnmarshalXML implements xml.Unmarshaler for a <stream:error/> element.
func (e *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" {
				text := struct {
					Data string `xml:",chardata"`
				}{}
				if err := d.DecodeElement(&text, &t); err != nil {
					return err
				}
				e.Text = text.Data
				continue
			}
			if e.Condition == "" {
				e.Condition = t.Name.Local
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML implements xml.Marshaler, writing the <stream:error/> element.
func (e Error) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Space: ns.Stream, Local: "error"}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	cond := xml.StartElement{Name: xml.Name{Space: "urn:ietf:params:xml:ns:xmpp-streams", Local: e.Condition}}
	if err := enc.EncodeToken(cond); err != nil {
		return err
	}
	if err := enc.EncodeToken(cond.End()); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}
