package stanza

import (
	"encoding/xml"
	"strings"

	"golang.org/x/text/language"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
	"github.com/lesswhite810/xmpp-client-sub000/jid"
)

// ErrorType is the type attribute of a stanza-level error.
type ErrorType int

// The five stanza error types defined by RFC 6120 §8.3.2.
const (
	Cancel ErrorType = iota
	Auth
	Continue
	Modify
	Wait
)

// MarshalXMLAttr implements xml.MarshalerAttr.
func (t ErrorType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	var s string
	switch t {
	case Auth:
		s = "auth"
	case Continue:
		s = "continue"
	case Modify:
		s = "modify"
	case Wait:
		s = "wait"
	default:
		s = "cancel"
	}
	return xml.Attr{Name: name, Value: s}, nil
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (t *ErrorType) UnmarshalXMLAttr(attr xml.Attr) error {
	switch strings.ToLower(attr.Value) {
	case "auth":
		*t = Auth
	case "continue":
		*t = Continue
	case "modify":
		*t = Modify
	case "wait":
		*t = Wait
	default:
		*t = Cancel
	}
	return nil
}

// Condition is a defined stanza error condition (RFC 6120 §8.3.3).
type Condition string

// The stanza error conditions defined by RFC 6120 §8.3.3.
const (
	BadRequest            Condition = "bad-request"
	Conflict              Condition = "conflict"
	FeatureNotImplemented Condition = "feature-not-implemented"
	Forbidden             Condition = "forbidden"
	Gone                  Condition = "gone"
	InternalServerError   Condition = "internal-server-error"
	ItemNotFound          Condition = "item-not-found"
	JIDMalformed          Condition = "jid-malformed"
	NotAcceptable         Condition = "not-acceptable"
	NotAllowed            Condition = "not-allowed"
	NotAuthorized         Condition = "not-authorized"
	PolicyViolation       Condition = "policy-violation"
	RecipientUnavailable  Condition = "recipient-unavailable"
	Redirect              Condition = "redirect"
	RegistrationRequired  Condition = "registration-required"
	RemoteServerNotFound  Condition = "remote-server-not-found"
	RemoteServerTimeout   Condition = "remote-server-timeout"
	ResourceConstraint    Condition = "resource-constraint"
	ServiceUnavailable    Condition = "service-unavailable"
	SubscriptionRequired  Condition = "subscription-required"
	UndefinedCondition    Condition = "undefined-condition"
	UnexpectedRequest     Condition = "unexpected-request"
)

// Error is a stanza-level <error/> element, satisfying the error interface
// so it can be returned and compared like any other Go error.
type Error struct {
	Type      ErrorType
	Condition Condition
	By        jid.JID
	Lang      language.Tag
	Text      string
}

// Error satisfies the error interface.
func (e Error) Error() string {
	if e.Text != "" {
		return e.Text
	}
	return string(e.Condition)
}

// MarshalXML implements xml.Marshaler.
func (e Error) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: "error"}}
	typAttr, _ := e.Type.MarshalXMLAttr(xml.Name{Local: "type"})
	start.Attr = append(start.Attr, typAttr)
	if a, err := e.By.MarshalXMLAttr(xml.Name{Local: "by"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	cond := xml.StartElement{Name: xml.Name{Space: ns.Stanza, Local: string(e.Condition)}}
	if err := enc.EncodeToken(cond); err != nil {
		return err
	}
	if err := enc.EncodeToken(cond.End()); err != nil {
		return err
	}
	if e.Text != "" {
		text := xml.StartElement{
			Name: xml.Name{Space: ns.Stanza, Local: "text"},
			Attr: []xml.Attr{{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: e.Lang.String()}},
		}
		if err := enc.EncodeToken(text); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
		if err := enc.EncodeToken(text.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// UnmarshalXML implements xml.Unmarshaler.
func (e *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "type":
			if err := e.Type.UnmarshalXMLAttr(a); err != nil {
				return err
			}
		case "by":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return err
			}
			e.By = j
		}
	}

	var texts []struct {
		lang string
		data string
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" {
				var lang string
				for _, a := range t.Attr {
					if a.Name.Space == ns.XML && a.Name.Local == "lang" {
						lang = a.Value
					}
				}
				data, err := decodeCharData(d, t)
				if err != nil {
					return err
				}
				texts = append(texts, struct {
					lang string
					data string
				}{lang, data})
				continue
			}
			if t.Name.Space == ns.Stanza || e.Condition == "" {
				e.Condition = Condition(t.Name.Local)
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if len(texts) > 0 {
				e.Text = texts[0].data
				if tag, err := language.Parse(texts[0].lang); err == nil {
					e.Lang = tag
				}
			}
			return nil
		}
	}
}
