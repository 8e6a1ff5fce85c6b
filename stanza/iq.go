package stanza

import (
	"encoding/xml"
	"errors"

	"github.com/lesswhite810/xmpp-client-sub000/jid"
)

// ErrEmptyIQType is returned when marshaling an IQ with an empty type
// attribute, which is illegal per spec §3 (every IQ MUST carry a type).
var ErrEmptyIQType = errors.New("stanza: empty IQ type")

// ErrEmptyIQID is returned by the correlator when asked to send an IQ with no
// id; spec §3 requires a correlated request to carry a non-empty id.
var ErrEmptyIQID = errors.New("stanza: IQ id must be non-empty before sending")

// IQType is the type attribute of an IQ stanza.
type IQType string

// The four legal IQ types (spec §3).
const (
	GetIQ    IQType = "get"
	SetIQ    IQType = "set"
	ResultIQ IQType = "result"
	ErrorIQ  IQType = "error"
)

// MarshalXMLAttr satisfies xml.MarshalerAttr. It refuses to marshal an empty
// type, since every IQ on the wire must carry one.
func (t IQType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if t == "" {
		return xml.Attr{}, ErrEmptyIQType
	}
	return xml.Attr{Name: name, Value: string(t)}, nil
}

// IsResponse reports whether t is a terminal response type (result or
// error), as opposed to a request type (get or set).
func (t IQType) IsResponse() bool {
	return t == ResultIQ || t == ErrorIQ
}

// IQ ("Information Query") is the request/response stanza. Every IQ carries
// a non-empty id; result and error IQs are terminal responses matched to a
// request by that id (spec §3).
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	To      jid.JID  `xml:"to,attr"`
	From    jid.JID  `xml:"from,attr"`
	Lang    string   `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    IQType   `xml:"type,attr"`

	// Payload is the single primary child element (an extension element), if
	// any was present and no provider claimed it. It is nil for e.g. an empty
	// <iq type='result'/>.
	Payload *Element `xml:"-"`

	// Any is the typed value returned by a registered Provider Registry entry
	// for the payload element, if one matched (spec §4.2).
	Any interface{} `xml:"-"`

	// Err is populated when Type is ErrorIQ.
	Err *Error `xml:"-"`
}

// Result builds a minimal <iq type='result'/> in response to iq: the
// request's from becomes the reply's to, and the same id is echoed back. The
// reply only carries a from of its own if the request explicitly addressed
// one as its to (spec §8 scenario 4: a ping addressed directly to the client,
// with no to attribute, draws a reply carrying only to, no from).
func (iq IQ) Result(payload *Element) IQ {
	result := IQ{
		ID:      iq.ID,
		To:      iq.From,
		Type:    ResultIQ,
		Payload: payload,
	}
	if !iq.To.IsZero() {
		result.From = iq.To
	}
	return result
}

// ErrorResponse builds an <iq type='error'/> in response to iq.
func (iq IQ) ErrorResponse(e Error) IQ {
	return IQ{
		ID:   iq.ID,
		To:   iq.From,
		From: iq.To,
		Type: ErrorIQ,
		Err:  &e,
	}
}

// ProviderFunc decodes a registered extension element starting at start into
// its typed representation (spec §4.2 Provider Registry).
type ProviderFunc func(d *xml.Decoder, start xml.StartElement) (interface{}, error)

// Lookup resolves a provider for the given (local name, namespace).
type Lookup func(name xml.Name) (ProviderFunc, bool)

// DecodeIQ decodes an <iq/> element (whose start tag has already been read)
// into an IQ, dispatching any child element to a registered provider if one
// matches, otherwise preserving it as a generic Element.
func DecodeIQ(d *xml.Decoder, start xml.StartElement, lookup Lookup) (IQ, error) {
	iq := IQ{XMLName: start.Name}
	for _, a := range start.Attr {
		switch {
		case a.Name.Local == "id":
			iq.ID = a.Value
		case a.Name.Local == "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return iq, err
			}
			iq.To = j
		case a.Name.Local == "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return iq, err
			}
			iq.From = j
		case a.Name.Local == "type":
			iq.Type = IQType(a.Value)
		case a.Name.Local == "lang":
			iq.Lang = a.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return iq, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "error" {
				var se Error
				if err := se.UnmarshalXML(d, t); err != nil {
					return iq, err
				}
				iq.Err = &se
				continue
			}
			if lookup != nil {
				if pf, ok := lookup(t.Name); ok {
					v, err := pf(d, t)
					if err != nil {
						return iq, err
					}
					iq.Any = v
					continue
				}
			}
			var el Element
			if err := el.UnmarshalXML(d, t); err != nil {
				return iq, err
			}
			iq.Payload = &el
		case xml.EndElement:
			return iq, nil
		}
	}
}

// MarshalXML implements xml.Marshaler for IQ.
func (iq IQ) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: "iq"}}
	if iq.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	}
	if a, err := iq.To.MarshalXMLAttr(xml.Name{Local: "to"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	if a, err := iq.From.MarshalXMLAttr(xml.Name{Local: "from"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	typAttr, err := iq.Type.MarshalXMLAttr(xml.Name{Local: "type"})
	if err != nil {
		return err
	}
	start.Attr = append(start.Attr, typAttr)
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if iq.Payload != nil {
		if err := iq.Payload.MarshalXML(e, xml.StartElement{}); err != nil {
			return err
		}
	}
	if iq.Any != nil {
		if err := e.Encode(iq.Any); err != nil {
			return err
		}
	}
	if iq.Err != nil {
		if err := iq.Err.MarshalXML(e, xml.StartElement{}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
