package stanza

import (
	"encoding/xml"

	"github.com/lesswhite810/xmpp-client-sub000/jid"
)

// MessageType is the type attribute of a message stanza.
type MessageType string

// The five legal message types (spec §3); NormalMessage is the default used
// when the type attribute is absent on the wire.
const (
	ChatMessage      MessageType = "chat"
	GroupChatMessage MessageType = "groupchat"
	HeadlineMessage  MessageType = "headline"
	NormalMessage    MessageType = "normal"
	ErrorMessage     MessageType = "error"
)

// Message is a fire-and-forget stanza used to send chat text, subjects, and
// other one-way content (spec §3).
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr"`
	To      jid.JID     `xml:"to,attr"`
	From    jid.JID     `xml:"from,attr"`
	Lang    string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType `xml:"type,attr,omitempty"`

	Body    string `xml:"-"`
	Subject string `xml:"-"`
	Thread  string `xml:"-"`

	Err *Error `xml:"-"`

	// Extensions holds any child elements besides body/subject/thread/error
	// that were not claimed by a registered provider.
	Extensions []Element `xml:"-"`
}

// EffectiveType returns m.Type, defaulting to NormalMessage if unset.
func (m Message) EffectiveType() MessageType {
	if m.Type == "" {
		return NormalMessage
	}
	return m.Type
}

// DecodeMessage decodes a <message/> element (whose start tag has already
// been read) into a Message.
func DecodeMessage(d *xml.Decoder, start xml.StartElement, lookup Lookup) (Message, error) {
	m := Message{XMLName: start.Name}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			m.ID = a.Value
		case "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return m, err
			}
			m.To = j
		case "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return m, err
			}
			m.From = j
		case "type":
			m.Type = MessageType(a.Value)
		case "lang":
			m.Lang = a.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return m, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				m.Body, err = decodeCharData(d, t)
			case "subject":
				m.Subject, err = decodeCharData(d, t)
			case "thread":
				m.Thread, err = decodeCharData(d, t)
			case "error":
				var se Error
				err = se.UnmarshalXML(d, t)
				m.Err = &se
			default:
				var el Element
				err = el.UnmarshalXML(d, t)
				if err == nil {
					m.Extensions = append(m.Extensions, el)
				}
			}
			if err != nil {
				return m, err
			}
		case xml.EndElement:
			return m, nil
		}
	}
}

func decodeCharData(d *xml.Decoder, start xml.StartElement) (string, error) {
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

// MarshalXML implements xml.Marshaler for Message.
func (m Message) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: "message"}}
	if m.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: m.ID})
	}
	if a, err := m.To.MarshalXMLAttr(xml.Name{Local: "to"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	if a, err := m.From.MarshalXMLAttr(xml.Name{Local: "from"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	if m.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(m.Type)})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := writeTextChild(e, "subject", m.Subject); err != nil {
		return err
	}
	if err := writeTextChild(e, "body", m.Body); err != nil {
		return err
	}
	if err := writeTextChild(e, "thread", m.Thread); err != nil {
		return err
	}
	for _, ext := range m.Extensions {
		if err := ext.MarshalXML(e, xml.StartElement{}); err != nil {
			return err
		}
	}
	if m.Err != nil {
		if err := m.Err.MarshalXML(e, xml.StartElement{}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func writeTextChild(e *xml.Encoder, name, text string) error {
	if text == "" {
		return nil
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}
