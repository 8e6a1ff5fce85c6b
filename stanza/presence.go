package stanza

import (
	"encoding/xml"
	"strconv"

	"github.com/lesswhite810/xmpp-client-sub000/jid"
)

// PresenceType is the type attribute of a presence stanza. The zero value
// denotes implicit "available" presence, which is omitted on the wire
// (spec §3).
type PresenceType string

// Presence types relevant to availability broadcast; subscription
// management types (subscribe/subscribed/...) are part of the roster
// extension, out of scope for this module (spec §1 Non-goals).
const (
	AvailablePresence   PresenceType = ""
	UnavailablePresence PresenceType = "unavailable"
	ErrorPresenceType   PresenceType = "error"
	ProbePresence       PresenceType = "probe"
)

// Presence announces or queries network availability (spec §3).
type Presence struct {
	XMLName xml.Name     `xml:"presence"`
	ID      string       `xml:"id,attr"`
	To      jid.JID      `xml:"to,attr"`
	From    jid.JID      `xml:"from,attr"`
	Lang    string       `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    PresenceType `xml:"type,attr,omitempty"`

	Show     string `xml:"-"`
	Status   string `xml:"-"`
	Priority *int8  `xml:"-"`

	Err *Error `xml:"-"`
}

// DecodePresence decodes a <presence/> element (whose start tag has already
// been read) into a Presence.
func DecodePresence(d *xml.Decoder, start xml.StartElement) (Presence, error) {
	p := Presence{XMLName: start.Name}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			p.ID = a.Value
		case "to":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return p, err
			}
			p.To = j
		case "from":
			j, err := jid.Parse(a.Value)
			if err != nil {
				return p, err
			}
			p.From = j
		case "type":
			p.Type = PresenceType(a.Value)
		case "lang":
			p.Lang = a.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return p, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "show":
				p.Show, err = decodeCharData(d, t)
			case "status":
				p.Status, err = decodeCharData(d, t)
			case "priority":
				var s string
				s, err = decodeCharData(d, t)
				if err == nil && s != "" {
					var v int64
					v, err = strconv.ParseInt(s, 10, 8)
					if err == nil {
						prio := int8(v)
						p.Priority = &prio
					}
				}
			case "error":
				var se Error
				err = se.UnmarshalXML(d, t)
				p.Err = &se
			default:
				err = d.Skip()
			}
			if err != nil {
				return p, err
			}
		case xml.EndElement:
			return p, nil
		}
	}
}

// MarshalXML implements xml.Marshaler for Presence.
func (p Presence) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: "presence"}}
	if p.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: p.ID})
	}
	if a, err := p.To.MarshalXMLAttr(xml.Name{Local: "to"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	if a, err := p.From.MarshalXMLAttr(xml.Name{Local: "from"}); err == nil && a.Name.Local != "" {
		start.Attr = append(start.Attr, a)
	}
	if p.Type != AvailablePresence {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(p.Type)})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := writeTextChild(e, "show", p.Show); err != nil {
		return err
	}
	if err := writeTextChild(e, "status", p.Status); err != nil {
		return err
	}
	if p.Priority != nil {
		if err := writeTextChild(e, "priority", strconv.Itoa(int(*p.Priority))); err != nil {
			return err
		}
	}
	if p.Err != nil {
		if err := p.Err.MarshalXML(e, xml.StartElement{}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
