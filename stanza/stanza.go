// Package stanza implements the XMPP stanza data model: IQ, Message, and
// Presence, plus the generic extension-element tree used to preserve unknown
// payloads for round-tripping and handler dispatch.
package stanza

import (
	"encoding/xml"
)

// Element is a generic, named XML element preserved verbatim so that
// extensions with no registered provider can still be round-tripped and
// dispatched by (name, namespace). Attribute order is not preserved;
// attribute values are.
type Element struct {
	XMLName  xml.Name
	Attr     []xml.Attr `xml:"-"`
	Children []Element  `xml:"-"`
	Text     string     `xml:"-"`
}

// Name returns the element's local name.
func (e Element) Name() string { return e.XMLName.Local }

// Namespace returns the element's namespace.
func (e Element) Namespace() string { return e.XMLName.Space }

// Attribute returns the value of the named attribute (unqualified), and
// whether it was present.
func (e Element) Attribute(local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child element with the given local name and
// namespace, if any. An empty namespace matches any namespace.
func (e Element) Child(local, namespace string) (Element, bool) {
	for _, c := range e.Children {
		if c.XMLName.Local == local && (namespace == "" || c.XMLName.Space == namespace) {
			return c, true
		}
	}
	return Element{}, false
}

// UnmarshalXML implements xml.Unmarshaler, recursively decoding the element's
// children into a generic tree.
func (e *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.XMLName = start.Name
	e.Attr = append([]xml.Attr(nil), start.Attr...)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child Element
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			e.Children = append(e.Children, child)
		case xml.CharData:
			e.Text += string(t)
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML implements xml.Marshaler, writing the element and its children
// back out, escaping text content.
func (e Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: e.XMLName, Attr: e.Attr}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := c.MarshalXML(enc, xml.StartElement{}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
