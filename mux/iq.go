// Package mux dispatches incoming IQ stanzas to registered handlers and
// registers providers that decode extension payloads embedded in IQ
// children.
package mux

import (
	"encoding/xml"

	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

// IQHandler responds to an incoming IQ stanza of type get or set.
type IQHandler interface {
	HandleIQ(iq stanza.IQ) (*stanza.Element, error)
}

// IQHandlerFunc adapts a function to an IQHandler.
type IQHandlerFunc func(iq stanza.IQ) (*stanza.Element, error)

// HandleIQ calls f(iq).
func (f IQHandlerFunc) HandleIQ(iq stanza.IQ) (*stanza.Element, error) {
	return f(iq)
}

type iqKey struct {
	xml.Name
	Type stanza.IQType
}

// IQMux routes an incoming get/set IQ to the handler registered for the
// (child element name, IQ type) pair. Either the namespace or the local
// name of a registration may be left blank to act as a wildcard; full
// names take precedence over a wildcard namespace, which takes precedence
// over a wildcard local name, which takes precedence over a handler
// registered for the type with no name filter at all.
type IQMux struct {
	handlers map[iqKey]IQHandler
}

// NewIQMux allocates an empty IQMux.
func NewIQMux() *IQMux {
	return &IQMux{handlers: make(map[iqKey]IQHandler)}
}

// Handle registers h for IQs of the given type whose payload child matches
// name. It panics if a handler is already registered for the same pattern.
func (m *IQMux) Handle(iqType stanza.IQType, name xml.Name, h IQHandler) {
	if h == nil {
		panic("mux: nil IQ handler")
	}
	key := iqKey{Name: name, Type: iqType}
	if _, ok := m.handlers[key]; ok {
		panic("mux: multiple registrations for {" + key.Space + "}" + key.Local)
	}
	m.handlers[key] = h
}

// HandleGet is a shortcut for Handle(stanza.GetIQ, name, h).
func (m *IQMux) HandleGet(name xml.Name, h IQHandler) { m.Handle(stanza.GetIQ, name, h) }

// HandleSet is a shortcut for Handle(stanza.SetIQ, name, h).
func (m *IQMux) HandleSet(name xml.Name, h IQHandler) { m.Handle(stanza.SetIQ, name, h) }

// Handler returns the handler registered for the most specific pattern that
// matches (iqType, name), falling through full name, wildcard namespace,
// wildcard local name, then a type-only registration. ok is false if nothing
// matches.
func (m *IQMux) Handler(iqType stanza.IQType, name xml.Name) (h IQHandler, ok bool) {
	key := iqKey{Name: name, Type: iqType}
	if h, ok := m.handlers[key]; ok {
		return h, true
	}

	n := name
	n.Space = ""
	key.Name = n
	if h, ok := m.handlers[key]; ok {
		return h, true
	}

	n = name
	n.Local = ""
	key.Name = n
	if h, ok := m.handlers[key]; ok {
		return h, true
	}

	key.Name = xml.Name{}
	if h, ok := m.handlers[key]; ok {
		return h, true
	}

	return nil, false
}

// HandleXMPP dispatches iq to the registered handler and builds the IQ
// response this module sends back, per the get/set, result/error contract
// (a get or set IQ always elicits exactly one reply).
func (m *IQMux) HandleXMPP(iq stanza.IQ) stanza.IQ {
	name := xml.Name{}
	if iq.Payload != nil {
		name = iq.Payload.XMLName
	}
	h, ok := m.Handler(iq.Type, name)
	if !ok {
		return iq.ErrorResponse(stanza.Error{
			Type:      stanza.Cancel,
			Condition: stanza.FeatureNotImplemented,
		})
	}
	payload, err := h.HandleIQ(iq)
	if err != nil {
		if se, ok := err.(stanza.Error); ok {
			return iq.ErrorResponse(se)
		}
		return iq.ErrorResponse(stanza.Error{
			Type:      stanza.Cancel,
			Condition: stanza.InternalServerError,
			Text:      err.Error(),
		})
	}
	return iq.Result(payload)
}
