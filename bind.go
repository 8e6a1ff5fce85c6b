package xmpp

import (
	"encoding/xml"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
	"github.com/lesswhite810/xmpp-client-sub000/jid"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

// bindName identifies the <bind/> payload (RFC 6120 §7).
var bindName = xml.Name{Space: ns.Bind, Local: "bind"}

// bindRequest builds the resource-binding IQ this module sends once SASL
// completes and features re-advertise bind (spec §4.3 BINDING). An empty
// resource omits the <resource/> child, letting the server assign one.
func bindRequest(id, resource string) stanza.IQ {
	bind := stanza.Element{XMLName: bindName}
	if resource != "" {
		bind.Children = []stanza.Element{{
			XMLName: xml.Name{Local: "resource"},
			Text:    resource,
		}}
	}
	return stanza.IQ{
		ID:      id,
		Type:    stanza.SetIQ,
		Payload: &bind,
	}
}

// bindResult extracts the full JID the server assigned from a bind result
// IQ's <jid/> child.
func bindResult(iq stanza.IQ) (jid.JID, error) {
	if iq.Type == stanza.ErrorIQ {
		if iq.Err != nil {
			return jid.JID{}, newError(AuthError, *iq.Err)
		}
		return jid.JID{}, newErrorf(AuthError, "bind failed with no error detail")
	}
	if iq.Payload == nil || iq.Payload.XMLName != bindName {
		return jid.JID{}, newErrorf(AuthError, "bind result missing <bind/> payload")
	}
	full, ok := iq.Payload.Child("jid", ns.Bind)
	if !ok {
		return jid.JID{}, newErrorf(AuthError, "bind result missing <jid/>")
	}
	j, err := jid.Parse(full.Text)
	if err != nil {
		return jid.JID{}, newError(AuthError, err)
	}
	return j, nil
}
