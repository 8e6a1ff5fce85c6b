// Package ns provides the fixed XML namespace constants used throughout the
// connection core.
package ns

// List of namespaces used by the core negotiation protocol, per spec §6.2.
const (
	Client   = "jabber:client"
	Server   = "jabber:server"
	Stream   = "http://etherx.jabber.org/streams"
	StartTLS = "urn:ietf:params:xml:ns:xmpp-tls"
	SASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	Bind     = "urn:ietf:params:xml:ns:xmpp-bind"
	Ping     = "urn:xmpp:ping"
	Stanza   = "urn:ietf:params:xml:ns:xmpp-stanzas"
	XML      = "http://www.w3.org/XML/1998/namespace"
)
