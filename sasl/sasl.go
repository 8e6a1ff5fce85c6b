// Package sasl implements the Simple Authentication and Security Layer
// mechanisms this module negotiates during stream authentication (RFC 4422):
// PLAIN (RFC 4616) and the SCRAM family (RFC 5802, RFC 7677).
package sasl

import "errors"

// ErrMechanismDone is returned by Step when called after the mechanism has
// already completed.
var ErrMechanismDone = errors.New("sasl: mechanism already completed")

// Mechanism negotiates one SASL authentication exchange. A Mechanism is
// stateful and single-use: callers must create a fresh instance per
// authentication attempt.
type Mechanism interface {
	// Name is the mechanism name advertised in <mechanism/> elements, e.g.
	// "PLAIN" or "SCRAM-SHA-256".
	Name() string

	// HasInitialResponse reports whether Step may be called with a nil
	// challenge to produce the client-first message before the server has
	// sent anything.
	HasInitialResponse() bool

	// Step consumes a server challenge (nil for the initial step) and
	// returns the client's next response. done is true once the mechanism
	// has produced its final response and needs no further server input
	// before success.
	Step(challenge []byte) (response []byte, done bool, err error)
}

// Credentials bundles the identity information mechanisms need to compute
// their responses.
type Credentials struct {
	// Authz is the authorization identity (RFC 4422 §2); empty unless the
	// client is acting on behalf of another identity.
	Authz string
	// Authn is the authentication identity, normally the JID localpart.
	Authn string
	// Password is the plaintext password for Authn.
	Password string
}
