package xmpp

import "github.com/google/uuid"

// newID returns a fresh identifier for an outgoing IQ or bind request. IDs
// need only be unique within one connection's lifetime; a random UUID is far
// more than that requires but costs nothing to generate (spec §4.5 "id
// uniqueness is the caller's responsibility").
func newID() string {
	return uuid.NewString()
}
