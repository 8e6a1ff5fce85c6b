package xmpp

import "fmt"

// Kind distinguishes the error categories a connection can raise (spec §7).
// Each is handled differently by the negotiation state machine and the
// supervisors layered above it.
type Kind int

const (
	// ConfigError indicates invalid or missing options at connection build
	// time. Fatal to that connection; never retried.
	ConfigError Kind = iota
	// NetworkError covers DNS failure after fallbacks, TCP connect failure
	// for every candidate target, and read/write I/O failure. The
	// reconnection supervisor may retry after this kind.
	NetworkError
	// TlsError covers handshake failure, trust failure, and hostname
	// mismatch. Fatal.
	TlsError
	// ParseError covers malformed XML and an element unexpected in the
	// current negotiation state. Fatal to the stream.
	ParseError
	// AuthError covers SASL failure, SCRAM nonce mismatch, an SCRAM
	// iteration floor violation, a server signature mismatch, and bind
	// failure. The configured password should be zeroed after this kind.
	AuthError
	// TimeoutError covers an IQ future deadline, a connect timeout, or a
	// handshake timeout. An IQ timeout does not close the connection.
	TimeoutError
	// CancellationError marks a future completed because Disconnect was
	// called before it resolved.
	CancellationError
	// ProtocolError marks an illegal state transition attempted internally;
	// it indicates a bug in this module rather than in the peer.
	ProtocolError
)

// String returns the kind's name, e.g. "AuthError".
func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case NetworkError:
		return "NetworkError"
	case TlsError:
		return "TlsError"
	case ParseError:
		return "ParseError"
	case AuthError:
		return "AuthError"
	case TimeoutError:
		return "TimeoutError"
	case CancellationError:
		return "CancellationError"
	case ProtocolError:
		return "ProtocolError"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with the Kind this module uses to decide
// how to react to it (close the stream, retry, zero the password, ...).
type Error struct {
	Kind  Kind
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// newError builds an *Error of the given kind wrapping cause.
func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// newErrorf builds an *Error of the given kind with a formatted cause.
func newErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}
