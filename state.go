package xmpp

// State is a position in the negotiation state machine (spec §4.3).
type State int

const (
	Initial State = iota
	Connecting
	AwaitingFeatures
	TLSNegotiating
	SASLAuth
	Binding
	SessionActive
)

// String returns the state's name, e.g. "SessionActive".
func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Connecting:
		return "Connecting"
	case AwaitingFeatures:
		return "AwaitingFeatures"
	case TLSNegotiating:
		return "TLSNegotiating"
	case SASLAuth:
		return "SASLAuth"
	case Binding:
		return "Binding"
	case SessionActive:
		return "SessionActive"
	default:
		return "Unknown"
	}
}

// legalTransitions enumerates the only transitions the state machine may
// make; any other requested transition is a programming error and raises
// ProtocolError (spec §4.3 table, plus the INITIAL/SESSION_ACTIVE
// restrictions called out in spec §8 "State machine").
var legalTransitions = map[State]map[State]bool{
	Initial:          {Connecting: true},
	Connecting:       {AwaitingFeatures: true},
	AwaitingFeatures: {TLSNegotiating: true, SASLAuth: true, Binding: true},
	TLSNegotiating:   {AwaitingFeatures: true},
	SASLAuth:         {AwaitingFeatures: true},
	Binding:          {SessionActive: true},
	SessionActive:    {Connecting: true},
}

// checkTransition reports whether moving from `from` to `to` is legal,
// returning a ProtocolError describing the violation if not.
func checkTransition(from, to State) error {
	if legalTransitions[from][to] {
		return nil
	}
	return newErrorf(ProtocolError, "illegal state transition %s -> %s", from, to)
}
