package sasl

// Plain implements the PLAIN mechanism (RFC 4616): a single message
// containing the NUL-separated authzid, authcid, and password.
type Plain struct {
	creds Credentials
	done  bool
}

// NewPlain returns a Plain mechanism ready to authenticate with creds.
func NewPlain(creds Credentials) *Plain {
	return &Plain{creds: creds}
}

// Name returns "PLAIN".
func (p *Plain) Name() string { return "PLAIN" }

// HasInitialResponse always returns true; PLAIN has no server-first step.
func (p *Plain) HasInitialResponse() bool { return true }

// Step returns the single PLAIN authentication message on its first call
// and fails on any subsequent call, since PLAIN never expects a challenge.
func (p *Plain) Step(challenge []byte) ([]byte, bool, error) {
	if p.done {
		return nil, true, ErrMechanismDone
	}
	p.done = true
	msg := make([]byte, 0, len(p.creds.Authz)+len(p.creds.Authn)+len(p.creds.Password)+2)
	msg = append(msg, p.creds.Authz...)
	msg = append(msg, 0)
	msg = append(msg, p.creds.Authn...)
	msg = append(msg, 0)
	msg = append(msg, p.creds.Password...)
	return msg, true, nil
}
