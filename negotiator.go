package xmpp

import (
	"context"
	"encoding/base64"

	"github.com/lesswhite810/xmpp-client-sub000/sasl"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
	"github.com/lesswhite810/xmpp-client-sub000/stream"
)

// negotiate drives the connection from Connecting through to SessionActive,
// walking the state machine in spec §4.3: stream header, an optional TLS
// upgrade, SASL authentication, then resource binding. Each branch re-sends
// the stream header and re-reads features per RFC 6120 §4.3.3, since a
// layer change invalidates everything the peer advertised before it.
func (c *Conn) negotiate(ctx context.Context) error {
	if err := c.openStream(ctx); err != nil {
		return err
	}
	for {
		switch c.state {
		case AwaitingFeatures:
			feats, err := c.readFeatures()
			if err != nil {
				return err
			}
			if err := c.advance(feats); err != nil {
				return err
			}
		case TLSNegotiating:
			if err := c.doStartTLS(ctx); err != nil {
				return err
			}
			if err := c.openStream(ctx); err != nil {
				return err
			}
		case SASLAuth:
			if err := c.doSASL(c.lastFeatures); err != nil {
				return err
			}
			if err := c.openStream(ctx); err != nil {
				return err
			}
		case Binding:
			return c.doBind()
		default:
			return newErrorf(ProtocolError, "negotiate: unexpected state %s", c.state)
		}
	}
}

// openStream sends the opening stream tag, consumes the server's reply, and
// transitions to AwaitingFeatures. It is called once from Connecting and
// again after every layer change (TLS upgrade, SASL success), per the
// framer-restart bookkeeping spec §4.1 requires.
func (c *Conn) openStream(_ context.Context) error {
	if err := c.framer.WriteRaw(stream.OpenTag(c.cfg.ServiceDomain, c.cfg.Lang.String())); err != nil {
		return err
	}
	if _, err := c.framer.ReadHeader(); err != nil {
		return err
	}
	return c.transition(AwaitingFeatures)
}

func (c *Conn) transition(to State) error {
	if err := checkTransition(c.state, to); err != nil {
		return err
	}
	c.state = to
	return nil
}

// resetState forces the state machine back to Initial from wherever it
// currently sits, bypassing the ordinary transition table. This is the one
// exception the table carves out: reconnection must be able to restart
// negotiation regardless of where the previous attempt failed (spec §4.9).
// Initial, not Connecting, so that connect's own Initial -> Connecting
// transition (legalTransitions in state.go) stays legal on retry.
func (c *Conn) resetState() {
	c.state = Initial
}

func (c *Conn) readFeatures() (stream.Features, error) {
	v, err := c.framer.Next()
	if err != nil {
		return stream.Features{}, err
	}
	feats, ok := v.(stream.Features)
	if !ok {
		return stream.Features{}, newErrorf(ParseError, "expected stream features, got %T", v)
	}
	c.lastFeatures = feats
	return feats, nil
}

// advance picks the next state out of AwaitingFeatures according to what the
// server just advertised and what this connection has already done (spec
// §4.3 table): TLS first if it is offered and not yet in place, then SASL if
// not yet authenticated, then binding once authenticated and bind is
// available.
func (c *Conn) advance(feats stream.Features) error {
	if feats.StartTLS && c.cfg.Mode != Disabled && !c.secured {
		return c.transition(TLSNegotiating)
	}
	if c.cfg.Mode == Required && !c.secured {
		return newErrorf(TlsError, "security required but server does not advertise starttls")
	}
	if !c.authenticated && len(feats.Mechanisms) > 0 {
		return c.transition(SASLAuth)
	}
	if c.authenticated && feats.BindAvailable {
		return c.transition(Binding)
	}
	return newErrorf(ProtocolError, "no legal next state from awaiting-features: %+v", feats)
}

// doStartTLS sends <starttls/>, waits for <proceed/>, performs the handshake,
// and restarts the framer over the upgraded transport (spec §4.3
// TLS_NEGOTIATING, §4.1 invariant (i)).
func (c *Conn) doStartTLS(ctx context.Context) error {
	if err := c.framer.WriteRaw(stream.StartTLSTag); err != nil {
		return err
	}
	v, err := c.framer.Next()
	if err != nil {
		return err
	}
	if _, ok := v.(tlsProceed); !ok {
		if sf, ok := v.(stream.Error); ok {
			return newError(TlsError, sf)
		}
		return newErrorf(ProtocolError, "expected <proceed/>, got %T", v)
	}

	tlsConn, err := upgradeTLS(ctx, c.netConn, c.cfg)
	if err != nil {
		return err
	}
	c.netConn = tlsConn
	c.framer.Reset(tlsConn)
	c.secured = true
	return nil
}

// offeredMechanisms narrows the server's advertised mechanism list to the
// ones this connection is willing to use: PLAIN is excluded unless the
// channel is already encrypted, security is explicitly Disabled, or the
// caller's EnabledMechanisms allowlist explicitly names PLAIN (spec §4.4
// "PLAIN MUST NOT be selected unless the transport is TLS-protected OR
// explicitly permitted"), and an explicit EnabledMechanisms allowlist
// further restricts the set.
func (c *Conn) offeredMechanisms(serverMechs []string) []string {
	plainPermitted := c.secured || c.cfg.Mode == Disabled || containsString(c.cfg.EnabledMechanisms, "PLAIN")
	var offered []string
	for _, m := range serverMechs {
		if m == "PLAIN" && !plainPermitted {
			continue
		}
		if len(c.cfg.EnabledMechanisms) > 0 && !containsString(c.cfg.EnabledMechanisms, m) {
			continue
		}
		offered = append(offered, m)
	}
	return offered
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// doSASL runs one full SASL exchange to completion, selecting a mechanism
// from the intersection of what the server offered and what this connection
// permits (spec §4.4). The password is cloned into the mechanism's
// Credentials for this attempt and the clone is zeroed once the attempt
// finishes, success or failure (spec §9 "Password hygiene": "cloned on
// entry to each SASL mechanism and zeroed at the end of authentication").
// The config's own password buffer is only zeroed on a terminal AuthError
// (spec §7); a successful authentication leaves it intact so a later
// reconnect attempt can reuse it.
func (c *Conn) doSASL(feats stream.Features) error {
	passClone := c.cfg.Password.Clone()
	defer passClone.Zero()

	creds := sasl.Credentials{
		Authz:    c.cfg.Authzid,
		Authn:    c.cfg.Username,
		Password: passClone.String(),
	}
	offered := c.offeredMechanisms(feats.Mechanisms)
	mech, ok := c.saslReg.Select(offered, creds)
	if !ok {
		return c.zeroOnAuthError(newErrorf(AuthError, "no usable SASL mechanism among %v", feats.Mechanisms))
	}
	if scram, ok := mech.(*sasl.Scram); ok {
		scram.SetIterationPolicy(c.cfg.SCRAMIterationFloor, c.cfg.SCRAMIterationWarn, c.cfg.logf)
	}

	first, _, err := mech.Step(nil)
	if err != nil {
		return c.zeroOnAuthError(newError(AuthError, err))
	}
	if err := c.framer.WriteRaw(stream.AuthTag(mech.Name(), encodeSASLBody(first))); err != nil {
		return err
	}
	if err := c.saslLoop(mech); err != nil {
		return c.zeroOnAuthError(err)
	}
	return nil
}

// zeroOnAuthError zeroes the connection's configured password when err is an
// AuthError (spec §7 "the configured password SHOULD be zeroed"), then
// returns err unchanged.
func (c *Conn) zeroOnAuthError(err error) error {
	if xerr, ok := err.(*Error); ok && xerr.Kind == AuthError {
		c.cfg.Password.Zero()
	}
	return err
}

// saslLoop drives the challenge/response exchange after the initial <auth/>
// until the server sends <success/> or <failure/> (spec §4.4).
func (c *Conn) saslLoop(mech sasl.Mechanism) error {
	for {
		v, err := c.framer.Next()
		if err != nil {
			return err
		}
		switch t := v.(type) {
		case stream.SASLChallenge:
			raw, err := decodeSASLBody(t.Base64)
			if err != nil {
				return newError(AuthError, err)
			}
			resp, _, err := mech.Step(raw)
			if err != nil {
				return newError(AuthError, err)
			}
			if err := c.framer.WriteRaw(stream.ResponseTag(encodeSASLBody(resp))); err != nil {
				return err
			}
		case stream.SASLSuccess:
			if t.Base64 != "" {
				raw, err := decodeSASLBody(t.Base64)
				if err != nil {
					return newError(AuthError, err)
				}
				if scram, ok := mech.(*sasl.Scram); ok {
					if err := scram.VerifyServerSignature(raw); err != nil {
						return newError(AuthError, err)
					}
				}
			}
			c.authenticated = true
			return nil
		case stream.SASLFailure:
			return newError(AuthError, t)
		default:
			return newErrorf(ProtocolError, "unexpected element %T during SASL negotiation", v)
		}
	}
}

// encodeSASLBody renders b as the base64 body of an <auth/>/<response/>
// element. An empty b yields "", which stream.AuthTag and stream.ResponseTag
// render as the RFC 6120 §6.3.1 "=" sentinel for an empty response.
func encodeSASLBody(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func decodeSASLBody(s string) ([]byte, error) {
	if s == "=" || s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// doBind sends the resource-binding IQ and records the full JID the server
// assigns, then transitions to SessionActive (spec §4.3 BINDING). This runs
// before the background read loop starts, so it reads the reply directly off
// the framer rather than registering with the Correlator (which only ever
// gets fed frames by that read loop).
func (c *Conn) doBind() error {
	id := newID()
	req := bindRequest(id, c.cfg.Resource)
	if err := c.framer.Encode(req); err != nil {
		return err
	}
	v, err := c.framer.Next()
	if err != nil {
		return err
	}
	result, ok := v.(stanza.IQ)
	if !ok {
		return newErrorf(ProtocolError, "expected bind result IQ, got %T", v)
	}
	if result.ID != id {
		return newErrorf(ProtocolError, "bind result id %q does not match request %q", result.ID, id)
	}
	j, err := bindResult(result)
	if err != nil {
		return err
	}
	c.boundJID = j
	return c.transition(SessionActive)
}
