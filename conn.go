// Package xmpp implements the client-side connection core of RFC 6120: the
// stream framer, the negotiation state machine (STARTTLS, SASL, resource
// binding), IQ request/response correlation, DNS SRV discovery, and the
// supervisors that keep a session alive (keep-alive ping, reconnection with
// backoff).
package xmpp

import (
	"context"
	"encoding/xml"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lesswhite810/xmpp-client-sub000/jid"
	"github.com/lesswhite810/xmpp-client-sub000/mux"
	"github.com/lesswhite810/xmpp-client-sub000/ping"
	"github.com/lesswhite810/xmpp-client-sub000/sasl"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
	"github.com/lesswhite810/xmpp-client-sub000/stream"
)

// StanzaListener receives every Message, Presence, or unsolicited-result IQ
// this connection reads once it reaches SessionActive (spec §4.6). It must
// not block.
type StanzaListener func(v interface{})

// Conn is one negotiated XMPP connection: the transport, the framer reading
// it, and the state machine, correlator, dispatcher, and supervisors layered
// on top (spec §2 "Connection Core").
type Conn struct {
	cfg *Config

	mu            sync.Mutex
	state         State
	netConn       net.Conn
	framer        *Framer
	secured       bool
	authenticated bool
	lastFeatures  stream.Features
	boundJID      jid.JID

	saslReg    *sasl.Registry
	correlator *Correlator
	dispatcher *Dispatcher
	iqMux      *mux.IQMux
	providers  *mux.ProviderRegistry

	pingSup      *ping.Supervisor
	reconnectSup *ReconnectSupervisor

	stanzaMu   sync.RWMutex
	stanzaSubs map[int]StanzaListener
	nextSubID  int

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to the service described by cfg, runs the full negotiation
// state machine to SessionActive, and starts the background read loop and
// any enabled supervisors (spec §2, §4.3, §5).
func Dial(ctx context.Context, cfg *Config) (*Conn, error) {
	c := &Conn{
		cfg:        cfg,
		saslReg:    sasl.NewRegistry(),
		correlator: NewCorrelator(),
		dispatcher: NewDispatcher(),
		iqMux:      mux.NewIQMux(),
		providers:  mux.NewProviderRegistry(),
		stanzaSubs: make(map[int]StanzaListener),
		closed:     make(chan struct{}),
	}
	c.iqMux.HandleGet(ping.ElementName, ping.Handler)

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.dispatcher.Dispatch(Connected())

	if err := c.negotiate(ctx); err != nil {
		c.teardown(err)
		return nil, err
	}
	c.dispatcher.Dispatch(Authenticated(false))

	if cfg.SendPresence {
		if err := c.SendStanza(stanza.Presence{}); err != nil {
			c.teardown(err)
			return nil, err
		}
	}

	c.startSupervisors()
	go c.readLoop()
	return c, nil
}

// connect resolves and dials a transport, optionally performing a Direct TLS
// handshake before any XMPP bytes are exchanged (spec §4.3 CONNECTING, §4.7).
func (c *Conn) connect(ctx context.Context) error {
	if err := c.transition(Connecting); err != nil {
		return err
	}
	targets, err := buildTargets(ctx, nil, c.cfg)
	if err != nil {
		return err
	}
	netConn, err := dialFirst(ctx, c.cfg, targets)
	if err != nil {
		return err
	}
	if c.cfg.DirectTLS {
		tlsConn, err := upgradeTLS(ctx, netConn, c.cfg)
		if err != nil {
			netConn.Close()
			return err
		}
		netConn = tlsConn
		c.secured = true
	}
	c.netConn = netConn
	c.framer = NewFramer(netConn, c.providers.Lookup)
	return nil
}

// startSupervisors activates the keep-alive ping and reconnection
// supervisors this connection was configured with (spec §4.8, §4.9).
func (c *Conn) startSupervisors() {
	if c.cfg.PingEnabled {
		domain, _ := jid.Parse(c.cfg.ServiceDomain)
		c.pingSup = ping.NewSupervisor(pingSender{c}, domain, c.cfg.PingInterval, c.cfg.logf)
		c.pingSup.Start()
	}
	if c.cfg.ReconnectionEnabled {
		c.reconnectSup = NewReconnectSupervisor(c.cfg.ReconnectionBaseDelay, c.cfg.ReconnectionMaxDelay, c.reconnectOnce)
	}
}

// pingSender adapts Conn.SendIQAsync to ping.Sender, whose Future return type
// is its own interface so the ping package stays independent of this one.
type pingSender struct{ c *Conn }

func (p pingSender) SendIQAsync(to jid.JID, payload *stanza.Element, timeout time.Duration) (ping.Future, error) {
	return p.c.SendIQAsync(to, payload, timeout)
}

// readLoop is the single reader for this connection's transport (spec §5):
// it owns the framer until the stream ends or a fatal error occurs, routing
// every frame to the correlator, the IQ mux, or subscribed stanza listeners.
func (c *Conn) readLoop() {
	for {
		v, err := c.framer.Next()
		if err != nil {
			if err == io.EOF {
				c.teardownClean()
			} else {
				c.teardown(err)
			}
			return
		}
		switch t := v.(type) {
		case stanza.IQ:
			if t.Type.IsResponse() {
				if !c.correlator.Deliver(t) {
					c.notifyStanza(t)
				}
				continue
			}
			resp := c.iqMux.HandleXMPP(t)
			if err := c.framer.Encode(resp); err != nil {
				c.teardown(err)
				return
			}
		case stanza.Message:
			c.notifyStanza(t)
		case stanza.Presence:
			c.notifyStanza(t)
		default:
			// Unrecognized mid-session elements (a stream-level notice we have
			// no typed branch for, an unmatched provider result) are ignored
			// rather than treated as fatal.
		}
	}
}

func (c *Conn) notifyStanza(v interface{}) {
	c.stanzaMu.RLock()
	subs := make([]StanzaListener, 0, len(c.stanzaSubs))
	for _, l := range c.stanzaSubs {
		subs = append(subs, l)
	}
	c.stanzaMu.RUnlock()
	for _, l := range subs {
		l(v)
	}
}

// SendStanza marshals and writes v (an IQ, Message, or Presence) to the
// stream.
func (c *Conn) SendStanza(v interface{}) error {
	return c.framer.Encode(v)
}

// SendIQAsync sends a get IQ carrying payload to to and returns a Future for
// its result, honoring timeout (or DefaultIQTimeout if zero), per spec §4.5.
func (c *Conn) SendIQAsync(to jid.JID, payload *stanza.Element, timeout time.Duration) (Future, error) {
	id := newID()
	iq := stanza.IQ{ID: id, To: to, Type: stanza.GetIQ, Payload: payload}
	future, err := c.correlator.Register(id, timeout)
	if err != nil {
		return Future{}, err
	}
	if err := c.framer.Encode(iq); err != nil {
		return Future{}, err
	}
	return future, nil
}

// AddListener registers l to receive lifecycle events, returning a token for
// RemoveListener.
func (c *Conn) AddListener(l Listener) int { return c.dispatcher.Add(l) }

// RemoveListener unregisters the listener returned by AddListener.
func (c *Conn) RemoveListener(token int) { c.dispatcher.Remove(token) }

// AddStanzaListener registers l to receive inbound Message, Presence, and
// unsolicited IQ-response stanzas, returning a token for RemoveStanzaListener.
func (c *Conn) AddStanzaListener(l StanzaListener) int {
	c.stanzaMu.Lock()
	defer c.stanzaMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.stanzaSubs[id] = l
	return id
}

// RemoveStanzaListener unregisters the listener returned by
// AddStanzaListener.
func (c *Conn) RemoveStanzaListener(token int) {
	c.stanzaMu.Lock()
	defer c.stanzaMu.Unlock()
	delete(c.stanzaSubs, token)
}

// Handle registers h to answer incoming get/set IQs whose payload matches
// name (spec §4.2).
func (c *Conn) Handle(iqType stanza.IQType, name xml.Name, h mux.IQHandler) {
	c.iqMux.Handle(iqType, name, h)
}

// RegisterProvider binds fn to decode extension elements named name,
// wherever they appear as an IQ child (spec §4.2).
func (c *Conn) RegisterProvider(name xml.Name, fn stanza.ProviderFunc) {
	c.providers.Register(name, fn)
}

// JID returns the full JID this connection bound, valid once the
// Authenticated event has fired.
func (c *Conn) JID() jid.JID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundJID
}

// State returns the connection's current negotiation state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Disconnect closes the connection cleanly: it disables reconnection, stops
// the ping supervisor, cancels any pending IQ futures, closes the transport,
// and emits ConnectionClosed (spec §4.9 "explicit, clean Disconnect never
// triggers reconnection").
func (c *Conn) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		if c.reconnectSup != nil {
			c.reconnectSup.Disable()
		}
		if c.pingSup != nil {
			c.pingSup.Stop()
		}
		c.correlator.CancelAll()
		if c.netConn != nil {
			_ = c.framer.WriteRaw(stream.CloseTag)
			err = c.netConn.Close()
		}
		close(c.closed)
		c.dispatcher.Dispatch(ConnectionClosed())
	})
	return err
}

// teardown closes the transport after a fatal negotiation or read error,
// cancels pending IQs, and emits ConnectionClosedOnError, handing off to the
// reconnection supervisor if one is configured (spec §4.9).
func (c *Conn) teardown(cause error) {
	c.correlator.CancelAll()
	if c.pingSup != nil {
		c.pingSup.Stop()
	}
	if c.netConn != nil {
		c.netConn.Close()
	}
	c.dispatcher.Dispatch(ConnectionClosedOnError(cause))
	if c.reconnectSup != nil {
		c.reconnectSup.OnClosedOnError()
	}
}

// teardownClean handles the peer closing the stream in an orderly way
// (</stream:stream> with no preceding error); this still counts as an
// error-close for reconnection purposes, since the local side never asked to
// disconnect.
func (c *Conn) teardownClean() {
	c.teardown(newErrorf(NetworkError, "peer closed the stream"))
}

// reconnectOnce is the ReconnectSupervisor's connect callback: it resets the
// state machine to Connecting and re-runs negotiation in place on this same
// Conn, preserving registered listeners and handlers across the retry (spec
// §4.9).
func (c *Conn) reconnectOnce() error {
	c.resetState()
	c.secured = c.cfg.DirectTLS
	c.authenticated = false

	ctx := context.Background()
	if err := c.connect(ctx); err != nil {
		return err
	}
	c.dispatcher.Dispatch(Connected())
	if err := c.negotiate(ctx); err != nil {
		return err
	}
	c.dispatcher.Dispatch(Authenticated(true))
	if c.cfg.SendPresence {
		if err := c.SendStanza(stanza.Presence{}); err != nil {
			return err
		}
	}
	if c.pingSup != nil {
		c.pingSup.Start()
	}
	go c.readLoop()
	return nil
}
