// Package ping implements XEP-0199: XMPP Ping, both the keep-alive
// supervisor that periodically probes the server and the built-in handler
// that answers a server-initiated probe.
package ping

import (
	"encoding/xml"
	"sync"
	"time"

	"github.com/lesswhite810/xmpp-client-sub000/internal/ns"
	"github.com/lesswhite810/xmpp-client-sub000/jid"
	"github.com/lesswhite810/xmpp-client-sub000/mux"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

// ElementName identifies the <ping/> payload (XEP-0199 §2).
var ElementName = xml.Name{Space: ns.Ping, Local: "ping"}

// Sender is the subset of the connection core the Supervisor needs: the
// ability to fire an IQ-get and await its result asynchronously.
type Sender interface {
	SendIQAsync(to jid.JID, payload *stanza.Element, timeout time.Duration) (Future, error)
}

// Future matches the shape of xmpp.Future without importing the root
// package, keeping this package reusable outside a single Client
// implementation.
type Future interface {
	Wait() (stanza.IQ, error)
}

// Supervisor sends a keep-alive ping every interval while active, per spec
// §4.8. Start it on the Authenticated event; call Stop on any close event.
type Supervisor struct {
	sender   Sender
	domain   jid.JID
	interval time.Duration
	logf     func(string, ...interface{})

	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	running bool
}

// NewSupervisor returns a Supervisor that pings domain every interval
// using sender. A nil logf discards failure warnings.
func NewSupervisor(sender Sender, domain jid.JID, interval time.Duration, logf func(string, ...interface{})) *Supervisor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Supervisor{sender: sender, domain: domain, interval: interval, logf: logf}
}

// Start activates the periodic ping loop. Calling Start while already
// running is a no-op.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	go s.loop(s.ticker, s.done)
}

// Stop deactivates the supervisor, canceling the scheduled task (spec
// §4.8 "Canceling the supervisor MUST cancel the scheduled task").
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.done)
}

func (s *Supervisor) loop(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.ping()
		}
	}
}

func (s *Supervisor) ping() {
	future, err := s.sender.SendIQAsync(s.domain, &stanza.Element{XMLName: ElementName}, 0)
	if err != nil {
		s.logf("ping: failed to send keep-alive: %v", err)
		return
	}
	if _, err := future.Wait(); err != nil {
		s.logf("ping: keep-alive failed: %v", err)
	}
}

// Handler replies to a server-initiated ping with an empty result IQ
// (spec §4.8 "Server-side ping handler").
var Handler = mux.IQHandlerFunc(func(iq stanza.IQ) (*stanza.Element, error) {
	return nil, nil
})
