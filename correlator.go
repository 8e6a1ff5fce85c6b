package xmpp

import (
	"sync"
	"time"

	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

// DefaultIQTimeout is the correlator's default per-call deadline (spec
// §4.5 "Timeout").
const DefaultIQTimeout = 30 * time.Second

// pendingIQ is an entry owned by the Correlator: created by Register,
// removed either by a matching response, a deadline fire, or CancelAll
// (spec §3 "Pending IQ").
type pendingIQ struct {
	id     string
	result chan<- iqResult
	timer  *time.Timer
}

type iqResult struct {
	iq  stanza.IQ
	err error
}

// Correlator matches outgoing IQ requests to their eventual result or
// error response by id, under a per-call timeout, with at-most-once
// completion per request (spec §4.5).
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingIQ
}

// NewCorrelator returns an empty Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*pendingIQ)}
}

// Future is returned by Register; call Wait to block for the result.
type Future struct {
	ch <-chan iqResult
}

// Wait blocks until the matching response arrives, the deadline fires, or
// the connection is closed, whichever happens first.
func (f Future) Wait() (stanza.IQ, error) {
	r := <-f.ch
	return r.iq, r.err
}

// Register enqueues a pending entry for iq.ID with the given deadline and
// returns the Future the caller awaits. It does not itself send the
// stanza; the caller is expected to write it after a successful Register,
// per spec §4.5 "atomically inserts a pending entry ... writes the
// stanza".
func (c *Correlator) Register(id string, timeout time.Duration) (Future, error) {
	if id == "" {
		return Future{}, stanza.ErrEmptyIQID
	}
	if timeout <= 0 {
		timeout = DefaultIQTimeout
	}

	ch := make(chan iqResult, 1)
	entry := &pendingIQ{id: id, result: ch}

	c.mu.Lock()
	if _, exists := c.pending[id]; exists {
		c.mu.Unlock()
		return Future{}, newErrorf(ProtocolError, "duplicate pending IQ id %q", id)
	}
	c.pending[id] = entry
	c.mu.Unlock()

	entry.timer = time.AfterFunc(timeout, func() {
		c.complete(id, iqResult{err: newErrorf(TimeoutError, "IQ %q timed out after %s", id, timeout)})
	})

	return Future{ch: ch}, nil
}

// Deliver routes an inbound IQ response to its pending entry, if any. It
// reports whether a pending entry matched and was completed.
func (c *Correlator) Deliver(iq stanza.IQ) bool {
	if !iq.Type.IsResponse() {
		return false
	}
	return c.complete(iq.ID, iqResult{iq: iq})
}

func (c *Correlator) complete(id string, result iqResult) bool {
	c.mu.Lock()
	entry, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.result <- result
	return true
}

// CancelAll completes every still-pending entry with a CancellationError,
// as happens when the connection closes (spec §4.5 "cancel_all").
func (c *Correlator) CancelAll() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingIQ)
	c.mu.Unlock()

	for _, entry := range pending {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.result <- iqResult{err: newError(CancellationError, nil)}
	}
}
