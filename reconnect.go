package xmpp

import (
	"math/rand"
	"sync"
	"time"
)

// MaxReconnectAttempts bounds the reconnection supervisor: once this many
// attempts have been scheduled without a success, OnClosedOnError schedules
// nothing further. The supervisor is not removed from its Conn.
const MaxReconnectAttempts = 10

// backoffDelay computes the nominal (pre-jitter) delay for the given
// 0-indexed attempt, then adds uniform jitter in [0, max(1, d/4)) (spec
// §4.9, and the worked example in spec §8 "Reconnection backoff").
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	nominal := base << attempt
	if nominal <= 0 || nominal > max {
		nominal = max
	}
	jitterBound := nominal / 4
	if jitterBound < time.Second {
		jitterBound = time.Second
	}
	return nominal + time.Duration(rand.Int63n(int64(jitterBound)))
}

// ReconnectSupervisor schedules reconnection attempts with exponential
// backoff after an error-close, but not after an explicit, clean
// disconnect (spec §4.9).
type ReconnectSupervisor struct {
	base    time.Duration
	max     time.Duration
	connect func() error

	mu       sync.Mutex
	attempt  int
	disabled bool
	timer    *time.Timer
}

// NewReconnectSupervisor returns a supervisor that calls connect to retry,
// using base/max as the backoff bounds.
func NewReconnectSupervisor(base, max time.Duration, connect func() error) *ReconnectSupervisor {
	return &ReconnectSupervisor{base: base, max: max, connect: connect}
}

// OnClosedOnError schedules the next attempt; it is a no-op if the
// supervisor has been disabled or has exhausted MaxReconnectAttempts.
func (r *ReconnectSupervisor) OnClosedOnError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled || r.attempt >= MaxReconnectAttempts {
		return
	}
	delay := backoffDelay(r.attempt, r.base, r.max)
	r.attempt++
	r.timer = time.AfterFunc(delay, r.attemptConnect)
}

func (r *ReconnectSupervisor) attemptConnect() {
	r.mu.Lock()
	disabled := r.disabled
	r.mu.Unlock()
	if disabled {
		return
	}
	if err := r.connect(); err != nil {
		r.OnClosedOnError()
		return
	}
	r.mu.Lock()
	r.attempt = 0
	r.mu.Unlock()
}

// Disable cancels any scheduled attempt and makes the supervisor fail fast
// on any future OnClosedOnError (spec §4.9 "Attempts fail fast under
// explicit disable()").
func (r *ReconnectSupervisor) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = true
	if r.timer != nil {
		r.timer.Stop()
	}
}

// Attempt returns the number of attempts made so far, for tests and
// diagnostics.
func (r *ReconnectSupervisor) Attempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}
