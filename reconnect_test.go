package xmpp

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelayNominalSchedule(t *testing.T) {
	base := 2 * time.Second
	max := 60 * time.Second
	want := []time.Duration{2, 4, 8, 16, 32, 60, 60, 60, 60, 60}
	for attempt, w := range want {
		d := backoffDelay(attempt, base, max)
		wantSeconds := w
		require.GreaterOrEqual(t, d, wantSeconds*time.Second)
		bound := wantSeconds * time.Second / 4
		if bound < time.Second {
			bound = time.Second
		}
		require.Less(t, d, wantSeconds*time.Second+bound)
	}
}

func TestReconnectSupervisorRetriesUntilSuccess(t *testing.T) {
	var calls int32
	sup := NewReconnectSupervisor(time.Millisecond, 2*time.Millisecond, func() error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errors.New("still down")
		}
		return nil
	})

	sup.OnClosedOnError()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 3
	}, 5*time.Second, time.Millisecond)
	require.Equal(t, 0, sup.Attempt())
}

func TestReconnectSupervisorGivesUpAfterMax(t *testing.T) {
	var calls int32
	sup := NewReconnectSupervisor(time.Millisecond, time.Millisecond, func() error {
		atomic.AddInt32(&calls, 1)
		return errors.New("still down")
	})

	sup.OnClosedOnError()

	require.Eventually(t, func() bool {
		return sup.Attempt() >= MaxReconnectAttempts
	}, 15*time.Second, time.Millisecond)

	before := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, before, atomic.LoadInt32(&calls), "expected no more attempts once the max is reached")
}

func TestReconnectSupervisorDisableStopsScheduledAttempt(t *testing.T) {
	var calls int32
	sup := NewReconnectSupervisor(5*time.Millisecond, 10*time.Millisecond, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	sup.OnClosedOnError()
	sup.Disable()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	sup.OnClosedOnError()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls), "expected OnClosedOnError to fail fast once disabled")
}
