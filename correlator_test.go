package xmpp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

func TestCorrelatorMatchesResponse(t *testing.T) {
	c := NewCorrelator()
	future, err := c.Register("r1", time.Second)
	require.NoError(t, err)

	require.True(t, c.Deliver(stanza.IQ{ID: "r1", Type: stanza.ResultIQ}))

	iq, err := future.Wait()
	require.NoError(t, err)
	require.Equal(t, "r1", iq.ID)
}

func TestCorrelatorOutOfOrderResponses(t *testing.T) {
	c := NewCorrelator()
	futures := make(map[string]Future, 5)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		f, err := c.Register(id, time.Second)
		require.NoError(t, err)
		futures[id] = f
	}

	order := []string{"e", "a", "c", "b", "d"}
	for _, id := range order {
		require.True(t, c.Deliver(stanza.IQ{ID: id, Type: stanza.ResultIQ}))
	}

	for id, f := range futures {
		iq, err := f.Wait()
		require.NoError(t, err)
		require.Equal(t, id, iq.ID)
	}
}

func TestCorrelatorTimeout(t *testing.T) {
	c := NewCorrelator()
	future, err := c.Register("slow", 10*time.Millisecond)
	require.NoError(t, err)

	_, err = future.Wait()
	require.Error(t, err)
	xerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, TimeoutError, xerr.Kind)
}

func TestCorrelatorLateArrivalAfterTimeoutIsDropped(t *testing.T) {
	c := NewCorrelator()
	future, err := c.Register("late", 5*time.Millisecond)
	require.NoError(t, err)
	_, err = future.Wait()
	require.Error(t, err)

	require.False(t, c.Deliver(stanza.IQ{ID: "late", Type: stanza.ResultIQ}))
}

func TestCorrelatorCancelAll(t *testing.T) {
	c := NewCorrelator()
	f1, err := c.Register("c1", time.Second)
	require.NoError(t, err)
	f2, err := c.Register("c2", time.Second)
	require.NoError(t, err)

	c.CancelAll()

	for _, f := range []Future{f1, f2} {
		_, err := f.Wait()
		require.Error(t, err)
		xerr, ok := err.(*Error)
		require.True(t, ok)
		require.Equal(t, CancellationError, xerr.Kind)
	}
}

func TestCorrelatorRejectsEmptyID(t *testing.T) {
	c := NewCorrelator()
	_, err := c.Register("", time.Second)
	require.ErrorIs(t, err, stanza.ErrEmptyIQID)
}

func TestCorrelatorIgnoresRequestTypeIQ(t *testing.T) {
	c := NewCorrelator()
	_, err := c.Register("g1", time.Second)
	require.NoError(t, err)
	require.False(t, c.Deliver(stanza.IQ{ID: "g1", Type: stanza.GetIQ}))
}

func TestCorrelatorDuplicateIDRejected(t *testing.T) {
	c := NewCorrelator()
	_, err := c.Register("dup", time.Second)
	require.NoError(t, err)
	_, err = c.Register("dup", time.Second)
	require.Error(t, err)
}
