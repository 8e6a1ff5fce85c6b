package ping

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lesswhite810/xmpp-client-sub000/jid"
	"github.com/lesswhite810/xmpp-client-sub000/stanza"
)

type fakeFuture struct {
	err error
}

func (f fakeFuture) Wait() (stanza.IQ, error) { return stanza.IQ{}, f.err }

type fakeSender struct {
	calls int32
	err   error
}

func (s *fakeSender) SendIQAsync(to jid.JID, payload *stanza.Element, timeout time.Duration) (Future, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return fakeFuture{}, nil
}

func TestSupervisorSendsOnInterval(t *testing.T) {
	sender := &fakeSender{}
	domain := jid.MustParse("example.com")
	sup := NewSupervisor(sender, domain, 5*time.Millisecond, nil)
	sup.Start()
	defer sup.Stop()

	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&sender.calls) == 0 {
		t.Error("expected at least one ping to have been sent")
	}
}

func TestSupervisorStopCancelsSchedule(t *testing.T) {
	sender := &fakeSender{}
	domain := jid.MustParse("example.com")
	sup := NewSupervisor(sender, domain, 5*time.Millisecond, nil)
	sup.Start()
	sup.Stop()

	before := atomic.LoadInt32(&sender.calls)
	time.Sleep(20 * time.Millisecond)
	after := atomic.LoadInt32(&sender.calls)
	if after != before {
		t.Errorf("expected no further sends after Stop, got %d -> %d", before, after)
	}
}

func TestSupervisorStartTwiceIsNoOp(t *testing.T) {
	sender := &fakeSender{}
	domain := jid.MustParse("example.com")
	sup := NewSupervisor(sender, domain, time.Second, nil)
	sup.Start()
	sup.Start()
	defer sup.Stop()
	if !sup.running {
		t.Error("expected the supervisor to be running")
	}
}

func TestHandlerRepliesEmpty(t *testing.T) {
	payload, err := Handler.HandleIQ(stanza.IQ{ID: "1", Type: stanza.GetIQ})
	if err != nil {
		t.Fatal(err)
	}
	if payload != nil {
		t.Errorf("expected a nil payload for the ping result, got %+v", payload)
	}
}

func TestSupervisorLogsSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	domain := jid.MustParse("example.com")
	var logged int32
	sup := NewSupervisor(sender, domain, 5*time.Millisecond, func(string, ...interface{}) {
		atomic.AddInt32(&logged, 1)
	})
	sup.Start()
	defer sup.Stop()
	time.Sleep(15 * time.Millisecond)
	if atomic.LoadInt32(&sender.calls) == 0 {
		t.Error("expected the supervisor to have attempted a send")
	}
	if atomic.LoadInt32(&logged) == 0 {
		t.Error("expected the send failure to be logged")
	}
}
