package eventbus

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishFanOut(t *testing.T) {
	b := New()
	defer b.Close()
	a := b.Subscribe()
	c := b.Subscribe()
	b.Publish("hello")
	if got := recv(t, a); got != "hello" {
		t.Fatalf("subscriber a got %v", got)
	}
	if got := recv(t, c); got != "hello" {
		t.Fatalf("subscriber c got %v", got)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBuffered(1)
	defer b.Close()
	ch := b.Subscribe()
	b.Publish(1)
	b.Publish(2)
	if got := recv(t, ch); got != 1 {
		t.Fatalf("expected first event, got %v", got)
	}
	if b.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", b.Dropped())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	b.Publish("after") // must not panic
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	b.Close()
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Close")
	}
	b.Publish("late")
	if late := b.Subscribe(); func() bool { _, ok := <-late; return ok }() {
		t.Fatal("subscribing after Close must return a closed channel")
	}
}
