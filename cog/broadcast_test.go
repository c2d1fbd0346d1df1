package cog

import (
	"testing"
	"time"
)

func TestBroadcast_FidelityToAllSubscribers(t *testing.T) {
	t.Parallel()
	source := NewChannel(Fixed(4))
	b := NewBroadcast(source)

	s1 := NewChannel(Fixed(4))
	s2 := NewChannel(Fixed(4))
	b.Subscribe(s1, true)
	b.Subscribe(s2, true)

	source.Send("v1")
	source.Send("v2")
	source.Close()

	for _, s := range []*Channel{s1, s2} {
		v, ok := s.Receive()
		if !ok || v != "v1" {
			t.Fatalf("subscriber first value = %v, %v, want v1, true", v, ok)
		}
		v, ok = s.Receive()
		if !ok || v != "v2" {
			t.Fatalf("subscriber second value = %v, %v, want v2, true", v, ok)
		}
	}

	waitFor(t, time.Second, s1.Closed, "close-on-end subscriber should close when source ends")
	waitFor(t, time.Second, s2.Closed, "close-on-end subscriber should close when source ends")
}

func TestBroadcast_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	source := NewChannel(Fixed(4))
	b := NewBroadcast(source)

	s := NewChannel(Fixed(4))
	sub := b.Subscribe(s, false)

	source.Send("before")
	v, _ := s.Receive()
	if v != "before" {
		t.Fatalf("got %v, want before", v)
	}

	b.Unsubscribe(sub)
	source.Send("after")
	source.Close()

	waitFor(t, time.Second, func() bool { return b.SubscriberCount() == 0 }, "subscriber set should be empty")
	if _, ok := s.TryReceive(); ok {
		t.Fatal("unsubscribed channel should not receive further values")
	}
	if s.Closed() {
		t.Fatal("unsubscribe without close-on-end must not close the subscriber")
	}
}

func TestBroadcast_LateSubscriberMissesPastValues(t *testing.T) {
	t.Parallel()
	source := NewChannel(Synchronous())
	b := NewBroadcast(source)

	s0 := NewChannel(Fixed(4))
	b.Subscribe(s0, true)
	source.Send("v1")
	s0.Receive() // ensure the pump has consumed v1 before subscribing s1

	s1 := NewChannel(Fixed(4))
	b.Subscribe(s1, true)
	source.Send("v2")
	source.Close()

	v, ok := s1.Receive()
	if !ok || v != "v2" {
		t.Fatalf("late subscriber first value = %v, %v, want v2, true", v, ok)
	}
}
