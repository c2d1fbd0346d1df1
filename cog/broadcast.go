package cog

import "sync"

// Subscription is the handle returned by Broadcast.Subscribe, used to
// unsubscribe later.
type Subscription struct {
	ch *Channel
}

// Broadcast fans every value received from its source channel out to a
// dynamic set of subscriber channels. A dedicated pump receives one value
// from the source at a time and forwards it to every current subscriber,
// suspending until each accepts — a slow subscriber back-pressures the
// whole broadcast. Subscribers that can't tolerate that register a
// Sliding1 or Fixed channel instead of a Synchronous one.
type Broadcast struct {
	source *Channel

	mu   sync.RWMutex
	subs map[*Channel]bool // value: closeOnEnd

	done chan struct{}
}

// NewBroadcast starts the pump goroutine and returns a Broadcast reading
// from source.
func NewBroadcast(source *Channel) *Broadcast {
	b := &Broadcast{
		source: source,
		subs:   make(map[*Channel]bool),
		done:   make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *Broadcast) pump() {
	defer close(b.done)
	for {
		v, ok := b.source.Receive()
		if !ok {
			b.end()
			return
		}
		// Snapshot the subscriber set for this value: a subscriber added
		// after this dequeue may miss v but sees every value after it,
		// per spec §4.3 ("subscribing is atomic relative to pump
		// iterations").
		b.mu.RLock()
		targets := make([]*Channel, 0, len(b.subs))
		for ch := range b.subs {
			targets = append(targets, ch)
		}
		b.mu.RUnlock()

		for _, ch := range targets {
			if !ch.Send(v) {
				// The subscriber closed on its own; stop wasting cycles
				// delivering to it.
				b.Unsubscribe(Subscription{ch: ch})
			}
		}
	}
}

func (b *Broadcast) end() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, closeOnEnd := range b.subs {
		if closeOnEnd {
			ch.Close()
		}
	}
	b.subs = make(map[*Channel]bool)
}

// Subscribe registers sub to receive a copy of every value the source
// produces from this point on. If closeOnEnd is true, sub is closed when
// the source ends; otherwise sub is simply dropped from the subscriber
// set, left open for the caller to manage.
func (b *Broadcast) Subscribe(sub *Channel, closeOnEnd bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = closeOnEnd
	return Subscription{ch: sub}
}

// Unsubscribe removes sub from the subscriber set without closing it.
func (b *Broadcast) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.ch)
}

// SubscriberCount reports the current number of subscribers.
func (b *Broadcast) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Done returns a channel closed once the source has ended and the pump
// has exited.
func (b *Broadcast) Done() <-chan struct{} {
	return b.done
}
