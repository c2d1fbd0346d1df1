// Package cog implements a small channel-oriented runtime for composing
// stateful concurrent agents ("cogs") into dataflow graphs. A cog owns
// private context, advances it on a dedicated worker via a user-supplied
// transition function, and exposes a single bidirectional endpoint so cogs
// compose with ordinary channel operations.
package cog

import (
	"sync"
	"sync/atomic"
)

// Transform maps one value handed to Send into zero or more values to
// actually enqueue, applied at send time. Returning zero values drops the
// input (filtering); returning more than one expands it. An error routes
// to the channel's FaultHandler.
type Transform func(v any) ([]any, error)

// FaultHandler converts a Transform error into either a replacement value
// (keep=true, enqueue value) or a drop (keep=false, enqueue nothing). A
// channel with no FaultHandler closes on the first Transform error.
type FaultHandler func(err error) (value any, keep bool)

// Buffer selects a Channel's buffering discipline. Construct one with
// Synchronous, Fixed or Sliding1.
type Buffer struct {
	capacity int
	sliding  bool
}

// Synchronous returns a capacity-0 buffer: Send suspends until a matching
// Receive is waiting, and vice versa.
func Synchronous() Buffer { return Buffer{} }

// Fixed returns a bounded buffer of capacity n. Send suspends once the
// buffer is full. A negative n is treated as 0.
func Fixed(n int) Buffer {
	if n < 0 {
		n = 0
	}
	return Buffer{capacity: n}
}

// Sliding1 returns a buffer of size one that never blocks Send: a new
// value replaces whatever is currently held, silently dropping it. Use
// this for subscribers that would rather see stale data skipped than
// back-pressure the source.
func Sliding1() Buffer { return Buffer{sliding: true} }

// ChannelOption configures optional Channel behavior at construction.
type ChannelOption func(*Channel)

// WithTransform installs a transform applied to every value passed to
// Send or TrySend, before it reaches the buffer.
func WithTransform(t Transform) ChannelOption {
	return func(c *Channel) { c.transform = t }
}

// WithFaultHandler installs the handler invoked when the transform
// returns an error.
func WithFaultHandler(h FaultHandler) ChannelOption {
	return func(c *Channel) { c.fault = h }
}

// Channel is an ordered FIFO of messages with blocking and non-blocking
// send/receive, idempotent close, and an optional transform-on-enqueue
// hook with a fault handler. It implements spec §4.1's buffer disciplines:
// Synchronous and Fixed are backed directly by a native Go channel (which
// already gives FIFO order, rendezvous-on-zero-capacity, and blocking
// send/receive for free); Sliding1 cannot be expressed with a native
// channel and is backed by a small mutex/condvar cell instead.
type Channel struct {
	transform Transform
	fault     FaultHandler

	native chan any      // nil when sliding is in use
	done   chan struct{} // closed by Close to unblock parked native sends/receives
	closeOnce sync.Once
	closed    atomic.Bool

	sliding *slidingCell // nil when native is in use
}

// NewChannel creates a Channel with the given buffering discipline and
// options.
func NewChannel(buf Buffer, opts ...ChannelOption) *Channel {
	c := &Channel{done: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}
	if buf.sliding {
		c.sliding = newSlidingCell()
	} else {
		c.native = make(chan any, buf.capacity)
	}
	return c
}

// Send applies the channel's transform (if any) and enqueues the result,
// blocking until the destination has room or a receiver is ready. It
// returns false if the channel is, or becomes, closed before the value
// is accepted; a closed-channel send is non-fatal, per spec §7.3 — the
// caller decides what to do next.
func (c *Channel) Send(v any) bool {
	return c.send(v, true)
}

// TrySend is the non-blocking form of Send: it returns false immediately
// if the value cannot be accepted right now (full, no receiver waiting,
// or closed) instead of suspending.
func (c *Channel) TrySend(v any) bool {
	return c.send(v, false)
}

func (c *Channel) send(v any, block bool) bool {
	if c.closed.Load() {
		return false
	}
	values, err := c.applyTransform(v)
	if err != nil {
		return c.handleFault(err, block)
	}
	if len(values) == 0 {
		// Filtered out: nothing to enqueue, but the send itself wasn't
		// refused by a closed channel.
		return !c.closed.Load()
	}
	for _, val := range values {
		if !c.enqueue(val, block) {
			return false
		}
	}
	return true
}

func (c *Channel) applyTransform(v any) ([]any, error) {
	if c.transform == nil {
		return []any{v}, nil
	}
	return c.transform(v)
}

func (c *Channel) handleFault(err error, block bool) bool {
	if c.fault == nil {
		c.Close()
		return false
	}
	val, keep := c.fault(err)
	if !keep {
		return !c.closed.Load()
	}
	return c.enqueue(val, block)
}

func (c *Channel) enqueue(v any, block bool) bool {
	if c.sliding != nil {
		return c.sliding.put(v)
	}
	if block {
		select {
		case c.native <- v:
			return true
		case <-c.done:
			return false
		}
	}
	select {
	case c.native <- v:
		return true
	default:
		return false
	}
}

// Receive blocks for the next value, or for end-of-stream once the
// channel has been closed and its buffer has drained.
func (c *Channel) Receive() (any, bool) {
	if c.sliding != nil {
		return c.sliding.get()
	}
	select {
	case v := <-c.native:
		return v, true
	case <-c.done:
		// Close fired; give any value still sitting in the buffer one
		// more chance before reporting end-of-stream. native is never
		// closed directly (only done is), so repeated calls here drain
		// the buffer fully across however many Receive calls it takes.
		select {
		case v := <-c.native:
			return v, true
		default:
			return nil, false
		}
	}
}

// TryReceive is the non-blocking form of Receive.
func (c *Channel) TryReceive() (any, bool) {
	if c.sliding != nil {
		return c.sliding.tryGet()
	}
	select {
	case v := <-c.native:
		return v, true
	default:
		return nil, false
	}
}

// Close closes the channel. Idempotent. Pending and future receivers
// observe end-of-stream once any buffered values have drained.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.sliding != nil {
			c.sliding.close()
		}
	})
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	return c.closed.Load()
}

// slidingCell holds at most one value. Send never blocks: a new value
// overwrites whatever is currently held. Grounded on the mutex+flag
// subscriber state used throughout the donor's broadcast-style code
// (internal/events/bus.go), adapted here to a condition variable since,
// unlike a drop-on-full broadcast, a sliding receiver must still be able
// to block for the next value rather than poll.
type slidingCell struct {
	mu     sync.Mutex
	cond   *sync.Cond
	has    bool
	value  any
	closed bool
}

func newSlidingCell() *slidingCell {
	c := &slidingCell{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *slidingCell) put(v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.value = v
	c.has = true
	c.cond.Signal()
	return true
}

func (c *slidingCell) get() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.has && !c.closed {
		c.cond.Wait()
	}
	if !c.has {
		return nil, false
	}
	v := c.value
	c.value = nil
	c.has = false
	return v, true
}

func (c *slidingCell) tryGet() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.has {
		return nil, false
	}
	v := c.value
	c.value = nil
	c.has = false
	return v, true
}

func (c *slidingCell) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cond.Broadcast()
}
