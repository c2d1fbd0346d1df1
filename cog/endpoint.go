package cog

// Sender, Receiver, Closer and Subscribable are the flat capability
// interfaces a cog handle satisfies by delegating to an embedded
// IoEndpoint and Broadcast, per spec §9's "polymorphism without
// inheritance" note: no type hierarchy, just small interfaces a caller
// composes against.
type Sender interface {
	Send(v any) bool
	TrySend(v any) bool
}

type Receiver interface {
	Receive() (any, bool)
	TryReceive() (any, bool)
}

type Closer interface {
	Close()
	Closed() bool
}

type Subscribable interface {
	Subscribe(sub *Channel, closeOnEnd bool) Subscription
}

// IoEndpoint pairs an input channel (writes go here) with an output
// channel (reads come from here) and presents them as one handle. This is
// the uniform shape every cog and combinator returns.
type IoEndpoint struct {
	in  *Channel
	out *Channel
}

// NewIoEndpoint pairs the given input and output channels into one
// handle.
func NewIoEndpoint(in, out *Channel) *IoEndpoint {
	return &IoEndpoint{in: in, out: out}
}

// In returns the endpoint's input channel.
func (e *IoEndpoint) In() *Channel { return e.in }

// Out returns the endpoint's output channel.
func (e *IoEndpoint) Out() *Channel { return e.out }

// Send writes to the endpoint's input.
func (e *IoEndpoint) Send(v any) bool { return e.in.Send(v) }

// TrySend is the non-blocking form of Send.
func (e *IoEndpoint) TrySend(v any) bool { return e.in.TrySend(v) }

// Receive reads from the endpoint's output.
func (e *IoEndpoint) Receive() (any, bool) { return e.out.Receive() }

// TryReceive is the non-blocking form of Receive.
func (e *IoEndpoint) TryReceive() (any, bool) { return e.out.TryReceive() }

// Close closes both the input and output channels. Idempotent, and safe
// to call if either side is already closed.
func (e *IoEndpoint) Close() {
	e.in.Close()
	e.out.Close()
}

// Closed reports whether the endpoint's input is closed.
func (e *IoEndpoint) Closed() bool { return e.in.Closed() }
