package cog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// levelTrace mirrors internal/config.LevelTrace (slog.Level(-8)), one
// level below slog.LevelDebug. Defined independently rather than
// imported: the core package depends only on the standard library and
// github.com/google/uuid, never on this module's internal/ packages.
const levelTrace = slog.Level(-8)

// Transition advances a cog's context by one step given the current
// context and an input message, producing the new context and an output
// value. Returning a non-nil error is a transition fault (spec §4.4 step
// 4, §7.1): the returned context and output are discarded, the context
// is left unchanged, and the error is converted into an output record by
// the cog's fault handler instead.
//
// A transition must not be called concurrently with itself for the same
// cog; the worker enforces this by construction (spec §5's serial-worker
// invariant), not by locking inside the transition itself.
type Transition func(ctx, msg any) (newCtx any, output any, err error)

// TransitionFaultHandler converts a caught transition fault into the
// value placed on the worker's output queue. The default, used when
// Construct receives none, wraps the fault into an ErrorEnvelope.
type TransitionFaultHandler func(cause error, input any) any

func defaultTransitionFaultHandler(cause error, input any) any {
	return newErrorEnvelope(cause, input)
}

// contextBox wraps a context value behind a pointer so Cog can swap it
// with a single atomic pointer store, per spec §4.4's snapshot-atomicity
// requirement ("a word-sized atomic pointer... over an immutable
// context").
type contextBox struct{ v any }

// contextCell is the atomic cell a Cog's context lives in. Fork shares
// this cell by reference (so parent and fork see the same snapshots)
// unless given a context-mapper, in which case the fork allocates its
// own cell (spec §4.5, §9 "atoms as context cells").
type contextCell = atomic.Pointer[contextBox]

// cogConfig collects Construct's optional parameters.
type cogConfig struct {
	outputBuffer    Buffer
	outputTransform Transform
	outputFault     FaultHandler
	onFault         TransitionFaultHandler
	logger          *slog.Logger
	id              string
}

// CogOption configures an optional Construct parameter.
type CogOption func(*cogConfig)

// WithOutputBuffer sets the buffering discipline of the worker's output
// queue (and therefore of the broadcast source every subscriber reads
// from uniformly). Defaults to Synchronous.
func WithOutputBuffer(b Buffer) CogOption {
	return func(c *cogConfig) { c.outputBuffer = b }
}

// WithOutputTransform installs a transform applied to every value the
// worker places on the output queue, before it reaches the broadcast.
func WithOutputTransform(t Transform) CogOption {
	return func(c *cogConfig) { c.outputTransform = t }
}

// WithOutputFaultHandler installs the handler for faults raised by the
// output transform (distinct from TransitionFaultHandler, which handles
// faults raised by the transition itself).
func WithOutputFaultHandler(h FaultHandler) CogOption {
	return func(c *cogConfig) { c.outputFault = h }
}

// WithOnFault installs the transition fault handler. Defaults to one
// that wraps the fault into an ErrorEnvelope.
func WithOnFault(h TransitionFaultHandler) CogOption {
	return func(c *cogConfig) { c.onFault = h }
}

// WithLogger sets the structured logger the worker uses. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) CogOption {
	return func(c *cogConfig) { c.logger = l }
}

// WithID sets the identifier attached to this cog's log lines. Defaults
// to a generated UUID.
func WithID(id string) CogOption {
	return func(c *cogConfig) { c.id = id }
}

// Cog owns private context, advances it via a transition run on a
// dedicated worker, and publishes every output through a broadcast. It
// exposes an IoEndpoint so it composes with ordinary channel operations:
// Send writes to the worker's input, Receive reads the primary
// subscription of its own broadcast.
type Cog struct {
	id string

	ctx *contextCell

	input  *Channel
	output *Channel
	io     *IoEndpoint
	bcast  *Broadcast

	transition Transition
	onFault    TransitionFaultHandler

	log        *slog.Logger
	workerDone chan struct{}
}

// Construct creates a cog with the given initial context and transition.
// transition must not be nil — per spec §7.4, that is a programmer fault
// and panics synchronously rather than surfacing as a constructor error.
func Construct(initial any, transition Transition, opts ...CogOption) *Cog {
	if transition == nil {
		panic("cog: Construct requires a non-nil transition")
	}

	cfg := &cogConfig{
		outputBuffer: Synchronous(),
		onFault:      defaultTransitionFaultHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	c := &Cog{
		id:         id,
		ctx:        new(contextCell),
		input:      NewChannel(Synchronous()),
		transition: transition,
		onFault:    cfg.onFault,
		log:        logger,
		workerDone: make(chan struct{}),
	}
	c.ctx.Store(&contextBox{v: initial})

	var outOpts []ChannelOption
	if cfg.outputTransform != nil {
		outOpts = append(outOpts, WithTransform(cfg.outputTransform))
	}
	if cfg.outputFault != nil {
		outOpts = append(outOpts, WithFaultHandler(cfg.outputFault))
	}
	c.output = NewChannel(cfg.outputBuffer, outOpts...)
	c.bcast = NewBroadcast(c.output)

	primary := NewChannel(Synchronous())
	c.bcast.Subscribe(primary, true)
	c.io = NewIoEndpoint(c.input, primary)

	c.log.Debug("cog constructed", "cog_id", c.id)
	go c.run()
	return c
}

func (c *Cog) run() {
	defer close(c.workerDone)
	defer c.output.Close()
	defer c.log.Debug("cog worker exiting", "cog_id", c.id)
	for {
		msg, ok := c.input.Receive()
		if !ok {
			return
		}
		c.log.Log(context.Background(), levelTrace, "cog worker received", "cog_id", c.id)
		c.step(msg)
	}
}

func (c *Cog) step(msg any) {
	cur := c.ctx.Load().v
	newCtx, output, err := c.invoke(cur, msg)
	if err != nil {
		c.log.Warn("cog transition fault", "cog_id", c.id, "error", err)
		c.output.Send(c.onFault(err, msg))
		return
	}
	c.ctx.Store(&contextBox{v: newCtx})
	c.log.Log(context.Background(), levelTrace, "cog worker sending output", "cog_id", c.id)
	c.output.Send(output)
}

// invoke calls the user transition, recovering a panic and treating it
// the same as a returned error per spec §7.1.
func (c *Cog) invoke(cur, msg any) (newCtx, output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cog: transition panicked: %v", r)
		}
	}()
	return c.transition(cur, msg)
}

// ID returns this cog's identifier, used in its log lines.
func (c *Cog) ID() string { return c.id }

// Endpoint returns the cog's IoEndpoint: the same {in, out} pair Send,
// Receive, Close and Closed delegate to. Combinators and Fork use this to
// compose cogs as plain channels.
func (c *Cog) Endpoint() *IoEndpoint { return c.io }

// Broadcast returns the cog's broadcast, so callers can Subscribe
// additional taps beyond the primary output endpoint.
func (c *Cog) Broadcast() *Broadcast { return c.bcast }

// Send writes a message to the cog's input queue.
func (c *Cog) Send(v any) bool { return c.io.Send(v) }

// TrySend is the non-blocking form of Send.
func (c *Cog) TrySend(v any) bool { return c.io.TrySend(v) }

// Receive reads the next value from the cog's primary output
// subscription.
func (c *Cog) Receive() (any, bool) { return c.io.Receive() }

// TryReceive is the non-blocking form of Receive.
func (c *Cog) TryReceive() (any, bool) { return c.io.TryReceive() }

// Snapshot returns the current context value. Lock-free: a single atomic
// pointer load over an immutable box, reflecting either the initial
// context or the result of some completed transition, never a partial
// value (spec §4.4 "snapshot semantics").
func (c *Cog) Snapshot() any { return c.ctx.Load().v }

// Subscribe registers an additional subscriber to this cog's broadcast.
func (c *Cog) Subscribe(sub *Channel, closeOnEnd bool) Subscription {
	return c.bcast.Subscribe(sub, closeOnEnd)
}

// Unsubscribe removes a subscriber registered with Subscribe.
func (c *Cog) Unsubscribe(sub Subscription) { c.bcast.Unsubscribe(sub) }

// Close closes the cog's input. The worker drains any in-flight
// transition, then closes its output queue, which closes every
// close-on-end subscriber including the primary output endpoint. Closing
// the primary endpoint directly here, instead, would race that drain: a
// transition still in flight when Close is called would have its output
// dropped when the broadcast pump found the primary already closed.
// Idempotent.
func (c *Cog) Close() { c.io.In().Close() }

// Closed reports whether Close has been called.
func (c *Cog) Closed() bool { return c.io.Closed() }

// Done returns a channel closed once the worker goroutine has exited.
func (c *Cog) Done() <-chan struct{} { return c.workerDone }
