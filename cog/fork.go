package cog

import "github.com/google/uuid"

// forkConfig collects Fork's optional parameters. A zero value means:
// share the parent's context-cell, allocate a fresh IoEndpoint, and
// inherit the parent's transition.
type forkConfig struct {
	contextMapper func(any) any
	io            *IoEndpoint

	transitionSet bool // distinguishes "omitted" (inherit) from "nil" (passive)
	transition    Transition

	outputBuffer Buffer
}

// ForkOption configures an optional Fork parameter.
type ForkOption func(*forkConfig)

// WithContextMapper derives the fork's context from a snapshot of the
// parent's context, taken at fork time. Without this option the fork
// shares the parent's context-cell by reference.
func WithContextMapper(f func(parentContext any) any) ForkOption {
	return func(c *forkConfig) { c.contextMapper = f }
}

// WithIoEndpoint gives the fork an existing IoEndpoint instead of
// allocating a fresh pair. Extend uses this to splice an adapter onto an
// endpoint a caller already holds.
func WithIoEndpoint(io *IoEndpoint) ForkOption {
	return func(c *forkConfig) { c.io = io }
}

// WithForkTransition sets the fork's transition. Passing nil creates a
// passive fork: no worker is spawned, and the fork simply re-exposes the
// parent's broadcast through its own IoEndpoint — useful for modality
// adapters that only need to observe a cog's output stream. Omitting
// this option entirely inherits the parent's transition with a fresh
// worker.
func WithForkTransition(t Transition) ForkOption {
	return func(c *forkConfig) {
		c.transitionSet = true
		c.transition = t
	}
}

// WithForkOutputBuffer sets the fork's own output buffer discipline,
// when the fork has a worker of its own. Ignored for passive forks.
func WithForkOutputBuffer(b Buffer) ForkOption {
	return func(c *forkConfig) { c.outputBuffer = b }
}

// Fork derives a new cog from parent, sharing or transforming its
// context and/or transition, per spec §4.5. A fork with a transition
// never shares the parent's worker, queues, or broadcast — only,
// optionally, its context-cell. A passive fork has no worker and reuses
// the parent's broadcast.
func Fork(parent *Cog, opts ...ForkOption) *Cog {
	if parent == nil {
		panic("cog: Fork requires a non-nil parent")
	}

	cfg := &forkConfig{outputBuffer: Synchronous()}
	for _, opt := range opts {
		opt(cfg)
	}

	derived := &Cog{id: uuid.NewString(), log: parent.log}

	if cfg.contextMapper != nil {
		derived.ctx = new(contextCell)
		derived.ctx.Store(&contextBox{v: cfg.contextMapper(parent.Snapshot())})
	} else {
		derived.ctx = parent.ctx
	}

	transition := parent.transition
	passive := false
	if cfg.transitionSet {
		transition = cfg.transition
		passive = transition == nil
	}

	if passive {
		return newPassiveFork(derived, parent, cfg.io)
	}

	derived.transition = transition
	derived.onFault = defaultTransitionFaultHandler
	derived.output = NewChannel(cfg.outputBuffer)
	derived.bcast = NewBroadcast(derived.output)
	derived.workerDone = make(chan struct{})

	in, primary := resolveIo(cfg.io)
	derived.input = in
	derived.bcast.Subscribe(primary, true)
	derived.io = NewIoEndpoint(in, primary)

	go derived.run()
	return derived
}

// newPassiveFork finishes constructing a fork with no transition: it has
// no worker and no broadcast of its own, simply re-exposing the parent's
// broadcast through a new (or caller-given) IoEndpoint. Sends have no
// worker to feed, so the input side is always already closed.
func newPassiveFork(derived, parent *Cog, io *IoEndpoint) *Cog {
	derived.bcast = parent.bcast
	derived.workerDone = closedChan

	in, out := resolveIo(io)
	in.Close()
	parent.bcast.Subscribe(out, true)
	derived.io = NewIoEndpoint(in, out)
	return derived
}

// Extend is sugar over Fork: no context transformation, a caller-given
// IoEndpoint, and an optional transition — used to splice input-side or
// output-side adapters onto an existing cog without replacing its
// underlying logic (spec §4.5).
func Extend(parent *Cog, io *IoEndpoint, transition Transition) *Cog {
	opts := []ForkOption{WithIoEndpoint(io)}
	if transition != nil {
		opts = append(opts, WithForkTransition(transition))
	}
	return Fork(parent, opts...)
}

// resolveIo returns the caller-supplied IoEndpoint's channels, or a
// fresh Synchronous pair when none was given.
func resolveIo(io *IoEndpoint) (in, out *Channel) {
	if io != nil {
		return io.In(), io.Out()
	}
	return NewChannel(Synchronous()), NewChannel(Synchronous())
}

// closedChan is a pre-closed signal channel, used as the worker-done
// signal for passive forks, which have no worker goroutine to exit.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
