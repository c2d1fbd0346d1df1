package cog

// fanoutConfig collects Fanout's optional parameters.
type fanoutConfig struct {
	replyTransform Transform
	replyFault     FaultHandler
}

// FanoutOption configures an optional Fanout parameter.
type FanoutOption func(*fanoutConfig)

// WithReplyTransform applies t to each arm's reply during gather, before
// it is placed in the emitted tuple.
func WithReplyTransform(t Transform) FanoutOption {
	return func(c *fanoutConfig) { c.replyTransform = t }
}

// WithReplyFaultHandler installs the handler for faults raised by the
// reply transform.
func WithReplyFaultHandler(h FaultHandler) FanoutOption {
	return func(c *fanoutConfig) { c.replyFault = h }
}

// Fanout scatters each input value to every arm concurrently, gathers
// one reply from each, and emits a tuple (as a []any of len(arms)) whose
// i-th slot is arms[i]'s reply — preserving input-arm order regardless
// of reply-arrival order (spec §4.7). The next input value is not
// scattered until the previous gather completes, preventing
// interleaving. Each arm gets its own dedicated, unbuffered reply
// channel during gather (spec §0 resolution 2), so one slow arm can
// never be starved by another arm's traffic.
func Fanout(arms []Port, opts ...FanoutOption) *IoEndpoint {
	if len(arms) == 0 {
		panic("cog: Fanout requires at least one arm")
	}
	for _, arm := range arms {
		if arm == nil {
			panic("cog: Fanout requires non-nil arms")
		}
	}

	cfg := &fanoutConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	in := NewChannel(Synchronous())
	out := NewChannel(Synchronous())

	go runFanout(in, out, arms, cfg)

	return NewIoEndpoint(in, out)
}

func runFanout(in, out *Channel, arms []Port, cfg *fanoutConfig) {
	defer out.Close()
	for {
		v, ok := in.Receive()
		if !ok {
			return
		}
		tuple, ok := gather(v, arms, cfg)
		if !ok {
			return
		}
		if !out.Send(tuple) {
			return
		}
	}
}

func gather(v any, arms []Port, cfg *fanoutConfig) ([]any, bool) {
	n := len(arms)
	replies := make([]*Channel, n)
	for i := range replies {
		replies[i] = NewChannel(Synchronous())
	}

	for i, arm := range arms {
		go gatherOne(v, arm, replies[i], cfg)
	}

	tuple := make([]any, n)
	for i, reply := range replies {
		val, ok := reply.Receive()
		if !ok {
			return nil, false
		}
		tuple[i] = val
	}
	return tuple, true
}

// gatherOne sends v to one arm, receives its reply, applies the optional
// reply transform, and publishes the result on reply. Any failure along
// the way closes reply, which gather treats as a failed gather.
func gatherOne(v any, arm Port, reply *Channel, cfg *fanoutConfig) {
	if !arm.Send(v) {
		reply.Close()
		return
	}
	val, ok := arm.Receive()
	if !ok {
		reply.Close()
		return
	}

	if cfg.replyTransform == nil {
		reply.Send(val)
		return
	}

	vals, err := cfg.replyTransform(val)
	if err != nil {
		if cfg.replyFault == nil {
			reply.Close()
			return
		}
		replacement, keep := cfg.replyFault(err)
		if !keep {
			reply.Close()
			return
		}
		reply.Send(replacement)
		return
	}
	if len(vals) == 0 {
		reply.Close()
		return
	}
	reply.Send(vals[0])
}
