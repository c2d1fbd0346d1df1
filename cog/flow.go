package cog

// Port is the minimal capability a combinator needs from a pipeline
// stage: enough to feed it messages and read its replies. *Cog,
// *IoEndpoint and *Channel all satisfy it, so combinators compose freely
// across cogs, plain channels, and other combinators' endpoints.
type Port interface {
	Sender
	Receiver
}

// Flow wires an ordered pipeline of stages: values sent to the returned
// endpoint's input travel stages[0] -> stages[1] -> ... -> stages[n-1],
// the output of each becoming the input of the next, and the final
// stage's output is emitted on the endpoint's output (spec §4.6). When
// the endpoint's input closes, the pipeline drains and closes stage by
// stage; closing any internal stage terminates the whole flow.
func Flow(stages ...Port) *IoEndpoint {
	if len(stages) == 0 {
		panic("cog: Flow requires at least one stage")
	}
	for _, s := range stages {
		if s == nil {
			panic("cog: Flow requires non-nil stages")
		}
	}

	in := NewChannel(Synchronous())
	out := NewChannel(Synchronous())

	go pump(in, stages[0])
	for i := 0; i < len(stages)-1; i++ {
		go pump(stages[i], stages[i+1])
	}
	go pump(stages[len(stages)-1], out)

	return NewIoEndpoint(in, out)
}

// pump forwards every value from src to dst until src ends, then closes
// dst so the closure propagates downstream. If dst refuses a send
// because it has already closed, src is closed in turn so the closure
// propagates back upstream too.
func pump(src Receiver, dst Sender) {
	for {
		v, ok := src.Receive()
		if !ok {
			closeIfCloser(dst)
			return
		}
		if !dst.Send(v) {
			closeIfCloser(src)
			return
		}
	}
}

func closeIfCloser(v any) {
	if c, ok := v.(Closer); ok {
		c.Close()
	}
}
