package cog

// Gate pairs each input value with the next available value from a
// latched port L, emitting the tuple (v, L-value) as []any{v, lVal}. If
// L closes, the gate closes (spec §4.8).
func Gate(latched Receiver) *IoEndpoint {
	if latched == nil {
		panic("cog: Gate requires a non-nil latched port")
	}

	in := NewChannel(Synchronous())
	out := NewChannel(Synchronous())

	go runGate(in, out, latched)

	return NewIoEndpoint(in, out)
}

func runGate(in, out *Channel, latched Receiver) {
	defer out.Close()
	for {
		v, ok := in.Receive()
		if !ok {
			return
		}
		lVal, ok := latched.Receive()
		if !ok {
			return
		}
		if !out.Send([]any{v, lVal}) {
			return
		}
	}
}
