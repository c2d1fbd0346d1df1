package cog

// DialogueState names a position in the alternating exchange's state
// machine (spec §4.9): Idle until the seed arrives, then AwaitingA and
// AwaitingB alternate until either participant ends and the dialogue
// moves to Closed.
type DialogueState int

const (
	DialogueIdle DialogueState = iota
	DialogueAwaitingA
	DialogueAwaitingB
	DialogueClosed
)

// dialogueConfig collects Dialogue's optional parameters.
type dialogueConfig struct {
	output Buffer
}

// DialogueOption configures an optional Dialogue parameter.
type DialogueOption func(*dialogueConfig)

// WithDialogueOutput sets the buffering discipline of the dialogue's
// published output. Defaults to Synchronous; pass Sliding1 explicitly to
// opt into drop-stale-message semantics for a consumer such as an audio
// playback tap (spec §0 resolution 3 — this is not the default, because
// silently dropping a turn would break the alternation invariant for any
// consumer relying on seeing every turn).
func WithDialogueOutput(b Buffer) DialogueOption {
	return func(c *dialogueConfig) { c.output = b }
}

// Dialogue wires two cogs A and B into an alternating two-party
// exchange. The seed value sent to the returned endpoint's input goes to
// A; thereafter each reply from A is forwarded to B and published on the
// endpoint's output, each reply from B is forwarded to A and published,
// alternating forever until either participant ends. Dialogue does not
// own A or B: closing the dialogue's endpoint does not close them.
func Dialogue(a, b Port, opts ...DialogueOption) *IoEndpoint {
	if a == nil || b == nil {
		panic("cog: Dialogue requires non-nil participants")
	}

	cfg := &dialogueConfig{output: Synchronous()}
	for _, opt := range opts {
		opt(cfg)
	}

	in := NewChannel(Synchronous())
	out := NewChannel(cfg.output)

	go runDialogue(in, out, a, b)

	return NewIoEndpoint(in, out)
}

func runDialogue(in, out *Channel, a, b Port) {
	defer out.Close()

	seed, ok := in.Receive()
	if !ok {
		return
	}
	if !a.Send(seed) {
		return
	}

	state := DialogueAwaitingA
	for {
		var from, to Port
		switch state {
		case DialogueAwaitingA:
			from, to = a, b
		case DialogueAwaitingB:
			from, to = b, a
		default:
			return
		}

		reply, ok := from.Receive()
		if !ok {
			return
		}
		if !out.Send(reply) {
			return
		}
		if !to.Send(reply) {
			return
		}

		if state == DialogueAwaitingA {
			state = DialogueAwaitingB
		} else {
			state = DialogueAwaitingA
		}
	}
}
