package cog

import "testing"

func TestDialogue_PingPongScenario(t *testing.T) {
	t.Parallel()
	a := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, "A:" + msg.(string), nil
	})
	b := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, "B:" + msg.(string), nil
	})
	defer a.Close()
	defer b.Close()

	ep := Dialogue(a, b)
	defer ep.Close()

	ep.Send("hi")

	want := []string{"A:hi", "B:A:hi", "A:B:A:hi", "B:A:B:A:hi"}
	for i, w := range want {
		v, ok := ep.Receive()
		if !ok || v != w {
			t.Fatalf("published[%d] = %v, %v, want %s, true", i, v, ok, w)
		}
	}
}

func TestDialogue_AlternationParity(t *testing.T) {
	t.Parallel()
	a := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, "A", nil
	})
	b := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, "B", nil
	})
	defer a.Close()
	defer b.Close()

	ep := Dialogue(a, b)
	defer ep.Close()

	ep.Send("seed")
	for k := 1; k <= 6; k++ {
		v, ok := ep.Receive()
		if !ok {
			t.Fatalf("message %d: unexpected end-of-stream", k)
		}
		wantFromA := k%2 == 1
		gotFromA := v == "A"
		if gotFromA != wantFromA {
			t.Fatalf("message %d = %v, wantFromA=%v", k, v, wantFromA)
		}
	}
}

func TestDialogue_ClosesWhenParticipantEnds(t *testing.T) {
	t.Parallel()
	a := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, "A:" + msg.(string), nil
	})
	b := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, "B:" + msg.(string), nil
	})
	defer a.Close()

	ep := Dialogue(a, b)
	defer ep.Close()

	ep.Send("hi")
	ep.Receive() // A:hi
	ep.Receive() // B:A:hi

	// The dialogue is now waiting on a's reply before it next tries to
	// send to b, so closing b here can't race with an in-flight forward.
	b.Close()

	v, ok := ep.Receive() // A:B:A:hi, published before the forward-to-b fails
	if !ok || v != "A:B:A:hi" {
		t.Fatalf("Receive() = %v, %v, want A:B:A:hi, true", v, ok)
	}

	if _, ok := ep.Receive(); ok {
		t.Fatal("dialogue should close once a participant ends")
	}
	if a.Closed() {
		t.Fatal("dialogue must not close participants it does not own")
	}
}
