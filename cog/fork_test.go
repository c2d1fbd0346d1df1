package cog

import (
	"strings"
	"testing"
)

func upperTransition(ctx, msg any) (any, any, error) {
	return ctx, strings.ToUpper(msg.(string)), nil
}

func TestFork_SharesContextCellByDefault(t *testing.T) {
	t.Parallel()
	parent := Construct([]string{}, echoTransition)
	defer parent.Close()

	child := Fork(parent, WithForkTransition(upperTransition))
	defer child.Close()

	parent.Send("a")
	parent.Receive()

	if got := child.Snapshot(); !sliceEq(got.([]string), []string{"a"}) {
		t.Fatalf("child snapshot = %v, want shared [a]", got)
	}
}

func TestFork_ContextMapperAllocatesNewCell(t *testing.T) {
	t.Parallel()
	parent := Construct([]string{"seed"}, echoTransition)
	defer parent.Close()

	child := Fork(parent, WithContextMapper(func(parentCtx any) any {
		return len(parentCtx.([]string))
	}), WithForkTransition(func(ctx, msg any) (any, any, error) {
		return ctx, msg, nil
	}))
	defer child.Close()

	parent.Send("more")
	parent.Receive()

	if child.Snapshot() != 1 {
		t.Fatalf("child snapshot = %v, want 1 (mapped at fork time, independent of parent)", child.Snapshot())
	}
}

func TestFork_PassiveReexposesParentBroadcast(t *testing.T) {
	t.Parallel()
	parent := Construct([]string{}, echoTransition)
	defer parent.Close()

	tap := Fork(parent, WithForkTransition(nil))

	// Both the primary endpoint and the passive fork are independent
	// Synchronous subscribers of the same broadcast: the pump delivers to
	// each in turn, blocking on whichever it reaches first, so both sides
	// must be read concurrently to avoid stalling the other.
	primaryCh := make(chan any, 1)
	tapCh := make(chan any, 1)
	go func() { v, _ := parent.Receive(); primaryCh <- v }()
	go func() { v, _ := tap.Receive(); tapCh <- v }()

	parent.Send("x")
	primaryVal := <-primaryCh
	tapVal := <-tapCh
	if tapVal != primaryVal {
		t.Fatalf("passive fork got %v, want %v", tapVal, primaryVal)
	}

	if tap.Send("ignored") {
		t.Fatal("a passive fork has no worker; Send should report false")
	}
}

func TestExtend_SplicesOutputAdapter(t *testing.T) {
	t.Parallel()
	parent := Construct([]string{}, echoTransition)
	defer parent.Close()

	extended := Extend(parent, nil, func(ctx, msg any) (any, any, error) {
		return ctx, strings.ToUpper(msg.(string)), nil
	})
	defer extended.Close()

	extended.Send("hi")
	v, ok := extended.Receive()
	if !ok || v != "HI" {
		t.Fatalf("Receive() = %v, %v, want HI, true", v, ok)
	}
}

func sliceEq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
