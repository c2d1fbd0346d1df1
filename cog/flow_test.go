package cog

import (
	"strings"
	"testing"
)

func TestFlow_ShoutScenario(t *testing.T) {
	t.Parallel()
	echo := Construct([]string{}, echoTransition)
	defer echo.Close()
	shout := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, strings.ToUpper(msg.(string)), nil
	})
	defer shout.Close()

	ep := Flow(echo, shout)
	defer ep.Close()

	ep.Send("hello")
	v, ok := ep.Receive()
	if !ok || v != "ECHO:HELLO" {
		t.Fatalf("Receive() = %v, %v, want ECHO:HELLO, true", v, ok)
	}
}

func TestFlow_SingleIdentityCogBehavesAsThatCog(t *testing.T) {
	t.Parallel()
	identity := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, msg, nil
	})
	defer identity.Close()

	ep := Flow(identity)
	defer ep.Close()

	ep.Send("passthrough")
	v, ok := ep.Receive()
	if !ok || v != "passthrough" {
		t.Fatalf("Receive() = %v, %v, want passthrough, true", v, ok)
	}
}

func TestFlow_ClosingInputDrainsAndCloses(t *testing.T) {
	t.Parallel()
	identity := Construct(nil, func(ctx, msg any) (any, any, error) {
		return ctx, msg, nil
	})
	defer identity.Close()

	ep := Flow(identity)
	ep.Send("last")
	v, _ := ep.Receive()
	if v != "last" {
		t.Fatalf("got %v, want last", v)
	}

	ep.Close()
	if _, ok := ep.Receive(); ok {
		t.Fatal("Receive after closing the flow should report end-of-stream")
	}
}
