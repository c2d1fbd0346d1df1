package cog

import (
	"reflect"
	"testing"
)

func TestGate_PairScenario(t *testing.T) {
	t.Parallel()
	l := NewChannel(Fixed(2))
	l.Send("L")
	l.Send("M")

	ep := Gate(l)
	defer ep.Close()

	ep.Send(1)
	v, ok := ep.Receive()
	if !ok || !reflect.DeepEqual(v, []any{1, "L"}) {
		t.Fatalf("Receive() = %v, %v, want [1 L], true", v, ok)
	}

	ep.Send(2)
	v, ok = ep.Receive()
	if !ok || !reflect.DeepEqual(v, []any{2, "M"}) {
		t.Fatalf("Receive() = %v, %v, want [2 M], true", v, ok)
	}
}

func TestGate_ClosesWhenLatchCloses(t *testing.T) {
	t.Parallel()
	l := NewChannel(Fixed(1))
	l.Send("only")
	l.Close()

	ep := Gate(l)
	defer ep.Close()

	ep.Send(1)
	v, ok := ep.Receive()
	if !ok || !reflect.DeepEqual(v, []any{1, "only"}) {
		t.Fatalf("Receive() = %v, %v, want [1 only], true", v, ok)
	}

	ep.Send(2)
	if _, ok := ep.Receive(); ok {
		t.Fatal("Gate should close once its latch is exhausted and closed")
	}
}
