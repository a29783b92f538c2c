package event

import "testing"

func TestEmitterOrderAndRemove(t *testing.T) {
	var e Emitter[int]
	var got []string

	a := e.On(func(v int) { got = append(got, "a") })
	e.On(func(v int) { got = append(got, "b") })

	e.Emit(1)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}

	a.Remove()
	got = nil
	e.Emit(2)
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected [b] after remove, got %v", got)
	}
	if e.Len() != 1 {
		t.Errorf("expected 1 live handler, got %d", e.Len())
	}

	// Second remove is a no-op
	a.Remove()
	if e.Len() != 1 {
		t.Errorf("double remove changed handler count to %d", e.Len())
	}
}

func TestEmitterRemoveDuringEmit(t *testing.T) {
	var e Emitter[string]
	var second Subscription
	calls := 0

	e.On(func(string) {
		calls++
		second.Remove()
	})
	second = e.On(func(string) { calls += 10 })

	e.Emit("x")
	if calls != 1 {
		t.Errorf("handler removed mid-dispatch should not run, calls=%d", calls)
	}
}

func TestEmitterNilHandler(t *testing.T) {
	var e Emitter[int]
	s := e.On(nil)
	if s.Active() {
		t.Error("nil handler should yield inactive subscription")
	}
	if e.Len() != 0 {
		t.Errorf("nil handler should not register, got %d", e.Len())
	}
}

func TestGroupRelease(t *testing.T) {
	var a Emitter[int]
	var b Emitter[bool]
	var g Group

	g.Add(a.On(func(int) {}))
	g.Add(a.On(func(int) {}))
	g.Add(b.On(func(bool) {}))
	g.Add(Subscription{}) // ignored

	if g.Len() != 3 {
		t.Fatalf("expected 3 owned subscriptions, got %d", g.Len())
	}

	g.Release()
	if a.Len() != 0 || b.Len() != 0 {
		t.Errorf("expected all handlers removed, got a=%d b=%d", a.Len(), b.Len())
	}
	if g.Len() != 0 {
		t.Errorf("expected empty group after release, got %d", g.Len())
	}

	// Releasing an empty group is fine
	g.Release()
}
