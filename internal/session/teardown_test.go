package session

import (
	"errors"
	"testing"
)

func TestTeardown_ReverseOrder(t *testing.T) {
	td := NewTeardown()

	var order []string
	td.Register("first", func() error { order = append(order, "first"); return nil })
	td.Register("second", func() error { order = append(order, "second"); return nil })
	td.Register("third", func() error { order = append(order, "third"); return nil })

	td.Drain()

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("ran %d actions, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTeardown_DrainExactlyOnce(t *testing.T) {
	td := NewTeardown()

	count := 0
	td.Register("counter", func() error { count++; return nil })

	td.Drain()
	td.Drain()
	td.Drain()

	if count != 1 {
		t.Errorf("action ran %d times, want 1", count)
	}
}

func TestTeardown_FailuresNeverPropagate(t *testing.T) {
	td := NewTeardown()

	ran := false
	td.Register("survivor", func() error { ran = true; return nil })
	td.Register("failing", func() error { return errors.New("release failed") })

	// Must not panic, and the failure must not stop earlier registrations.
	td.Drain()

	if !ran {
		t.Error("actions after a failing one must still run")
	}
}

func TestTeardown_RegisterAfterDrainRunsImmediately(t *testing.T) {
	td := NewTeardown()
	td.Drain()

	ran := false
	td.Register("late", func() error { ran = true; return nil })

	if !ran {
		t.Error("late registration must run immediately so the resource is not leaked")
	}
}

func TestTeardown_EmptyDrain(t *testing.T) {
	// Draining an empty registry is a no-op.
	NewTeardown().Drain()
}
