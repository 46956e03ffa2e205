package clock

import "testing"

func TestShutdownSignal(t *testing.T) {
	s := NewShutdownSignal()
	if s.IsDraining() {
		t.Fatal("new signal should not be draining")
	}

	s.Drain()
	if !s.IsDraining() {
		t.Fatal("signal should be draining after Drain")
	}

	// Idempotent, monotonic: calling Drain again changes nothing.
	s.Drain()
	if !s.IsDraining() {
		t.Fatal("signal should remain draining")
	}
}
