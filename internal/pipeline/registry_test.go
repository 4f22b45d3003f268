package pipeline

import "testing"

func TestRegistry_StateTransitions(t *testing.T) {
	// Arrange
	r := NewRegistry()

	// Act / Assert - unseen
	if r.Seen("a") {
		t.Error("fresh registry should not know any identity")
	}

	// Processing
	r.MarkProcessing("a")
	if s, ok := r.Get("a"); !ok || s != StateProcessing {
		t.Errorf("after MarkProcessing: got (%v,%v)", s, ok)
	}

	// Processed
	r.MarkProcessed("a")
	if s, _ := r.Get("a"); s != StateProcessed {
		t.Errorf("after MarkProcessed: got %v", s)
	}
}

func TestRegistry_Forget_ReturnsTowardUnseen(t *testing.T) {
	r := NewRegistry()
	r.MarkProcessing("a")

	r.Forget("a")

	if r.Seen("a") {
		t.Error("forgotten identity should be unseen again")
	}
}

func TestRegistry_Rekey_MovesState(t *testing.T) {
	// Arrange
	r := NewRegistry()
	r.MarkProcessed("path-00ab")

	// Act - a permalink surfaced after the fact
	r.Rekey("path-00ab", "123456")

	// Assert
	if r.Seen("path-00ab") {
		t.Error("old identity should be gone")
	}
	if s, ok := r.Get("123456"); !ok || s != StateProcessed {
		t.Errorf("state not carried over: got (%v,%v)", s, ok)
	}
}

func TestRegistry_Rekey_MissingOrSameKey_NoOp(t *testing.T) {
	r := NewRegistry()
	r.MarkProcessed("a")

	r.Rekey("absent", "b")
	r.Rekey("a", "a")

	if r.Seen("b") {
		t.Error("rekeying an absent identity must not create entries")
	}
	if !r.Seen("a") {
		t.Error("self-rekey must not drop the entry")
	}
}

func TestRegistry_Reset_DropsEverything(t *testing.T) {
	r := NewRegistry()
	r.MarkProcessed("a")
	r.MarkProcessing("b")

	r.Reset()

	if r.Len() != 0 {
		t.Errorf("len after reset: got %d, want 0", r.Len())
	}
}
