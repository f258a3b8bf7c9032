package etag

import "testing"

func TestCompute_Deterministic(t *testing.T) {
	a := Compute("# Note\n\nBody.")
	b := Compute("# Note\n\nBody.")
	if a != b {
		t.Errorf("Compute() not deterministic: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("len(Compute()) = %d, want 16", len(a))
	}
}

func TestCompute_ChangesWithContent(t *testing.T) {
	a := Compute("# Note\n\nBody.")
	b := Compute("# Note\n\nBody!")
	if a == b {
		t.Errorf("Compute() identical for different content: %q", a)
	}
}

func TestMatches(t *testing.T) {
	current := Compute("content")

	if !Matches("", current) {
		t.Error("Matches(empty, current) = false, want true")
	}
	if !Matches(current, current) {
		t.Error("Matches(current, current) = false, want true")
	}
	if Matches("deadbeefdeadbeef", current) {
		t.Error("Matches(stale, current) = true, want false")
	}
}
