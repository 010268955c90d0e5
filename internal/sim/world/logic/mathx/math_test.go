package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := ClampInt(2, 0, 3); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestRound1(t *testing.T) {
	if got := Round1(26.04); got != 26 {
		t.Fatalf("expected 26, got %v", got)
	}
	if got := Round1(33.35); got != 33.4 {
		t.Fatalf("expected 33.4, got %v", got)
	}
}

func TestRoundCents(t *testing.T) {
	if got := RoundCents(3.0749999); got != 3.07 {
		t.Fatalf("expected 3.07, got %v", got)
	}
	if got := RoundCents(1.005); got != 1.01 {
		t.Fatalf("expected 1.01, got %v", got)
	}
}

func TestRoundWhole(t *testing.T) {
	if got := RoundWhole(2.5); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := RoundWhole(-2.5); got != -2 {
		t.Fatalf("expected -2, got %v", got)
	}
}
