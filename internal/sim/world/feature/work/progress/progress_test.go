package progress

import (
	"math"
	"testing"
)

func TestStep_ExpertOnSimpleItem(t *testing.T) {
	in := Inputs{Experience: 1000, Complexity: 1, TimesMade: 0, Happiness: 1, Speed: 1}
	if got := Step(in); math.Abs(got-26) > 1e-9 {
		t.Fatalf("expected 26 per tick, got %v", got)
	}
	if got := TicksToFinish(in); got != 4 {
		t.Fatalf("expected 4 ticks, got %d", got)
	}
}

func TestStep_ZeroComplexity(t *testing.T) {
	in := Inputs{Experience: 1000, Complexity: 0, Happiness: 1}
	if got := Step(in); math.Abs(got-28.6) > 1e-9 {
		t.Fatalf("expected 28.6 per tick, got %v", got)
	}
	if got := TicksToFinish(in); got != 4 {
		t.Fatalf("expected 4 ticks, got %d", got)
	}
}

func TestStep_NoExperienceNeverFinishes(t *testing.T) {
	if got := TicksToFinish(Inputs{Experience: 0, Complexity: 1}); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

func TestProficiencyCaps(t *testing.T) {
	if got := Proficiency(0); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Proficiency(1_000_000); got != 2.5 {
		t.Fatalf("expected cap 2.5, got %v", got)
	}
	if Proficiency(100) <= Proficiency(10) {
		t.Fatalf("expected proficiency to grow with practice")
	}
}

func TestManagerSpeedBands(t *testing.T) {
	cases := map[float64]float64{0: 1.05, 249: 1.05, 250: 1.10, 600: 1.15, 750: 1.20, 1000: 1.20}
	for exp, want := range cases {
		if got := ManagerSpeed(exp); got != want {
			t.Fatalf("exp %v: expected %v, got %v", exp, want, got)
		}
	}
}
