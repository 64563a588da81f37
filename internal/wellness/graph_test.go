package wellness

import (
	"math/rand/v2"
	"testing"
)

func TestEdgeHealthMatchesFixtures(t *testing.T) {
	cases := []struct {
		strength int
		want     Health
	}{
		{85, HealthStrong},
		{72, HealthGood},
		{78, HealthGood},
		{65, HealthModerate},
		{88, HealthStrong},
		{92, HealthStrong},
		{49, HealthAtRisk},
	}
	for _, c := range cases {
		if got := EdgeHealth(c.strength); got != c.want {
			t.Errorf("EdgeHealth(%d) = %q, want %q", c.strength, got, c.want)
		}
	}
}

func TestEdgeWidth(t *testing.T) {
	if got := EdgeWidth(20); got != 2 {
		t.Errorf("EdgeWidth(20) = %v, want 2", got)
	}
	if got := EdgeWidth(90); got != 4.5 {
		t.Errorf("EdgeWidth(90) = %v, want 4.5", got)
	}
}

func TestStatusForDistance(t *testing.T) {
	cases := []struct {
		distance int
		want     PairStatus
	}{
		{65, PairAttentionNeeded},
		{20, PairStrong},
		{35, PairStable},
		{25, PairStrong},
		{71, PairAtRisk},
	}
	for _, c := range cases {
		if got := StatusForDistance(c.distance); got != c.want {
			t.Errorf("StatusForDistance(%d) = %q, want %q", c.distance, got, c.want)
		}
	}
	if !IsCritical(PairAtRisk) || !IsCritical(PairAttentionNeeded) || IsCritical(PairStable) {
		t.Error("IsCritical mismatch")
	}
}

func TestTrendFor(t *testing.T) {
	if got := TrendFor(45, 65); got != TrendDeclining {
		t.Errorf("TrendFor(45, 65) = %q", got)
	}
	if got := TrendFor(35, 20); got != TrendImproving {
		t.Errorf("TrendFor(35, 20) = %q", got)
	}
	if got := TrendFor(38, 35); got != TrendStable {
		t.Errorf("TrendFor(38, 35) = %q", got)
	}
}

func TestRecommendationsReturnsCopy(t *testing.T) {
	recs := Recommendations(PairAtRisk)
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	recs[0] = "changed"
	if Recommendations(PairAtRisk)[0] == "changed" {
		t.Error("Recommendations should return a copy")
	}
}

func TestSimulatorPerturbStaysInBounds(t *testing.T) {
	sim := NewSimulator(rand.NewPCG(1, 2))
	for _, start := range []int{0, 40, 65, 95, 100} {
		for i := 0; i < 200; i++ {
			got := sim.Perturb(start)
			if got < 40 || got > 95 {
				t.Fatalf("Perturb(%d) = %d, outside [40, 95]", start, got)
			}
			if start >= 50 && start <= 85 && (got < start-10 || got > start+10) {
				t.Fatalf("Perturb(%d) = %d, moved more than 10", start, got)
			}
		}
	}
}

func TestSimulatorDeterministicWithSeed(t *testing.T) {
	a := NewSimulator(rand.NewPCG(7, 7))
	b := NewSimulator(rand.NewPCG(7, 7))
	for i := 0; i < 20; i++ {
		if a.Perturb(70) != b.Perturb(70) {
			t.Fatal("same seed should give same sequence")
		}
	}
}
