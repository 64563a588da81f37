package wellness

import (
	"math/rand/v2"
)

// Health is the display category of a trust graph edge.
type Health string

const (
	HealthStrong   Health = "strong"
	HealthGood     Health = "good"
	HealthModerate Health = "moderate"
	HealthAtRisk   Health = "at_risk"
)

// EdgeHealth derives an edge's health from its strength.
func EdgeHealth(strength int) Health {
	switch s := Clamp(strength); {
	case s >= 80:
		return HealthStrong
	case s >= 70:
		return HealthGood
	case s >= 50:
		return HealthModerate
	default:
		return HealthAtRisk
	}
}

// EdgeWidth is the stroke width used to draw an edge of the given strength.
func EdgeWidth(strength int) float64 {
	return max(2, float64(Clamp(strength))/20)
}

type PairStatus string

const (
	PairStrong          PairStatus = "strong"
	PairStable          PairStatus = "stable"
	PairAttentionNeeded PairStatus = "attention_needed"
	PairAtRisk          PairStatus = "at_risk"
)

// StatusForDistance maps an emotional distance (0 close, 100 distant) to a pair status.
func StatusForDistance(distance int) PairStatus {
	switch d := Clamp(distance); {
	case d <= 25:
		return PairStrong
	case d <= 45:
		return PairStable
	case d <= 70:
		return PairAttentionNeeded
	default:
		return PairAtRisk
	}
}

// IsCritical reports whether a pair status needs intervention.
func IsCritical(s PairStatus) bool {
	return s == PairAttentionNeeded || s == PairAtRisk
}

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

const trendThreshold = 5

// TrendFor compares the current emotional distance with the previous one.
func TrendFor(previous, current int) Trend {
	switch delta := current - previous; {
	case delta > trendThreshold:
		return TrendDeclining
	case delta < -trendThreshold:
		return TrendImproving
	default:
		return TrendStable
	}
}

var recommendations = map[PairStatus][]string{
	PairStrong: {
		"Continue current positive patterns",
		"Encourage continued positive interactions",
	},
	PairStable: {
		"Encourage deeper emotional sharing",
		"Plan more one-on-one activities",
	},
	PairAttentionNeeded: {
		"Send a gentle check-in message",
		"Suggest a shared activity",
		"Schedule one-on-one time",
	},
	PairAtRisk: {
		"Send a gentle check-in message",
		"Schedule one-on-one time",
		"Consider a family counseling session",
	},
}

// Recommendations returns suggested actions for a pair status.
func Recommendations(s PairStatus) []string {
	recs := recommendations[s]
	out := make([]string, len(recs))
	copy(out, recs)
	return out
}

// Simulator produces mock relationship movement for the trust graph
// refresh action. It is a data generator for demos, not a scoring model.
type Simulator struct {
	rng *rand.Rand
}

// NewSimulator returns a Simulator drawing from src. A nil src uses a
// randomly seeded PCG source.
func NewSimulator(src rand.Source) *Simulator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Simulator{rng: rand.New(src)}
}

const (
	perturbMin  = 40
	perturbMax  = 95
	perturbSpan = 10
)

// Perturb moves strength by a uniform delta in [-10, 10] and bounds the
// result to [40, 95].
func (s *Simulator) Perturb(strength int) int {
	delta := s.rng.IntN(2*perturbSpan+1) - perturbSpan
	return min(perturbMax, max(perturbMin, strength+delta))
}
