package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

func TestOverall(t *testing.T) {
	t.Parallel()

	grid := []float64{0, 0.13, 0.5, 0.77, 1}
	for _, s := range grid {
		for _, e := range grid {
			for _, c := range grid {
				assert.InDelta(t, 0.4*s+0.35*e+0.25*c, Overall(s, e, c), 1e-9)
			}
		}
	}
	assert.InDelta(t, 0.77, Overall(0.9, 0.6, 0.8), 1e-9)
}

func TestVerdictFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		overall float64
		want    domain.Verdict
	}{
		{0.84, domain.VerdictRecommended},
		{0.85, domain.VerdictHighlyRecommended},
		{0.69, domain.VerdictConsider},
		{0.70, domain.VerdictRecommended},
		{0.49, domain.VerdictNotRecommended},
		{0.50, domain.VerdictConsider},
		{1.0, domain.VerdictHighlyRecommended},
		{0.0, domain.VerdictNotRecommended},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerdictFor(tt.overall), "overall=%v", tt.overall)
	}
}

func TestConfidence_Bounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MinConfidence, Confidence(0, 0, 0))
	assert.Equal(t, MaxConfidence, Confidence(1, 1, 1))

	for s := 0.0; s <= 1.0; s += 0.1 {
		for e := 0.0; e <= 1.0; e += 0.1 {
			for c := 0.0; c <= 1.0; c += 0.1 {
				got := Confidence(s, e, c)
				assert.GreaterOrEqual(t, got, MinConfidence)
				assert.LessOrEqual(t, got, MaxConfidence)
			}
		}
	}
}

func TestConfidence_MonotonicAtZeroVariance(t *testing.T) {
	t.Parallel()

	prev := Confidence(0, 0, 0)
	for i := 1; i <= 20; i++ {
		v := float64(i) / 20
		got := Confidence(v, v, v)
		assert.GreaterOrEqual(t, got, prev, "v=%v", v)
		prev = got
	}
	assert.LessOrEqual(t, Confidence(0.2, 0.2, 0.2), Confidence(0.8, 0.8, 0.8))
	assert.Equal(t, 86, Confidence(0.8, 0.8, 0.8))
}

func TestConfidence_Disagreement(t *testing.T) {
	t.Parallel()

	// mean 0.7667, stddev 0.1247 -> 100*(0.7*0.7667 + 0.3*0.7506) = 76.18
	assert.Equal(t, 76, Confidence(0.9, 0.6, 0.8))
	// wide spread drives consistency to zero
	assert.Equal(t, MinConfidence, Confidence(1, 0, 0))
}

func TestClamp01(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Clamp01(-0.3))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.42, Clamp01(0.42))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestFitStatusAndRating(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "FIT", FitStatus(0.7))
	assert.Equal(t, "NOT FIT", FitStatus(0.69))

	assert.Equal(t, "Excellent", Rating(0.95))
	assert.Equal(t, "Strong", Rating(0.8))
	assert.Equal(t, "Good", Rating(0.77))
	assert.Equal(t, "Moderate", Rating(0.6))
	assert.Equal(t, "Fair", Rating(0.4))
	assert.Equal(t, "Poor", Rating(0.1))
}
