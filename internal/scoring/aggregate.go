// Package scoring combines per-dimension scores into the overall match score,
// verdict and confidence. Everything here is pure and deterministic.
package scoring

import (
	"math"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// Dimension weights: skills(40%) + experience(35%) + cultural fit(25%).
const (
	SkillsWeight      = 0.4
	ExperienceWeight  = 0.35
	CulturalFitWeight = 0.25
)

// Confidence bounds.
const (
	MinConfidence = 60
	MaxConfidence = 95
)

// FitThreshold is the overall score at or above which a candidate is reported as FIT.
const FitThreshold = 0.7

// Overall returns the weighted overall score.
func Overall(skills, experience, culturalFit float64) float64 {
	return SkillsWeight*skills + ExperienceWeight*experience + CulturalFitWeight*culturalFit
}

// VerdictFor maps an overall score to a verdict. Thresholds are closed and
// evaluated in descending order.
func VerdictFor(overall float64) domain.Verdict {
	switch {
	case overall >= 0.85:
		return domain.VerdictHighlyRecommended
	case overall >= 0.70:
		return domain.VerdictRecommended
	case overall >= 0.50:
		return domain.VerdictConsider
	default:
		return domain.VerdictNotRecommended
	}
}

// Confidence rewards scores that are high and agree with each other.
// The result is clamped to [MinConfidence, MaxConfidence].
func Confidence(skills, experience, culturalFit float64) int {
	scores := []float64{skills, experience, culturalFit}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))
	consistency := math.Max(0, 1-2*math.Sqrt(variance))

	// math.Round rounds half away from zero
	conf := int(math.Round(100 * (0.7*mean + 0.3*consistency)))
	if conf < MinConfidence {
		return MinConfidence
	}
	if conf > MaxConfidence {
		return MaxConfidence
	}
	return conf
}

// Clamp01 bounds a score to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FitStatus reports FIT or NOT FIT for an overall score.
func FitStatus(overall float64) string {
	if overall >= FitThreshold {
		return "FIT"
	}
	return "NOT FIT"
}

// Rating is a human readable band for an overall score.
func Rating(overall float64) string {
	switch {
	case overall >= 0.9:
		return "Excellent"
	case overall >= 0.8:
		return "Strong"
	case overall >= 0.7:
		return "Good"
	case overall >= 0.6:
		return "Moderate"
	case overall >= 0.4:
		return "Fair"
	default:
		return "Poor"
	}
}
