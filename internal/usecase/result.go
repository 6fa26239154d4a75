package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
	"github.com/fairyhunter13/ats-matcher/internal/scoring"
)

// AnalysisView is the API shape of an AnalysisResult.
type AnalysisView struct {
	CandidateID     int64    `json:"candidate_id"`
	JobID           int64    `json:"job_id"`
	CompanyID       int64    `json:"company_id"`
	OverallScore    float64  `json:"overall_score"`
	SkillsMatch     float64  `json:"skills_match"`
	ExperienceMatch float64  `json:"experience_match"`
	CulturalFit     float64  `json:"cultural_fit"`
	Verdict         string   `json:"verdict"`
	Confidence      int      `json:"confidence"`
	FitStatus       string   `json:"fit_status"`
	Rating          string   `json:"rating"`
	Reasoning       string   `json:"reasoning"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	AIModel         string   `json:"ai_model"`
	AnalysisDate    string   `json:"analysis_date"`
}

// NewAnalysisView maps a result to its API shape, adding the fit status and rating labels.
func NewAnalysisView(r domain.AnalysisResult) AnalysisView {
	strengths, weaknesses := r.Strengths, r.Weaknesses
	if strengths == nil {
		strengths = []string{}
	}
	if weaknesses == nil {
		weaknesses = []string{}
	}
	return AnalysisView{
		CandidateID:     r.Key.CandidateID,
		JobID:           r.Key.JobID,
		CompanyID:       r.Key.CompanyID,
		OverallScore:    r.OverallScore,
		SkillsMatch:     r.SkillsMatch,
		ExperienceMatch: r.ExperienceMatch,
		CulturalFit:     r.CulturalFit,
		Verdict:         string(r.Verdict),
		Confidence:      r.Confidence,
		FitStatus:       scoring.FitStatus(r.OverallScore),
		Rating:          scoring.Rating(r.OverallScore),
		Reasoning:       r.Reasoning,
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		AIModel:         r.AIModel,
		AnalysisDate:    r.AnalysisDate.UTC().Format(time.RFC3339),
	}
}

// ETag returns a strong validator for v's JSON encoding.
func ETag(v any) string {
	b, _ := json.Marshal(v)
	s := sha256.Sum256(b)
	return `"` + hex.EncodeToString(s[:]) + `"`
}
