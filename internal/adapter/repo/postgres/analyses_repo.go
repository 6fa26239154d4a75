package postgres

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ats-matcher/internal/domain"
)

// AnalysisRepo persists analysis results keyed by (candidate, job, company).
type AnalysisRepo struct{ Pool PgxPool }

// NewAnalysisRepo constructs an AnalysisRepo with the given pool.
func NewAnalysisRepo(p PgxPool) *AnalysisRepo { return &AnalysisRepo{Pool: p} }

const upsertAnalysisSQL = `INSERT INTO candidate_job_analyses (
	candidate_id, job_id, company_id, overall_score, skills_match, experience_match, cultural_fit,
	verdict, confidence, reasoning, strengths, weaknesses, ai_model, analysis_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (candidate_id, job_id, company_id)
DO UPDATE SET overall_score=EXCLUDED.overall_score, skills_match=EXCLUDED.skills_match,
	experience_match=EXCLUDED.experience_match, cultural_fit=EXCLUDED.cultural_fit,
	verdict=EXCLUDED.verdict, confidence=EXCLUDED.confidence, reasoning=EXCLUDED.reasoning,
	strengths=EXCLUDED.strengths, weaknesses=EXCLUDED.weaknesses, ai_model=EXCLUDED.ai_model,
	analysis_date=EXCLUDED.analysis_date`

// Upsert inserts or atomically replaces the row for the result's key.
func (r *AnalysisRepo) Upsert(ctx domain.Context, res domain.AnalysisResult) error {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("analysis.key", res.Key.String()))

	strengths, weaknesses := res.Strengths, res.Weaknesses
	if strengths == nil {
		strengths = []string{}
	}
	if weaknesses == nil {
		weaknesses = []string{}
	}
	_, err := r.Pool.Exec(ctx, upsertAnalysisSQL,
		res.Key.CandidateID, res.Key.JobID, res.Key.CompanyID,
		res.OverallScore, res.SkillsMatch, res.ExperienceMatch, res.CulturalFit,
		string(res.Verdict), res.Confidence, res.Reasoning, strengths, weaknesses,
		res.AIModel, res.AnalysisDate.UTC())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("op=analysis.upsert: %w", err)
	}
	return nil
}

// Get loads the stored row for key regardless of its age.
func (r *AnalysisRepo) Get(ctx domain.Context, key domain.AnalysisKey) (domain.AnalysisResult, error) {
	tracer := otel.Tracer("repo.analyses")
	ctx, span := tracer.Start(ctx, "analyses.Get")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("analysis.key", key.String()))

	q := `SELECT candidate_id, job_id, company_id, overall_score, skills_match, experience_match, cultural_fit,
	verdict, confidence, reasoning, strengths, weaknesses, ai_model, analysis_date
	FROM candidate_job_analyses WHERE candidate_id=$1 AND job_id=$2 AND company_id=$3`
	var (
		res     domain.AnalysisResult
		verdict string
	)
	err := r.Pool.QueryRow(ctx, q, key.CandidateID, key.JobID, key.CompanyID).Scan(
		&res.Key.CandidateID, &res.Key.JobID, &res.Key.CompanyID,
		&res.OverallScore, &res.SkillsMatch, &res.ExperienceMatch, &res.CulturalFit,
		&verdict, &res.Confidence, &res.Reasoning, &res.Strengths, &res.Weaknesses,
		&res.AIModel, &res.AnalysisDate)
	if err != nil {
		return domain.AnalysisResult{}, notFoundOr("analysis.get", err)
	}
	res.Verdict = domain.Verdict(verdict)
	res.AnalysisDate = res.AnalysisDate.UTC()
	return res, nil
}
